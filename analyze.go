// Package delegatescan is a static analyzer for EVM bytecode: it enumerates
// DELEGATECALL sites, recovers a symbolic description of each call's target
// address, classifies it, recognizes standard proxy patterns, assigns risk,
// and emits a structured report plus a dataflow graph.
package delegatescan

import (
	"context"

	"github.com/delegatescan/delegatescan/core/report"
)

// Options configures Analyze. Re-exported from core/report so callers never
// need to import that package directly for the common case.
type Options = report.Options

// DefaultOptions returns Options with UseCFG true.
func DefaultOptions() Options { return report.DefaultOptions() }

// Analyze runs the full disassemble -> trace -> classify -> detect -> risk
// pipeline over bytecode (a "0x"-prefixed or bare hex string) and returns the
// resulting Report.
func Analyze(ctx context.Context, bytecode string, opts Options) (*report.Report, error) {
	return report.Build(ctx, bytecode, opts)
}
