// Package report assembles the per-site classifications, pattern matches,
// and risk levels produced by the earlier pipeline stages into the final
// Report, including its derived dataflow graph.
package report

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"

	"github.com/delegatescan/delegatescan/core/cfg"
	"github.com/delegatescan/delegatescan/core/classify"
	"github.com/delegatescan/delegatescan/core/disasm"
	"github.com/delegatescan/delegatescan/core/pattern"
	"github.com/delegatescan/delegatescan/core/trace"
)

// SiteReport is one DELEGATECALL site's entry in the final report.
type SiteReport struct {
	ID             int                     `json:"id"`
	PC             int                     `json:"pc"`
	Classification classify.Classification `json:"classification"`
	Pattern        *pattern.Match          `json:"pattern,omitempty"`
	Risk           Risk                    `json:"risk"`
	Notes          string                  `json:"notes,omitempty"`
}

// PatternCount is one entry in the report's detected-pattern histogram.
type PatternCount struct {
	Name  pattern.Name `json:"name"`
	Count int          `json:"count"`
}

// Report is the immutable, structured result of analyzing one contract's
// bytecode.
type Report struct {
	ContractAddress   string         `json:"contractAddress,omitempty"`
	Network           string         `json:"network,omitempty"`
	BytecodeHash      string         `json:"bytecodeHash"`
	DelegatecallCount int            `json:"delegatecallCount"`
	Sites             []SiteReport   `json:"sites"`
	ProxiesDetected   []PatternCount `json:"proxiesDetected"`
	OverallRisk       Risk           `json:"overallRisk,omitempty"`
	Graph             Graph          `json:"graph"`
}

// Options configures Build/Analyze. ContractAddress and Network are purely
// descriptive metadata carried through into the report; UseCFG selects
// between the fixed-point CFG tracer (default) and the linear fallback.
type Options struct {
	ContractAddress string
	Network         string
	UseCFG          bool
}

// DefaultOptions returns Options with UseCFG true, per spec.md §6's
// "useCFG default true".
func DefaultOptions() Options {
	return Options{UseCFG: true}
}

// Build runs the full pipeline (disassemble -> CFG/linear trace -> classify
// -> detect patterns -> assess risk -> assemble graph) over bytecode and
// produces a Report. It is the implementation behind the package-level
// Analyze entry point described in spec.md §6.
func Build(ctx context.Context, bytecode string, opts Options) (*Report, error) {
	instrs, err := disasm.Disassemble(bytecode)
	if err != nil {
		return nil, err
	}

	var traceSites []trace.Site
	if opts.UseCFG {
		graph := cfg.Build(instrs)
		traceSites = trace.TraceCFG(ctx, graph, instrs)
	} else {
		traceSites = trace.TraceLinear(instrs)
	}

	classifications := make(map[int]classify.Classification, len(traceSites))
	patternInputs := make([]pattern.SiteInput, 0, len(traceSites))
	for _, s := range traceSites {
		c := classify.Classify(s.Target)
		classifications[s.ID] = c
		patternInputs = append(patternInputs, pattern.SiteInput{ID: s.ID, Classification: c})
	}
	matches := pattern.Detect(bytecode, patternInputs)

	sites := make([]SiteReport, 0, len(traceSites))
	graphInputs := make([]siteGraphInput, 0, len(traceSites))
	var risks []Risk
	for _, s := range traceSites {
		c := classifications[s.ID]
		m := matches[s.ID]
		risk := SiteRisk(c, m)
		risks = append(risks, risk)

		sites = append(sites, SiteReport{
			ID:             s.ID,
			PC:             s.PC,
			Classification: c,
			Pattern:        m,
			Risk:           risk,
		})
		graphInputs = append(graphInputs, siteGraphInput{
			id: s.ID, classification: c, match: m, risk: risk,
		})
	}
	sort.Slice(sites, func(i, j int) bool { return sites[i].PC < sites[j].PC })

	overall, hasOverall := Overall(risks)

	r := &Report{
		ContractAddress:   opts.ContractAddress,
		Network:           opts.Network,
		BytecodeHash:      hashBytecode(bytecode),
		DelegatecallCount: len(sites),
		Sites:             sites,
		ProxiesDetected:   histogram(matches),
		Graph:             buildGraph(opts.ContractAddress, graphInputs),
	}
	if hasOverall {
		r.OverallRisk = overall
	}
	return r, nil
}

func histogram(matches map[int]*pattern.Match) []PatternCount {
	counts := map[pattern.Name]int{}
	for _, m := range matches {
		if m != nil {
			counts[m.Name]++
		}
	}
	out := make([]PatternCount, 0, len(counts))
	for name, count := range counts {
		out = append(out, PatternCount{Name: name, Count: count})
	}
	// Stable (not spec-mandated) ordering for reproducible output.
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func hashBytecode(bytecode string) string {
	sum := sha256.Sum256([]byte(bytecode))
	return hex.EncodeToString(sum[:])
}
