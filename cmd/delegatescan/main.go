// Command delegatescan analyzes a contract's bytecode for DELEGATECALL
// surface: recovered targets, proxy pattern matches, and per-site risk.
//
// Usage:
//
//	delegatescan --bytecode <hex>
//	delegatescan --address <addr> [--network <name>] [--rpc-url <url>]
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/delegatescan/delegatescan/core/report"
	"github.com/delegatescan/delegatescan/fetch"
)

func main() {
	os.Exit(run(os.Args))
}

// run is the actual entry point, returning an exit code. Accepts the full
// os.Args slice (including argv[0]) so it can be tested in isolation, the
// same way the teacher's cmd/eth2030 run(args) does.
func run(args []string) int {
	app := newApp()
	if err := app.Run(args); err != nil {
		if ec, ok := err.(cli.ExitCoder); ok {
			if msg := ec.Error(); msg != "" {
				fmt.Fprintln(os.Stderr, msg)
			}
			return ec.ExitCode()
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	return 0
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "delegatescan",
		Usage: "analyze a contract's DELEGATECALL surface",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bytecode", Usage: "hex-encoded runtime bytecode to analyze"},
			&cli.StringFlag{Name: "address", Usage: "contract address to fetch bytecode for"},
			&cli.StringFlag{Name: "network", Usage: "network name, used to resolve RPC_URL_<NETWORK>"},
			&cli.StringFlag{Name: "rpc-url", Usage: "explicit RPC endpoint, overrides --network resolution"},
			&cli.BoolFlag{Name: "json", Usage: "emit the full Report as JSON instead of a text summary"},
		},
		Action: runAnalyze,
		// Leave exit-code handling to run: the library's default handler
		// would exit the process on a cli.Exit error.
		ExitErrHandler: func(*cli.Context, error) {},
	}
}

func runAnalyze(c *cli.Context) error {
	bytecode := c.String("bytecode")
	address := c.String("address")

	if bytecode == "" && address == "" {
		return cli.Exit("missing input: pass --bytecode or --address", 1)
	}

	ctx := context.Background()

	if bytecode == "" {
		code, err := fetch.Code(ctx, address, fetch.Options{
			Network: c.String("network"),
			RPCURL:  c.String("rpc-url"),
		})
		if err != nil {
			return cli.Exit(fmt.Sprintf("Analysis failed: %v", err), 1)
		}
		bytecode = code
	}

	rep, err := report.Build(ctx, bytecode, report.Options{
		ContractAddress: address,
		Network:         c.String("network"),
		UseCFG:          true,
	})
	if err != nil {
		return cli.Exit(fmt.Sprintf("Analysis failed: %v", err), 1)
	}

	if c.Bool("json") {
		enc := json.NewEncoder(c.App.Writer)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			return cli.Exit(fmt.Sprintf("Analysis failed: %v", err), 1)
		}
		return nil
	}

	fmt.Fprint(c.App.Writer, report.FormatText(rep))
	return nil
}
