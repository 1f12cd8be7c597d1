// Package fetch retrieves deployed contract bytecode over JSON-RPC so it can
// be handed to the analyzer without the caller needing direct access to an
// Ethereum node.
package fetch

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/delegatescan/delegatescan/errs"
	"github.com/delegatescan/delegatescan/log"
)

// Options selects the network and RPC endpoint to fetch code from.
type Options struct {
	// Network names the RPC_URL_<NETWORK> environment variable to consult
	// when RPCURL is empty. Case-insensitive.
	Network string
	// RPCURL, when set, is used directly and no environment lookup happens.
	RPCURL string
}

var nonAlnum = regexp.MustCompile(`[^A-Z0-9]+`)

// resolveRPCURL implements the resolution order: explicit option, then
// RPC_URL_<NETWORK>, then RPC_URL_DEFAULT.
func resolveRPCURL(opts Options) (string, error) {
	if opts.RPCURL != "" {
		return opts.RPCURL, nil
	}
	if opts.Network != "" {
		envName := "RPC_URL_" + nonAlnum.ReplaceAllString(strings.ToUpper(opts.Network), "_")
		if url := os.Getenv(envName); url != "" {
			return url, nil
		}
	}
	if url := os.Getenv("RPC_URL_DEFAULT"); url != "" {
		return url, nil
	}
	return "", errs.ErrNoRPCConfigured
}

// Code dials the RPC endpoint resolved from opts and returns the deployed
// bytecode at address, as a "0x"-prefixed hex string. Returns
// errs.ErrNoRPCConfigured when no endpoint can be resolved, and
// errs.ErrNoCode when the address has no code (an EOA or an address that
// has never been deployed to).
func Code(ctx context.Context, address string, opts Options) (string, error) {
	logger := log.Default().Module("fetch")

	url, err := resolveRPCURL(opts)
	if err != nil {
		return "", err
	}
	if !common.IsHexAddress(address) {
		return "", fmt.Errorf("%w: %q is not a valid address", errs.ErrInvalidRequest, address)
	}

	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return "", fmt.Errorf("dial %s: %w", url, err)
	}
	defer client.Close()

	addr := common.HexToAddress(address)
	code, err := client.CodeAt(ctx, addr, nil)
	if err != nil {
		return "", fmt.Errorf("CodeAt(%s): %w", address, err)
	}
	if len(code) == 0 {
		return "", fmt.Errorf("%w: %s", errs.ErrNoCode, address)
	}

	logger.Debug("fetched code", "address", address, "network", opts.Network, "bytes", len(code))
	return "0x" + common.Bytes2Hex(code), nil
}
