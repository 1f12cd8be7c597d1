// Package errs collects the sentinel errors shared across delegatescan's
// pipeline stages and external boundaries, so callers can classify failures
// with errors.Is instead of matching on message text.
package errs

import "errors"

var (
	// ErrMalformedHex is returned by the disassembler when the input is not
	// valid hex (odd length, or a character outside [0-9a-fA-F]).
	ErrMalformedHex = errors.New("malformed bytecode: not valid hex")

	// ErrNoCode is returned by the code-fetching collaborator when the
	// queried address has no deployed bytecode ("0x").
	ErrNoCode = errors.New("no code at address")

	// ErrNoRPCConfigured is returned by the code-fetching collaborator when
	// neither an explicit RPC URL nor a matching environment variable is
	// available for the requested network.
	ErrNoRPCConfigured = errors.New("no RPC endpoint configured for network")

	// ErrInvalidRequest is returned at the HTTP boundary when a request body
	// does not match the expected schema.
	ErrInvalidRequest = errors.New("invalid request")
)
