// Package classify inspects a symbolic target expression recovered by
// core/trace and assigns it a target-kind classification.
package classify

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"

	"github.com/delegatescan/delegatescan/core/trace"
)

// Kind is the target-kind tag.
type Kind string

const (
	Hardcoded   Kind = "hardcoded"
	Storage     Kind = "storage"
	Calldata    Kind = "calldata"
	Dynamic     Kind = "dynamic"
	UnknownKind Kind = "unknown"
)

// EIP1967ImplSlot is the well-known EIP-1967 implementation storage slot.
const EIP1967ImplSlot = "0x360894a13ba1a3210667c828492db98dca3e2076cc3735a920a3ca505d382bbc"

// Classification is the result of classifying a DELEGATECALL's target
// expression.
type Classification struct {
	Type               Kind
	AddressLiteral     string // normalized "0x"+40 hex chars, when Type == Hardcoded
	StorageSlotLiteral string // normalized "0x"+64 hex chars, when known
	Details            string
}

// Classify assigns a Classification to a recovered target expression, per
// spec.md §4.4.
func Classify(e trace.Expr) Classification {
	switch v := e.(type) {
	case trace.Literal:
		hexDigits := strings.TrimPrefix(strings.ToLower(v.Value), "0x")
		if len(hexDigits) == 40 {
			return Classification{Type: Hardcoded, AddressLiteral: "0x" + hexDigits}
		}
		return Classification{Type: UnknownKind, Details: fmt.Sprintf("literal(%s)", v.Value)}

	case trace.Storage:
		if lit, ok := v.Slot.(trace.Literal); ok {
			slot := normalizeSlot(lit.Value)
			c := Classification{Type: Storage, StorageSlotLiteral: slot}
			if slot == EIP1967ImplSlot {
				c.Details = "EIP-1967 implementation slot"
			}
			return c
		}
		return Classification{Type: Storage, Details: "non-literal storage slot"}

	case trace.Calldata:
		return Classification{Type: Calldata, Details: "derived from CALLDATALOAD"}

	case trace.Op:
		return Classification{Type: Dynamic, Details: fmt.Sprintf("op(%s)", v.Name)}

	default:
		// trace.Environment, trace.Unknown, or anything else.
		return Classification{Type: UnknownKind}
	}
}

// normalizeSlot parses a slot literal as a 256-bit word and re-renders it
// as a full 32-byte (64 hex char) canonical form, so slots written with
// varying case or leading-zero elision (e.g. "0x01" from a PUSH1) still
// compare equal to well-known slot constants like EIP1967ImplSlot.
// Input that uint256.FromHex rejects falls back to the raw lowercased,
// left-zero-padded string rather than failing classification outright: this
// covers malformed input (longer than 32 bytes, non-hex) and also any literal
// whose first digit is a zero (e.g. "0x01"), which pads to the same form.
func normalizeSlot(v string) string {
	digits := strings.TrimPrefix(strings.ToLower(v), "0x")
	n, err := uint256.FromHex("0x" + digits)
	if err != nil {
		if len(digits) < 64 {
			digits = strings.Repeat("0", 64-len(digits)) + digits
		}
		return "0x" + digits
	}
	padded := n.Hex()[2:]
	if len(padded) < 64 {
		padded = strings.Repeat("0", 64-len(padded)) + padded
	}
	return "0x" + padded
}
