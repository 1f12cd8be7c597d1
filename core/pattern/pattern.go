// Package pattern cross-references DELEGATECALL site classifications with
// byte-level signatures and known storage slots to recognize standard
// proxy idioms.
package pattern

import (
	"strings"

	"github.com/delegatescan/delegatescan/core/classify"
)

// Name is a recognized proxy pattern name.
type Name string

const (
	EIP1167 Name = "EIP-1167"
	EIP1967 Name = "EIP-1967"
	UUPS    Name = "UUPS"
	Diamond Name = "Diamond"
)

// UUPSSlot is the well-known EIP-1822 (UUPS) storage slot.
const UUPSSlot = "0xc5f16f0fcc639fa48a6947836d9850f504798523bf8c9a3a87d5876cf622bcf7"

const (
	minimalProxyPrefix = "363d3d373d3d3d363d73"
	minimalProxySuffix = "5af43d82803e903d91602b57fd5bf3"
	// minimalProxyGap is the minimum distance (in hex chars) the suffix must
	// appear past the prefix: a 20-byte implementation address is 40 hex
	// chars.
	minimalProxyGap = 40
)

// Match is a detected pattern plus a human-readable description.
type Match struct {
	Name        Name
	Description string
}

var descriptions = map[Name]string{
	EIP1167: "EIP-1167 minimal proxy: delegates to a hardcoded implementation address",
	EIP1967: "EIP-1967 transparent proxy: implementation address read from the standard storage slot",
	UUPS:    "EIP-1822 UUPS proxy: upgrade logic lives in the implementation, selected via the UUPS storage slot",
	Diamond: "EIP-2535 Diamond: dispatches to multiple facet contracts via distinct storage-mapped addresses",
}

func match(n Name) *Match {
	return &Match{Name: n, Description: descriptions[n]}
}

// SiteInput is the minimal per-site information the detector needs: its
// classification (for slot literals) and an identifier for re-keying
// results back onto the caller's site list.
type SiteInput struct {
	ID             int
	Classification classify.Classification
}

// Detect attaches at most one pattern Match per site, keyed by site ID, per
// spec.md §4.5. Priority: EIP-1167 > EIP-1967/UUPS > Diamond.
func Detect(bytecode string, sites []SiteInput) map[int]*Match {
	out := map[int]*Match{}
	if len(sites) == 0 {
		return out
	}

	if isMinimalProxy(bytecode) {
		m := match(EIP1167)
		for _, s := range sites {
			out[s.ID] = m
		}
		return out
	}

	slotSet := map[string]struct{}{}
	for _, s := range sites {
		if s.Classification.Type == classify.Storage && s.Classification.StorageSlotLiteral != "" {
			slotSet[s.Classification.StorageSlotLiteral] = struct{}{}
		}
	}
	_, hasUUPS := slotSet[UUPSSlot]

	for _, s := range sites {
		if s.Classification.Type != classify.Storage || s.Classification.StorageSlotLiteral == "" {
			continue
		}
		if s.Classification.StorageSlotLiteral == classify.EIP1967ImplSlot {
			if hasUUPS {
				out[s.ID] = match(UUPS)
			} else {
				out[s.ID] = match(EIP1967)
			}
		}
	}

	if len(slotSet) >= 2 {
		storageCount := 0
		for _, s := range sites {
			if s.Classification.Type == classify.Storage {
				storageCount++
			}
		}
		if storageCount >= 2 {
			m := match(Diamond)
			for _, s := range sites {
				if _, already := out[s.ID]; already {
					continue
				}
				out[s.ID] = m
			}
		}
	}

	return out
}

func isMinimalProxy(bytecode string) bool {
	code := strings.ToLower(strings.TrimPrefix(bytecode, "0x"))
	prefixIdx := strings.Index(code, minimalProxyPrefix)
	if prefixIdx < 0 {
		return false
	}
	searchFrom := prefixIdx + len(minimalProxyPrefix) + minimalProxyGap
	if searchFrom > len(code) {
		return false
	}
	suffixIdx := strings.Index(code[searchFrom:], minimalProxySuffix)
	return suffixIdx >= 0
}
