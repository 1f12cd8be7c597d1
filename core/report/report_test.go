package report

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/delegatescan/delegatescan/core/classify"
	"github.com/delegatescan/delegatescan/core/pattern"
)

func build(t *testing.T, bytecode string, opts Options) *Report {
	t.Helper()
	r, err := Build(context.Background(), bytecode, opts)
	if err != nil {
		t.Fatalf("Build(%q): %v", bytecode, err)
	}
	return r
}

func toHex(bs []byte) string { return "0x" + hex.EncodeToString(bs) }

func push1(v byte) []byte { return []byte{0x60, v} }
func push32(word []byte) []byte {
	out := make([]byte, 33)
	out[0] = 0x7f
	copy(out[1:], word)
	return out
}

func slotBytes(hexStr string) []byte {
	b, err := hex.DecodeString(hexStr[2:]) // strip "0x"
	if err != nil {
		panic(err)
	}
	return b
}

// delegatecallWithTarget returns a straight-line instruction sequence that
// leaves the full 6-argument DELEGATECALL stack in place with `target` as
// the computed `to` value at depth 1 from the top: push order (bottom to
// top) is outSize, outOffset, inSize, inOffset, to, gas -- so `to` sits at
// index len-2 and `gas` (the last push) sits at the top, per spec.md's
// "(gas, to, inOffset, inSize, outOffset, outSize)" with to at index len-2.
func delegatecallWithTarget(targetOps []byte) []byte {
	var out []byte
	for i := 0; i < 4; i++ { // outSize, outOffset, inSize, inOffset
		out = append(out, push1(0)...)
	}
	out = append(out, targetOps...)
	out = append(out, push1(0)...) // gas
	out = append(out, 0xf4)        // DELEGATECALL
	return out
}

// S1 — minimal proxy (EIP-1167).
func TestScenarioMinimalProxy(t *testing.T) {
	code := "0x363d3d373d3d3d363d73aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa5af43d82803e903d91602b57fd5bf3"
	r := build(t, code, DefaultOptions())

	if r.DelegatecallCount != 1 {
		t.Fatalf("DelegatecallCount = %d, want 1", r.DelegatecallCount)
	}
	site := r.Sites[0]
	if site.Classification.Type != classify.Hardcoded {
		t.Errorf("Type = %s, want hardcoded", site.Classification.Type)
	}
	if site.Classification.AddressLiteral != "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa" {
		t.Errorf("AddressLiteral = %s", site.Classification.AddressLiteral)
	}
	if site.Pattern == nil || site.Pattern.Name != pattern.EIP1167 {
		t.Fatalf("Pattern = %v, want EIP-1167", site.Pattern)
	}
	if site.Risk != Medium {
		t.Errorf("Risk = %s, want medium", site.Risk)
	}
	if r.OverallRisk != Medium {
		t.Errorf("OverallRisk = %s, want medium", r.OverallRisk)
	}
	if len(r.ProxiesDetected) != 1 || r.ProxiesDetected[0].Name != pattern.EIP1167 || r.ProxiesDetected[0].Count != 1 {
		t.Errorf("ProxiesDetected = %v", r.ProxiesDetected)
	}
}

// S2 — EIP-1967 transparent proxy: PUSH32 <slot>, SLOAD, then DELEGATECALL
// with the loaded value as the target.
func TestScenarioEIP1967(t *testing.T) {
	slot := classify.EIP1967ImplSlot
	target := append(push32(slotBytes(slot)), 0x54) // PUSH32 slot; SLOAD
	code := toHex(delegatecallWithTarget(target))

	r := build(t, code, DefaultOptions())
	if r.DelegatecallCount != 1 {
		t.Fatalf("DelegatecallCount = %d, want 1 (code=%s)", r.DelegatecallCount, code)
	}
	site := r.Sites[0]
	if site.Classification.Type != classify.Storage {
		t.Fatalf("Type = %s, want storage (site=%+v)", site.Classification.Type, site)
	}
	if site.Classification.StorageSlotLiteral != slot {
		t.Errorf("StorageSlotLiteral = %s, want %s", site.Classification.StorageSlotLiteral, slot)
	}
	if site.Pattern == nil || site.Pattern.Name != pattern.EIP1967 {
		t.Fatalf("Pattern = %v, want EIP-1967", site.Pattern)
	}
	if site.Risk != Medium {
		t.Errorf("Risk = %s, want medium", site.Risk)
	}
}

// S3 — calldata-controlled target: PUSH1 0x00, CALLDATALOAD, then
// DELEGATECALL.
func TestScenarioCalldataControlled(t *testing.T) {
	target := []byte{0x60, 0x00, 0x35} // PUSH1 0x00; CALLDATALOAD
	code := toHex(delegatecallWithTarget(target))

	r := build(t, code, DefaultOptions())
	if r.DelegatecallCount != 1 {
		t.Fatalf("DelegatecallCount = %d, want 1 (code=%s)", r.DelegatecallCount, code)
	}
	site := r.Sites[0]
	if site.Classification.Type != classify.Calldata {
		t.Fatalf("Type = %s, want calldata (site=%+v)", site.Classification.Type, site)
	}
	if site.Pattern != nil {
		t.Errorf("Pattern = %v, want nil", site.Pattern)
	}
	if site.Risk != High {
		t.Errorf("Risk = %s, want high", site.Risk)
	}
	if r.OverallRisk != High {
		t.Errorf("OverallRisk = %s, want high", r.OverallRisk)
	}
}

// S4 — empty bytecode.
func TestScenarioEmptyBytecode(t *testing.T) {
	for _, code := range []string{"0x", ""} {
		r := build(t, code, DefaultOptions())
		if r.DelegatecallCount != 0 {
			t.Errorf("DelegatecallCount = %d, want 0", r.DelegatecallCount)
		}
		if len(r.Sites) != 0 {
			t.Errorf("Sites = %v, want empty", r.Sites)
		}
		if r.OverallRisk != "" {
			t.Errorf("OverallRisk = %q, want absent", r.OverallRisk)
		}
		if len(r.ProxiesDetected) != 0 {
			t.Errorf("ProxiesDetected = %v, want empty", r.ProxiesDetected)
		}
	}
}

// S5 — Diamond: two DELEGATECALLs whose targets are SLOADs at two distinct
// literal slots, neither equal to the EIP-1967 slot.
func TestScenarioDiamond(t *testing.T) {
	callSeq := func(slotByte byte) []byte {
		target := append(push1(slotByte), 0x54) // PUSH1 slot; SLOAD
		return delegatecallWithTarget(target)
	}
	var code []byte
	code = append(code, callSeq(0x01)...)
	code = append(code, callSeq(0x02)...)

	r := build(t, toHex(code), DefaultOptions())
	if r.DelegatecallCount != 2 {
		t.Fatalf("DelegatecallCount = %d, want 2 (sites=%+v)", r.DelegatecallCount, r.Sites)
	}
	for _, s := range r.Sites {
		if s.Classification.Type != classify.Storage {
			t.Errorf("site %d: Type = %s, want storage", s.PC, s.Classification.Type)
		}
		if s.Risk != Medium {
			t.Errorf("site %d: Risk = %s, want medium", s.PC, s.Risk)
		}
	}
	found := false
	for _, p := range r.ProxiesDetected {
		if p.Name == pattern.Diamond {
			found = true
			if p.Count != 2 {
				t.Errorf("Diamond count = %d, want 2", p.Count)
			}
		}
	}
	if !found {
		t.Errorf("expected Diamond in ProxiesDetected, got %v", r.ProxiesDetected)
	}
}

// S6 — hash stability.
func TestScenarioHashStability(t *testing.T) {
	code := toHex(delegatecallWithTarget([]byte{0x60, 0x00, 0x35}))
	r1 := build(t, code, DefaultOptions())
	r2 := build(t, code, DefaultOptions())
	if r1.BytecodeHash != r2.BytecodeHash {
		t.Errorf("hash not stable: %s vs %s", r1.BytecodeHash, r2.BytecodeHash)
	}
	want := sha256.Sum256([]byte(code))
	if r1.BytecodeHash != hex.EncodeToString(want[:]) {
		t.Errorf("hash mismatch: got %s, want %s", r1.BytecodeHash, hex.EncodeToString(want[:]))
	}
}

// Invariant 2/6 — a 0xf4 byte that is push *data*, not an opcode, must not
// be counted, and there must be no overall risk.
func TestNoDelegatecallMeansNoOverallRisk(t *testing.T) {
	code := toHex([]byte{0x60, 0xf4, 0x50, 0x00}) // PUSH1 0xf4; POP; STOP
	r := build(t, code, DefaultOptions())
	if r.DelegatecallCount != 0 {
		t.Errorf("DelegatecallCount = %d, want 0", r.DelegatecallCount)
	}
	if r.OverallRisk != "" {
		t.Errorf("OverallRisk = %q, want absent", r.OverallRisk)
	}
}

// Invariant 3/8 — sites are ascending by PC, and linear/CFG modes agree on
// site PCs and classifications for straight-line code.
func TestLinearAndCFGAgreeOnStraightLineCode(t *testing.T) {
	code := toHex(delegatecallWithTarget([]byte{0x60, 0x00, 0x35}))
	cfgReport := build(t, code, Options{UseCFG: true})
	linReport := build(t, code, Options{UseCFG: false})

	if len(cfgReport.Sites) != len(linReport.Sites) {
		t.Fatalf("site count differs: cfg=%d linear=%d", len(cfgReport.Sites), len(linReport.Sites))
	}
	for i := range cfgReport.Sites {
		if cfgReport.Sites[i].PC != linReport.Sites[i].PC {
			t.Errorf("site %d PC differs: cfg=%d linear=%d", i, cfgReport.Sites[i].PC, linReport.Sites[i].PC)
		}
		if cfgReport.Sites[i].Classification.Type != linReport.Sites[i].Classification.Type {
			t.Errorf("site %d classification type differs: cfg=%s linear=%s", i,
				cfgReport.Sites[i].Classification.Type, linReport.Sites[i].Classification.Type)
		}
	}
	for i := 1; i < len(cfgReport.Sites); i++ {
		if cfgReport.Sites[i].PC <= cfgReport.Sites[i-1].PC {
			t.Errorf("sites not strictly ascending by PC: %v", cfgReport.Sites)
		}
	}
}
