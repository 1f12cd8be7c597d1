package delegatescan

import (
	"context"
	"testing"

	"github.com/delegatescan/delegatescan/core/classify"
)

func TestAnalyzeMinimalProxy(t *testing.T) {
	code := "0x363d3d373d3d3d363d73aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa5af43d82803e903d91602b57fd5bf3"
	r, err := Analyze(context.Background(), code, DefaultOptions())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if r.DelegatecallCount != 1 {
		t.Fatalf("DelegatecallCount = %d, want 1", r.DelegatecallCount)
	}
	if r.Sites[0].Classification.Type != classify.Hardcoded {
		t.Errorf("Type = %s, want hardcoded", r.Sites[0].Classification.Type)
	}
}

func TestAnalyzeEmptyBytecode(t *testing.T) {
	r, err := Analyze(context.Background(), "0x", DefaultOptions())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if r.DelegatecallCount != 0 {
		t.Errorf("DelegatecallCount = %d, want 0", r.DelegatecallCount)
	}
}

func TestAnalyzeMalformedHex(t *testing.T) {
	if _, err := Analyze(context.Background(), "0xzz", DefaultOptions()); err == nil {
		t.Fatal("expected error for malformed hex")
	}
}
