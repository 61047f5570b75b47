package transform

import (
	"errors"
	"testing"

	"github.com/openretail/pos-reconciler/internal/vocab"
)

func TestParseProductLineTwoEntries(t *testing.T) {
	line := "Large Coffee - Vanilla - 3.50, Regular Tea - 2.00"

	candidates, err := ParseProductLine(line, vocab.Default())
	if err != nil {
		t.Fatalf("ParseProductLine failed: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("got %d candidates, want 2", len(candidates))
	}

	first := candidates[0]
	if first.Name != "Coffee" || first.Flavour != "Vanilla" || first.Size != "Large" || first.Price != 3.50 {
		t.Errorf("first candidate = %+v, want Large/Vanilla/Coffee @3.50", first)
	}

	second := candidates[1]
	if second.Name != "Tea" || second.Flavour != "Standard" || second.Size != "Regular" || second.Price != 2.00 {
		t.Errorf("second candidate = %+v, want Regular/Standard/Tea @2.00", second)
	}
}

func TestParseProductLineDefaultSize(t *testing.T) {
	candidates, err := ParseProductLine("Espresso - 2.20", vocab.Default())
	if err != nil {
		t.Fatalf("ParseProductLine failed: %v", err)
	}
	if candidates[0].Size != "Regular" {
		t.Errorf("size = %q, want default Regular", candidates[0].Size)
	}
	if candidates[0].Flavour != "Standard" {
		t.Errorf("flavour = %q, want default Standard", candidates[0].Flavour)
	}
}

func TestParseProductLineEmbeddedFlavour(t *testing.T) {
	// No explicit flavour segment: the flavour vocabulary is consulted
	// on the name text, after size extraction.
	candidates, err := ParseProductLine("Large Hazelnut Latte - 3.10", vocab.Default())
	if err != nil {
		t.Fatalf("ParseProductLine failed: %v", err)
	}

	c := candidates[0]
	if c.Size != "Large" {
		t.Errorf("size = %q, want Large", c.Size)
	}
	if c.Flavour != "Hazelnut" {
		t.Errorf("flavour = %q, want Hazelnut", c.Flavour)
	}
	if c.Name != "Latte" {
		t.Errorf("name = %q, want Latte", c.Name)
	}
}

func TestParseProductLineExplicitFlavourVerbatim(t *testing.T) {
	// Explicit flavour segments are never normalized: case variants are
	// distinct identity keys.
	candidates, err := ParseProductLine("Regular Chai - vanilla - 2.80", vocab.Default())
	if err != nil {
		t.Fatalf("ParseProductLine failed: %v", err)
	}
	if candidates[0].Flavour != "vanilla" {
		t.Errorf("flavour = %q, want verbatim lowercase vanilla", candidates[0].Flavour)
	}
}

func TestParseProductLineStripsNoiseWords(t *testing.T) {
	candidates, err := ParseProductLine("Large Flavoured Latte - Caramel - 3.25", vocab.Default())
	if err != nil {
		t.Fatalf("ParseProductLine failed: %v", err)
	}
	if candidates[0].Name != "Latte" {
		t.Errorf("name = %q, want Latte", candidates[0].Name)
	}
}

func TestParseProductLineTitleCasesName(t *testing.T) {
	candidates, err := ParseProductLine("large iced coffee - 3.00", vocab.Default())
	if err != nil {
		t.Fatalf("ParseProductLine failed: %v", err)
	}
	// "large" is lowercase so the size vocabulary does not match it; the
	// default size applies and the full name is title-cased.
	if candidates[0].Size != "Regular" {
		t.Errorf("size = %q, want Regular", candidates[0].Size)
	}
	if candidates[0].Name != "Large Iced Coffee" {
		t.Errorf("name = %q, want Large Iced Coffee", candidates[0].Name)
	}
}

func TestParseProductLineIncomplete(t *testing.T) {
	_, err := ParseProductLine("Large Coffee", vocab.Default())
	if err == nil {
		t.Fatal("expected error for entry without price")
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
}

func TestParseProductLineBadPrice(t *testing.T) {
	_, err := ParseProductLine("Large Coffee - free", vocab.Default())
	if err == nil {
		t.Fatal("expected error for non-decimal price")
	}
}
