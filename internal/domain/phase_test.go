package domain

import (
	"errors"
	"testing"
)

func TestParsePhase(t *testing.T) {
	for raw, want := range map[string]Phase{
		"arterial":  PhaseArterial,
		"venous":    PhaseVenous,
		"Arterial":  PhaseArterial,
		" venous\n": PhaseVenous,
	} {
		phase, err := ParsePhase(raw)
		if err != nil {
			t.Fatalf("expected %q to parse, got error: %v", raw, err)
		}
		if phase != want {
			t.Fatalf("expected %q to parse to %q, got %q", raw, want, phase)
		}
		if !phase.Known() {
			t.Fatalf("expected parsed phase %q to be known", phase)
		}
	}
}

func TestParsePhaseRejectsUnknownValues(t *testing.T) {
	for _, raw := range []string{"", "unknown", "portal", "arterial venous"} {
		if _, err := ParsePhase(raw); !errors.Is(err, ErrInvalidPhase) {
			t.Fatalf("expected ErrInvalidPhase for %q, got %v", raw, err)
		}
	}

	if Phase("portal").Known() {
		t.Fatal("expected out-of-set phase to be unknown")
	}
}
