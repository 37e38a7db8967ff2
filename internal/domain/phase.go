package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Phase selects which fixed enhancement pipeline is applied to an upload.
// The set is closed: anything other than the two constants below is a
// request error, never a silent default.
type Phase string

const (
	PhaseArterial Phase = "arterial"
	PhaseVenous   Phase = "venous"
)

var ErrInvalidPhase = errors.New("invalid phase")

func ParsePhase(raw string) (Phase, error) {
	switch Phase(strings.ToLower(strings.TrimSpace(raw))) {
	case PhaseArterial:
		return PhaseArterial, nil
	case PhaseVenous:
		return PhaseVenous, nil
	}
	return "", fmt.Errorf("%w: %q (expected %q or %q)", ErrInvalidPhase, raw, PhaseArterial, PhaseVenous)
}

func (p Phase) String() string {
	return string(p)
}

// Known reports whether p is one of the two accepted selector values.
func (p Phase) Known() bool {
	return p == PhaseArterial || p == PhaseVenous
}
