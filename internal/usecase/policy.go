// Package usecase contains application business logic.
package usecase

import (
	"fmt"

	"github.com/viik420/bt-mac-changer/internal/domain"
)

// Mode decides how a finished apply run is surfaced to the caller.
// The apply sequence is identical in both modes; only escalation differs.
type Mode string

const (
	// ModeBestEffort never turns an outcome into an error. Used by the boot
	// unit, where a failure would be recorded as a failed boot job.
	ModeBestEffort Mode = "best-effort"
	// ModeStrict reports aborted and mismatched runs as errors. Used when an
	// operator runs apply by hand.
	ModeStrict Mode = "strict"
)

// Escalate returns the error a caller in this mode should see for report.
func (m Mode) Escalate(report *domain.ApplyReport) error {
	if m != ModeStrict || report == nil {
		return nil
	}

	switch report.State {
	case domain.StateAborted:
		if report.AbortErr != nil {
			return report.AbortErr
		}
		return fmt.Errorf("apply aborted")
	case domain.StateMismatch:
		if report.Observed.IsZero() {
			return fmt.Errorf("%w: could not read adapter address", domain.ErrVerificationMismatch)
		}
		return fmt.Errorf("%w: want %s, adapter reports %s",
			domain.ErrVerificationMismatch, report.Target, report.Observed)
	}
	return nil
}
