package domain

import (
	"time"
)

// OpenPhaseEnd marks a phase that has not been closed.
var OpenPhaseEnd = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)

type PhaseIndicator string

const (
	PhaseIndicatorOpen  PhaseIndicator = "1"
	PhaseIndicatorClose PhaseIndicator = "2"
)

// PhaseEventRelationship configures which phase an event opens or closes.
type PhaseEventRelationship struct {
	PhaseCode int
	EventCode int
	ValidFrom time.Time
	ValidTo   *time.Time
	Indicator PhaseIndicator
	Active    bool
}

// IsValidForDate reports whether the relationship applies on d.
func (r PhaseEventRelationship) IsValidForDate(d time.Time) bool {
	if !r.Active {
		return false
	}
	if d.Before(r.ValidFrom) {
		return false
	}
	return r.ValidTo == nil || !d.After(*r.ValidTo)
}

func (r PhaseEventRelationship) Opens() bool  { return r.Indicator == PhaseIndicatorOpen }
func (r PhaseEventRelationship) Closes() bool { return r.Indicator == PhaseIndicatorClose }

type PhaseRecord struct {
	Protocol          Protocol
	PhaseCode         int
	EventCode         int
	RelationshipStart time.Time
	OpenedOn          time.Time
	ClosedOn          time.Time
}

func NewOpenPhase(protocol Protocol, rel PhaseEventRelationship, openedOn time.Time) PhaseRecord {
	return PhaseRecord{
		Protocol:          protocol,
		PhaseCode:         rel.PhaseCode,
		EventCode:         rel.EventCode,
		RelationshipStart: rel.ValidFrom,
		OpenedOn:          openedOn,
		ClosedOn:          OpenPhaseEnd,
	}
}

func (p PhaseRecord) IsOpen() bool {
	return p.ClosedOn.IsZero() || p.ClosedOn.Equal(OpenPhaseEnd)
}

// Close ends an open phase on the given date.
func (p *PhaseRecord) Close(on time.Time) error {
	if !p.IsOpen() {
		return ErrPhaseAlreadyClosed
	}
	if on.Before(p.OpenedOn) {
		return NewInvalidTransactionContextError("phase cannot close before it opened")
	}
	p.ClosedOn = on
	return nil
}

// DaysOpen counts whole days from opening to now, or to the close date.
func (p PhaseRecord) DaysOpen(now time.Time) int {
	end := now
	if !p.IsOpen() {
		end = p.ClosedOn
	}
	if end.Before(p.OpenedOn) {
		return 0
	}
	return int(end.Sub(p.OpenedOn).Hours() / 24)
}
