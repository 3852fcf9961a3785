package session

import (
	"time"

	"github.com/google/uuid"
)

// CallSession is one phone call's worth of stateful interaction. It is
// created on the first turn and never deleted while the call lives; there is
// no hangup signal, retention is an external concern.
type CallSession struct {
	ID        uuid.UUID
	ServiceID uuid.UUID
	Language  string
	CreatedAt time.Time
}

// Step is an append-only record of one element visit. The latest step whose
// element is the service's start element marks the iteration boundary.
type Step struct {
	ID        int64
	SessionID uuid.UUID
	ElementID uuid.UUID
	CreatedAt time.Time
}

// ChoiceEntry is an append-only record of one answered choice. UserReportID
// is set later when a report submission claims this entry as its answer.
type ChoiceEntry struct {
	ID              int64
	SessionID       uuid.UUID
	ChoiceElementID uuid.UUID
	OptionID        uuid.UUID
	// OptionLabelID is the selected option's voice label, joined in on read.
	OptionLabelID uuid.NullUUID
	UserReportID  uuid.NullUUID
	CreatedAt     time.Time
}

// InputEntry is an append-only record of one spoken recording.
type InputEntry struct {
	ID              int64
	SessionID       uuid.UUID
	RecordElementID uuid.UUID
	AudioURL        string
	UserReportID    uuid.NullUUID
	CreatedAt       time.Time
}

// UserReport is the immutable snapshot created once per confirmed report
// submission. Answers are attached by repointing log entries at it, never
// by copying.
type UserReport struct {
	ID              uuid.UUID
	SessionID       uuid.UUID
	ReportElementID uuid.UUID
	CreatedAt       time.Time
}
