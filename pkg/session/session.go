package session

import "time"

// InputKind names the free-text input a session is waiting for
type InputKind string

const (
	// AwaitNone means free text is not expected
	AwaitNone InputKind = ""
	// AwaitBrief means the next free-text message is the product brief
	AwaitBrief InputKind = "brief"
)

// Stage is the highest filled step of a session
type Stage int

const (
	StageEmpty Stage = iota
	StageBrief
	StageDraft
	StageChosen
	StageFinal
)

// String returns the stage name
func (s Stage) String() string {
	switch s {
	case StageEmpty:
		return "empty"
	case StageBrief:
		return "has_brief"
	case StageDraft:
		return "has_draft"
	case StageChosen:
		return "has_chosen"
	case StageFinal:
		return "has_final"
	default:
		return "unknown"
	}
}

// Session is the workflow state of one chat. An empty string means the
// field has not been set yet.
type Session struct {
	ChatID   int64
	Brief    string
	Draft    string
	Chosen   string
	Final    string
	Awaiting InputKind

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Stage returns the highest step whose field and all predecessors are set
func (s Session) Stage() Stage {
	switch {
	case s.Brief == "":
		return StageEmpty
	case s.Draft == "":
		return StageBrief
	case s.Chosen == "":
		return StageDraft
	case s.Final == "":
		return StageChosen
	default:
		return StageFinal
	}
}

// AtLeast reports whether the session has reached stage
func (s Session) AtLeast(stage Stage) bool {
	return s.Stage() >= stage
}
