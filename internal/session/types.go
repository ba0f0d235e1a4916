// Package session folds the typed event stream of one video-to-code
// conversion into an immutable state snapshot: thought log, code buffer,
// segment list and terminal status.
package session

import (
	"github.com/morahq/mora/internal/timeline"
)

// Status is the lifecycle state of one conversion session.
type Status string

const (
	StatusCreated    Status = "created"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// StepStatus is the tri-state completion status of one thought step.
type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepProcessing StepStatus = "processing"
	StepComplete   StepStatus = "complete"
)

// ThoughtStep is one line of the agent's visible reasoning trace. Steps are
// keyed by their exact text and never deleted within a session.
type ThoughtStep struct {
	Text   string     `json:"text"`
	Status StepStatus `json:"status"`
}

// Snapshot is the reduced view of a session at some prefix of its event
// log. Snapshots are values: Apply never mutates its input, so callers may
// keep old snapshots around (and re-render from them) safely.
type Snapshot struct {
	ID        string             `json:"sessionId"`
	VideoURL  string             `json:"videoUrl"`
	Language  string             `json:"language,omitempty"`
	Status    Status             `json:"status"`
	Thoughts  []ThoughtStep      `json:"thoughts,omitempty"`
	Code      string             `json:"code,omitempty"`
	Segments  []timeline.Segment `json:"segments,omitempty"`
	ActiveSeg int                `json:"activeSegment"` // position in Segments, -1 when none
	Timeline  *timeline.Timeline `json:"timeline,omitempty"`
	Err       string             `json:"error,omitempty"`
}

// New returns the initial snapshot for a freshly created session.
func New(id, videoURL string) Snapshot {
	return Snapshot{
		ID:        id,
		VideoURL:  videoURL,
		Status:    StatusCreated,
		ActiveSeg: -1,
	}
}

// ActiveSegment returns the selected segment, if any.
func (s Snapshot) ActiveSegment() (timeline.Segment, bool) {
	if s.ActiveSeg < 0 || s.ActiveSeg >= len(s.Segments) {
		return timeline.Segment{}, false
	}
	return s.Segments[s.ActiveSeg], true
}

// Terminal reports whether the session has reached a final status.
func (s Snapshot) Terminal() bool {
	return s.Status == StatusCompleted || s.Status == StatusError
}

// Index builds a playback lookup index over the snapshot's segment list.
func (s Snapshot) Index() *timeline.Index {
	x := timeline.NewIndex()
	x.Reset(s.Segments)
	return x
}

func cloneThoughts(in []ThoughtStep) []ThoughtStep {
	if in == nil {
		return nil
	}
	out := make([]ThoughtStep, len(in))
	copy(out, in)
	return out
}
