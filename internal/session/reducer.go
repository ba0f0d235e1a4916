package session

import (
	"github.com/morahq/mora/internal/events"
	"github.com/morahq/mora/internal/timeline"
)

// Reducer folds typed stream messages into session snapshots. The fold is
// incremental: callers apply each new message once, in arrival order, to the
// snapshot produced by the previous message. Thought updates are upserts and
// therefore idempotent under replay; code and code_segment appends are not,
// so callers track a high-water mark into the message log instead of
// re-folding from zero.
//
// The zero Reducer is not usable; construct one with NewReducer.
type Reducer struct {
	matcher Matcher
}

// NewReducer returns a reducer using the given completion matcher, or the
// default bilingual keyword matcher when nil.
func NewReducer(matcher Matcher) *Reducer {
	if matcher == nil {
		matcher = DefaultMatcher()
	}
	return &Reducer{matcher: matcher}
}

// Apply folds one message into the snapshot and returns the successor
// snapshot. The input snapshot is never mutated. Messages with tags the
// reducer does not model (plan, and anything future) leave the snapshot
// unchanged.
func (r *Reducer) Apply(s Snapshot, msg events.Message) Snapshot {
	switch msg.Type {
	case events.TypeThought:
		return r.applyThought(s, msg.Content)

	case events.TypeSubtitle:
		return r.completeMatching(s, events.TypeSubtitle)

	case events.TypeCode:
		s.Code += msg.Content
		return s

	case events.TypeCodeSegment:
		if msg.Segment == nil {
			return s
		}
		return r.applySegment(s, *msg.Segment)

	case events.TypeSegmentsComplete:
		return r.applyBatch(s, msg.Segments)

	case events.TypeCodeDone:
		return r.completeMatching(s, events.TypeCodeDone)

	case events.TypeTimeline:
		s.Timeline = msg.Timeline
		return s

	case events.TypeDone:
		s.Status = StatusCompleted
		s.Thoughts = completeAll(s.Thoughts)
		return s

	case events.TypeError:
		s.Status = StatusError
		s.Err = msg.ErrMsg
		return s
	}

	// Unknown or informational tags fall through untouched; forward
	// compatibility over strictness.
	return s
}

// Reduce folds a slice of messages in order, starting from s.
func (r *Reducer) Reduce(s Snapshot, msgs []events.Message) Snapshot {
	for _, m := range msgs {
		s = r.Apply(s, m)
	}
	return s
}

// applyThought upserts a step keyed by its exact text. Re-asserting an
// existing step resets it to processing rather than duplicating it.
func (r *Reducer) applyThought(s Snapshot, text string) Snapshot {
	thoughts := cloneThoughts(s.Thoughts)
	for i := range thoughts {
		if thoughts[i].Text == text {
			thoughts[i].Status = StepProcessing
			s.Thoughts = thoughts
			return s
		}
	}
	s.Thoughts = append(thoughts, ThoughtStep{Text: text, Status: StepProcessing})
	return s
}

// completeMatching marks every step matching the trigger's keyword set as
// complete. This is a broadcast update; zero matches is a no-op.
func (r *Reducer) completeMatching(s Snapshot, trigger events.Type) Snapshot {
	if len(s.Thoughts) == 0 {
		return s
	}
	thoughts := cloneThoughts(s.Thoughts)
	for i := range thoughts {
		if r.matcher.Matches(trigger, thoughts[i].Text) {
			thoughts[i].Status = StepComplete
		}
	}
	s.Thoughts = thoughts
	return s
}

func (r *Reducer) applySegment(s Snapshot, seg timeline.Segment) Snapshot {
	segments := make([]timeline.Segment, len(s.Segments), len(s.Segments)+1)
	copy(segments, s.Segments)
	s.Segments = append(segments, seg)
	if len(s.Segments) == 1 {
		s.ActiveSeg = 0
		s.Code = seg.Code
	}
	return s
}

// applyBatch replaces the whole segment list; the batch is authoritative and
// supersedes anything accumulated incrementally.
func (r *Reducer) applyBatch(s Snapshot, batch []timeline.Segment) Snapshot {
	s.Segments = append([]timeline.Segment(nil), batch...)
	if len(s.Segments) > 0 {
		s.ActiveSeg = 0
		s.Code = s.Segments[0].Code
	} else {
		s.ActiveSeg = -1
	}
	return s
}

func completeAll(in []ThoughtStep) []ThoughtStep {
	out := cloneThoughts(in)
	for i := range out {
		out[i].Status = StepComplete
	}
	return out
}
