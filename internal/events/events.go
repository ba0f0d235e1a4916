// Package events defines the typed session event union carried on the
// backend's server-sent event stream, and the decoding from named wire
// events into messages the reducer can fold.
package events

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/morahq/mora/internal/timeline"
)

// Type tags one unit on the wire. The wire event name equals the tag.
type Type string

const (
	TypeThought          Type = "thought"
	TypeSubtitle         Type = "subtitle"
	TypePlan             Type = "plan"
	TypeCode             Type = "code"
	TypeCodeSegment      Type = "code_segment"
	TypeSegmentsComplete Type = "segments_complete"
	TypeCodeDone         Type = "code_done"
	TypeTimeline         Type = "timeline"
	TypeDone             Type = "done"
	TypeError            Type = "error"
)

// ErrUnknownType marks a wire event whose name is not part of the union.
// Callers drop such messages instead of failing the stream.
var ErrUnknownType = errors.New("events: unknown event type")

// Message is one decoded unit on the wire. Exactly the fields implied by the
// tag are populated; the rest stay zero.
type Message struct {
	Type     Type
	Content  string             // thought, code
	Segment  *timeline.Segment  // code_segment
	Segments []timeline.Segment // segments_complete
	Timeline *timeline.Timeline // timeline
	ErrMsg   string             // error
	Raw      json.RawMessage    // original payload, for diagnostics
}

// Terminal reports whether the message ends the session stream.
func (m Message) Terminal() bool {
	return m.Type == TypeDone || m.Type == TypeError
}

type contentPayload struct {
	Content string `json:"content"`
}

type segmentsPayload struct {
	Segments      []timeline.Segment `json:"segments"`
	TotalSegments int                `json:"totalSegments"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// Decode turns a named wire event and its JSON data field into a typed
// Message. done and code_done carry no required payload; every other tag
// expects a JSON object. Unrecognized names return ErrUnknownType.
func Decode(name string, data []byte) (Message, error) {
	msg := Message{Type: Type(name), Raw: append(json.RawMessage(nil), data...)}

	switch msg.Type {
	case TypeThought, TypeCode:
		var p contentPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return Message{}, fmt.Errorf("events: decode %s payload: %w", name, err)
		}
		msg.Content = p.Content

	case TypeSubtitle, TypePlan:
		// Payload is informational only; the tag itself is the signal.
		if len(data) > 0 && !json.Valid(data) {
			return Message{}, fmt.Errorf("events: decode %s payload: invalid JSON", name)
		}

	case TypeCodeSegment:
		var seg timeline.Segment
		if err := json.Unmarshal(data, &seg); err != nil {
			return Message{}, fmt.Errorf("events: decode code_segment payload: %w", err)
		}
		msg.Segment = &seg

	case TypeSegmentsComplete:
		var p segmentsPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return Message{}, fmt.Errorf("events: decode segments_complete payload: %w", err)
		}
		msg.Segments = p.Segments

	case TypeTimeline:
		var tl timeline.Timeline
		if err := json.Unmarshal(data, &tl); err != nil {
			return Message{}, fmt.Errorf("events: decode timeline payload: %w", err)
		}
		msg.Timeline = &tl

	case TypeError:
		var p errorPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return Message{}, fmt.Errorf("events: decode error payload: %w", err)
		}
		if p.Message == "" {
			p.Message = "unknown error"
		}
		msg.ErrMsg = p.Message

	case TypeDone, TypeCodeDone:
		// No payload required.

	default:
		return Message{}, fmt.Errorf("%w: %q", ErrUnknownType, name)
	}

	return msg, nil
}
