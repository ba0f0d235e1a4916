package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldSessionID = "session_id"
	FieldRequestID = "request_id"
	FieldVideoURL  = "video_url"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Stream fields
	FieldEventType = "event_type"
	FieldSegment   = "segment_index"

	// Execution fields
	FieldRunner  = "runner"
	FieldOutcome = "outcome"

	// Path / URL fields
	FieldPath    = "path"
	FieldBaseURL = "base_url"
)
