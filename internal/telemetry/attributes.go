// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent spans across the client.
const (
	SessionIDKey = "session.id"
	VideoURLKey  = "session.video_url"
	LanguageKey  = "session.language"

	StreamEventTypeKey = "stream.event_type"
	StreamEventsKey    = "stream.events"

	ExecRunnerKey   = "exec.runner"
	ExecOutcomeKey  = "exec.outcome"
	ExecDurationKey = "exec.duration_ms"

	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// SessionAttributes creates session-scoped span attributes.
func SessionAttributes(sessionID, videoURL, language string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(SessionIDKey, sessionID),
		attribute.String(VideoURLKey, videoURL),
	}
	if language != "" {
		attrs = append(attrs, attribute.String(LanguageKey, language))
	}
	return attrs
}

// ExecutionAttributes creates sandbox execution span attributes.
func ExecutionAttributes(runner, outcome string, durationMS int64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(ExecRunnerKey, runner),
		attribute.String(ExecOutcomeKey, outcome),
		attribute.Int64(ExecDurationKey, durationMS),
	}
}

// ErrorAttributes creates error span attributes.
func ErrorAttributes(errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
