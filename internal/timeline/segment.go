// Package timeline holds the video-time-to-code-segment domain: segment
// types shared across the module and the playback lookup index.
package timeline

import (
	"strconv"
	"strings"
)

// Segment is a contiguous slice of the generated program tied to a
// video-time window. Indexes are assigned by the producer; windows are
// expected to be non-overlapping but nothing here depends on that.
type Segment struct {
	Index     int     `json:"segmentIndex"`
	StartTime float64 `json:"startTime"`
	EndTime   float64 `json:"endTime"`
	Summary   string  `json:"summary"`
	Code      string  `json:"code"`
	CodeLines string  `json:"codeLines,omitempty"`
	TimeRange string  `json:"timeRange,omitempty"`
}

// Timeline is the legacy wire representation, kept for backward
// compatibility with older backends that never emit code_segment events.
type Timeline struct {
	Segments []LegacySegment `json:"segments"`
}

// LegacySegment mirrors the old timeline event shape.
type LegacySegment struct {
	StartTime   float64 `json:"startTime"`
	EndTime     float64 `json:"endTime"`
	Description string  `json:"description"`
	CodeLines   string  `json:"codeLines,omitempty"`
	Code        string  `json:"code,omitempty"`
}

// LineRange is an inclusive editor highlight range parsed from a
// "start-end" codeLines string.
type LineRange struct {
	Start int
	End   int
}

// ParseLineRange parses a "start-end" line-range string. Both bounds must be
// positive integers with start <= end; anything else reports no range.
func ParseLineRange(s string) (LineRange, bool) {
	start, end, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return LineRange{}, false
	}
	lo, err := strconv.Atoi(strings.TrimSpace(start))
	if err != nil {
		return LineRange{}, false
	}
	hi, err := strconv.Atoi(strings.TrimSpace(end))
	if err != nil {
		return LineRange{}, false
	}
	if lo <= 0 || hi < lo {
		return LineRange{}, false
	}
	return LineRange{Start: lo, End: hi}, true
}
