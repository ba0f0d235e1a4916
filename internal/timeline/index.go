package timeline

// Index maps a playback timestamp to the currently active code segment.
// Lookups are sticky: once a segment has been selected it stays selected
// through timing gaps until a different segment matches, so small holes in
// the timeline never flicker the UI back to "no segment".
//
// Index is not safe for concurrent use; it is owned by one consuming view.
type Index struct {
	segments []Segment
	active   int // position in segments, -1 when nothing selected yet
}

// NewIndex returns an empty index with no active segment.
func NewIndex() *Index {
	return &Index{active: -1}
}

// Reset replaces the segment list with an authoritative batch. A non-empty
// batch selects segment 0; an empty batch clears the selection.
func (x *Index) Reset(segments []Segment) {
	x.segments = append([]Segment(nil), segments...)
	if len(x.segments) > 0 {
		x.active = 0
	} else {
		x.active = -1
	}
}

// Append adds one incrementally received segment. The first segment overall
// is selected immediately.
func (x *Index) Append(seg Segment) {
	x.segments = append(x.segments, seg)
	if len(x.segments) == 1 {
		x.active = 0
	}
}

// Segments returns the current segment list in arrival order.
func (x *Index) Segments() []Segment {
	return x.segments
}

// Len reports the number of indexed segments.
func (x *Index) Len() int {
	return len(x.segments)
}

// Active returns the currently selected segment, if any.
func (x *Index) Active() (Segment, int, bool) {
	if x.active < 0 || x.active >= len(x.segments) {
		return Segment{}, -1, false
	}
	return x.segments[x.active], x.active, true
}

// Locate finds the segment covering playback time t and makes it the active
// selection. Bounds are inclusive on both ends so the final second of a
// segment still matches; on overlap the first segment in list order wins.
// When nothing matches, the previous selection is retained, or segment 0 is
// chosen if nothing was ever selected. The boolean reports whether any
// segment is active after the lookup.
func (x *Index) Locate(t float64) (Segment, int, bool) {
	if len(x.segments) == 0 {
		return Segment{}, -1, false
	}
	for i, seg := range x.segments {
		if t >= seg.StartTime && t <= seg.EndTime {
			x.active = i
			return seg, i, true
		}
	}
	if x.active < 0 {
		x.active = 0
	}
	return x.segments[x.active], x.active, true
}

// ActiveLines returns the highlighted editor line range of the active
// segment, when it carries one.
func (x *Index) ActiveLines() (LineRange, bool) {
	seg, _, ok := x.Active()
	if !ok || seg.CodeLines == "" {
		return LineRange{}, false
	}
	return ParseLineRange(seg.CodeLines)
}
