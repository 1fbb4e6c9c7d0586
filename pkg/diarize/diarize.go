// Package diarize defines the speaker-attributed segment model produced by
// upstream diarization and the heuristic for picking a representative
// segment per speaker.
//
// Segments arrive already split per speaker turn. For voice identity we want
// one clean stretch of speech per speaker: long enough for a stable
// embedding, short enough that extraction stays cheap. SelectBest implements
// that choice.
package diarize

import "sort"

// Segment is one speaker-attributed time range within a meeting recording.
type Segment struct {
	// SpeakerID is the diarization-local speaker label (e.g. "SPEAKER_00").
	// It is only meaningful within a single meeting.
	SpeakerID string `json:"speaker_id"`

	// Start is the segment start time in seconds.
	Start float64 `json:"start"`

	// End is the segment end time in seconds. Always > Start.
	End float64 `json:"end"`

	// Text is the transcribed text for this segment, if available.
	Text string `json:"text,omitempty"`
}

// Duration returns the segment length in seconds.
func (s Segment) Duration() float64 {
	return s.End - s.Start
}

// Segment selection bounds, in seconds.
const (
	// MinSegmentDuration is the shortest segment considered usable for
	// embedding extraction. Shorter turns tend to produce unstable vectors.
	MinSegmentDuration = 3.0

	// PreferredSegmentDuration is the target sample length. Audio beyond
	// this does not materially improve the embedding but costs extraction
	// time, so SelectBest aims for the segment closest to it.
	PreferredSegmentDuration = 10.0
)

// BySpeaker groups segments by speaker ID and returns the speaker IDs in
// sorted order. The sorted ID slice gives callers a deterministic iteration
// order over the map.
func BySpeaker(segments []Segment) (map[string][]Segment, []string) {
	groups := make(map[string][]Segment)
	for _, seg := range segments {
		groups[seg.SpeakerID] = append(groups[seg.SpeakerID], seg)
	}
	ids := make([]string, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return groups, ids
}

// SelectBest picks the segment to sample for one speaker's voice identity.
//
// Segments of at least MinSegmentDuration are preferred; among those the one
// whose duration is closest to PreferredSegmentDuration wins. When no
// segment clears the minimum, the longest segment is returned anyway — a
// degraded sample beats no sample. Ties go to the earliest segment in start
// order, which keeps the result independent of input ordering.
//
// ok is false only when segments is empty.
func SelectBest(segments []Segment) (best Segment, ok bool) {
	if len(segments) == 0 {
		return Segment{}, false
	}

	sorted := make([]Segment, len(segments))
	copy(sorted, segments)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].End < sorted[j].End
	})

	found := false
	bestDist := 0.0
	for _, seg := range sorted {
		if seg.Duration() < MinSegmentDuration {
			continue
		}
		dist := seg.Duration() - PreferredSegmentDuration
		if dist < 0 {
			dist = -dist
		}
		if !found || dist < bestDist {
			best = seg
			bestDist = dist
			found = true
		}
	}
	if found {
		return best, true
	}

	// Nothing clears the minimum: fall back to the longest segment.
	best = sorted[0]
	for _, seg := range sorted[1:] {
		if seg.Duration() > best.Duration() {
			best = seg
		}
	}
	return best, true
}
