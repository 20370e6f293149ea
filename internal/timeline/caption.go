package timeline

import (
	"fmt"
	"sort"
)

// Caption is one timed subtitle event. Times are seconds from the start of
// the narration track.
type Caption struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Style string  `json:"style,omitempty"`
}

// SortCaptions orders a track by start time.
func SortCaptions(captions []Caption) {
	sort.SliceStable(captions, func(i, j int) bool {
		return captions[i].Start < captions[j].Start
	})
}

// ValidateTrack checks the track invariants: events sorted ascending,
// non-overlapping, each with end after start, and none extending past the
// audio duration when it is known (audioDuration > 0).
func ValidateTrack(captions []Caption, audioDuration float64) error {
	for i, caption := range captions {
		if caption.End <= caption.Start {
			return fmt.Errorf("caption %d: end %.3f not after start %.3f", i, caption.End, caption.Start)
		}
		if audioDuration > 0 && caption.End > audioDuration+timeTolerance {
			return fmt.Errorf("caption %d: end %.3f exceeds audio duration %.3f", i, caption.End, audioDuration)
		}
		if i > 0 {
			prev := captions[i-1]
			if caption.Start < prev.Start {
				return fmt.Errorf("caption %d: starts before caption %d", i, i-1)
			}
			if caption.Start < prev.End-timeTolerance {
				return fmt.Errorf("caption %d: overlaps caption %d", i, i-1)
			}
		}
	}
	return nil
}

// timeTolerance absorbs floating point drift when comparing caption times.
const timeTolerance = 0.001
