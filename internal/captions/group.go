package captions

import (
	"strings"

	"reelsmith/internal/services/whisper"
	"reelsmith/internal/timeline"
)

// groupWords folds word timings into caption phrases. A phrase closes at
// maxWords or at sentence-ending punctuation, whichever comes first.
func groupWords(words []whisper.Word, maxWords int) []timeline.Caption {
	var captions []timeline.Caption
	var phrase []string
	var start, end float64

	flush := func() {
		if len(phrase) == 0 {
			return
		}
		captions = append(captions, timeline.Caption{
			Text:  strings.Join(phrase, " "),
			Start: start,
			End:   end,
		})
		phrase = phrase[:0]
	}

	for _, word := range words {
		text := strings.TrimSpace(word.Word)
		if text == "" {
			continue
		}
		if len(phrase) == 0 {
			start = word.Start
		}
		phrase = append(phrase, text)
		end = word.End
		if len(phrase) >= maxWords || endsPhrase(text) {
			flush()
		}
	}
	flush()
	return captions
}

func endsPhrase(word string) bool {
	trimmed := strings.TrimRight(word, `"')`)
	if trimmed == "" {
		return false
	}
	switch trimmed[len(trimmed)-1] {
	case '.', '!', '?', ',', ';', ':':
		return true
	}
	return false
}

// scriptTimed spreads each scene's text evenly across its audio window in
// chunks of maxWords. Used when no transcript is available.
func scriptTimed(scenes []timeline.Scene, maxWords int) []timeline.Caption {
	var captions []timeline.Caption
	for _, scene := range scenes {
		fields := strings.Fields(scene.Text)
		if len(fields) == 0 {
			continue
		}
		window := scene.AudioEnd - scene.AudioStart
		if window <= 0 {
			window = scene.Duration
		}
		if window <= 0 {
			continue
		}

		var chunks []string
		for i := 0; i < len(fields); i += maxWords {
			end := i + maxWords
			if end > len(fields) {
				end = len(fields)
			}
			chunks = append(chunks, strings.Join(fields[i:end], " "))
		}

		per := window / float64(len(chunks))
		for i, chunk := range chunks {
			start := scene.AudioStart + per*float64(i)
			end := scene.AudioStart + per*float64(i+1)
			if i == len(chunks)-1 {
				end = scene.AudioStart + window
			}
			captions = append(captions, timeline.Caption{Text: chunk, Start: start, End: end})
		}
	}
	return captions
}
