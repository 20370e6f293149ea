package enhance

import (
	"strings"
	"unicode"

	"reelsmith/internal/timeline"
)

const (
	defaultMood       = "professional"
	sentencesPerScene = 2
	keywordsPerScene  = 4
	minKeywordLength  = 5
)

var stopwords = map[string]struct{}{
	"about": {}, "after": {}, "again": {}, "being": {}, "because": {},
	"before": {}, "between": {}, "could": {}, "every": {}, "going": {},
	"their": {}, "there": {}, "these": {}, "thing": {}, "things": {},
	"think": {}, "those": {}, "through": {}, "under": {}, "where": {},
	"which": {}, "while": {}, "would": {}, "should": {}, "really": {},
	"other": {}, "never": {}, "always": {}, "still": {}, "might": {},
}

// enhanceHeuristically builds a deterministic scene plan: the script text is
// kept verbatim, sentences are grouped two per scene, and keywords come from
// longer non-stopword words.
func (e *Enhancer) enhanceHeuristically(script string) Result {
	sentences := splitSentences(script)
	sceneSeconds := e.cfg.sceneSeconds()
	maxScenes := e.cfg.maxScenes()

	var scenes []timeline.Scene
	for start := 0; start < len(sentences); start += sentencesPerScene {
		end := start + sentencesPerScene
		if end > len(sentences) {
			end = len(sentences)
		}
		text := strings.Join(sentences[start:end], " ")
		keywords := extractKeywords(text, keywordsPerScene)
		scenes = append(scenes, timeline.Scene{
			Text:              text,
			VisualDescription: text,
			VisualKeywords:    keywords,
			Duration:          sceneSeconds,
		})
		if len(scenes) == maxScenes {
			break
		}
	}
	if len(scenes) == 0 {
		scenes = append(scenes, timeline.Scene{
			Text:              script,
			VisualDescription: script,
			VisualKeywords:    extractKeywords(script, keywordsPerScene),
			Duration:          sceneSeconds,
		})
	}

	return Result{
		EnhancedText:     script,
		Scenes:           scenes,
		Keywords:         extractKeywords(script, keywordsPerScene*2),
		Mood:             defaultMood,
		DurationEstimate: float64(len(scenes)) * sceneSeconds,
	}
}

// splitSentences cuts on sentence-ending punctuation, keeping the terminator
// with its sentence.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder
	for _, r := range text {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if sentence := strings.TrimSpace(current.String()); sentence != "" {
				sentences = append(sentences, sentence)
			}
			current.Reset()
		}
	}
	if sentence := strings.TrimSpace(current.String()); sentence != "" {
		sentences = append(sentences, sentence)
	}
	return sentences
}

// extractKeywords picks the first limit distinct lowercase words longer than
// four characters that are not stopwords.
func extractKeywords(text string, limit int) []string {
	seen := make(map[string]struct{})
	var keywords []string
	for _, field := range strings.Fields(text) {
		word := strings.ToLower(strings.TrimFunc(field, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r)
		}))
		if len(word) < minKeywordLength {
			continue
		}
		if _, stop := stopwords[word]; stop {
			continue
		}
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		keywords = append(keywords, word)
		if len(keywords) == limit {
			break
		}
	}
	return keywords
}
