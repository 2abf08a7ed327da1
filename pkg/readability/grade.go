// Package readability provides the grade-level scoring contract used by the
// readability mismatch detector. The detector only depends on ScoreFunc;
// Grade is the default scorer wired in by the CLI.
package readability

import (
	"strings"
	"unicode"
)

// ScoreFunc maps a text to a grade-level readability score.
type ScoreFunc func(text string) float64

// Grade returns the Flesch-Kincaid grade level of the text.
// Empty or word-free text scores 0.
func Grade(text string) float64 {
	words := fields(text)
	if len(words) == 0 {
		return 0
	}

	sentences := countSentences(text)
	syllables := 0
	for _, w := range words {
		syllables += countSyllables(w)
	}

	nw := float64(len(words))
	return 0.39*(nw/float64(sentences)) + 11.8*(float64(syllables)/nw) - 15.59
}

func fields(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '\''
	})
}

func countSentences(text string) int {
	n := 0
	for _, r := range text {
		switch r {
		case '.', '!', '?':
			n++
		}
	}
	if n == 0 {
		return 1
	}
	return n
}

// countSyllables approximates syllables as vowel groups, with a silent-e
// adjustment. Always at least 1 for a non-empty word.
func countSyllables(word string) int {
	word = strings.ToLower(word)
	count := 0
	prevVowel := false
	for _, r := range word {
		v := strings.ContainsRune("aeiouy", r)
		if v && !prevVowel {
			count++
		}
		prevVowel = v
	}
	if strings.HasSuffix(word, "e") && !strings.HasSuffix(word, "le") && count > 1 {
		count--
	}
	if count == 0 {
		count = 1
	}
	return count
}
