package readability

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGrade(t *testing.T) {
	assert.Equal(t, 0.0, Grade(""))
	assert.Equal(t, 0.0, Grade("   \n\t "))

	simple := Grade("The cat sat. The dog ran. It was fun.")
	complex := Grade("Notwithstanding considerable epistemological objections, the methodology demonstrated unprecedented reproducibility characteristics.")
	assert.Less(t, simple, complex)
}

func TestGrade_Deterministic(t *testing.T) {
	text := "Some moderately involved sentence, written for testing purposes."
	assert.Equal(t, Grade(text), Grade(text))
}

func TestCountSyllables(t *testing.T) {
	tests := map[string]int{
		"cat":      1,
		"hello":    2,
		"syllable": 3,
		"a":        1,
		"rhythm":   1,
	}
	for word, want := range tests {
		assert.Equal(t, want, countSyllables(word), word)
	}
}
