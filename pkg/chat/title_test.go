package chat

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestDeriveTitle(t *testing.T) {
	tests := []struct {
		name       string
		candidates []string
		want       string
	}{
		{
			name:       "explicit title wins",
			candidates: []string{"Trip plans", "How fast does an elephant run?"},
			want:       "Trip plans",
		},
		{
			name:       "falls back to prompt",
			candidates: []string{"", "How fast does an elephant run?"},
			want:       "How fast does an elephant run?",
		},
		{
			name:       "blank title is skipped",
			candidates: []string{"   ", "hello"},
			want:       "hello",
		},
		{
			name:       "nothing usable",
			candidates: []string{"", " \n\t"},
			want:       DefaultTitle,
		},
		{
			name:       "no candidates",
			candidates: nil,
			want:       DefaultTitle,
		},
		{
			name:       "long ascii cut at 60",
			candidates: []string{strings.Repeat("a", 75)},
			want:       strings.Repeat("a", 60),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveTitle(tt.candidates...))
		})
	}
}

func TestDeriveTitleCountsRunesNotBytes(t *testing.T) {
	prompt := strings.Repeat("象", 70) // 3 bytes each

	title := DeriveTitle(prompt)

	assert.True(t, utf8.ValidString(title))
	assert.Equal(t, MaxTitleRunes, utf8.RuneCountInString(title))
}

func TestDeriveTitleKeepsShortMultibyte(t *testing.T) {
	prompt := "¿Qué tan rápido corre un elefante? 🐘"

	assert.Equal(t, prompt, DeriveTitle(prompt))
}
