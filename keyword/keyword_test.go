package keyword

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"how to restore antique lamps", "how-to-restore-antique-lamps"},
		{"Best Wireless Headphones 2025", "best-wireless-headphones-2025"},
		{"buy canon r6 mark ii", "buy-canon-r6-mark-ii"},
		{"Multiple   spaces", "multiple-spaces"},
		{"already-slugified", "already-slugified"},
		{"UPPERCASE", "uppercase"},
		{"special!@#$%chars", "specialchars"},
		{"", ""},
		{"   leading and trailing   ", "leading-and-trailing"},
		{"under_scored_words", "under-scored-words"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, Slugify(tt.input))
		})
	}
}

func TestSlugifyIdempotent(t *testing.T) {
	inputs := []string{
		"how to restore antique lamps",
		"Best Wireless Headphones 2025",
		"quantum chromodynamics",
		"c++ vs rust: which to learn?",
	}
	for _, in := range inputs {
		once := Slugify(in)
		require.Equal(t, once, Slugify(once), "Slugify must be idempotent for %q", in)
	}
}

func TestSlugifyLengthBound(t *testing.T) {
	long := "a very long keyword phrase that keeps going and going and going until it far exceeds the maximum slug length"
	slug := Slugify(long)
	assert.LessOrEqual(t, len(slug), maxSlugLen)
	assert.NotEqual(t, byte('-'), slug[len(slug)-1])
}

func TestNew(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		kw, err := New("  How to Restore Antique Lamps ")
		require.NoError(t, err)
		assert.Equal(t, "How to Restore Antique Lamps", kw.Raw)
		assert.Equal(t, "how-to-restore-antique-lamps", kw.Slug)
	})

	t.Run("empty rejected", func(t *testing.T) {
		_, err := New("")
		assert.ErrorIs(t, err, ErrEmptyKeyword)

		_, err = New("   ")
		assert.ErrorIs(t, err, ErrEmptyKeyword)
	})

	t.Run("punctuation only rejected", func(t *testing.T) {
		_, err := New("!!! ???")
		assert.ErrorIs(t, err, ErrEmptyKeyword)
	})
}

func TestValidateSlug(t *testing.T) {
	require.NoError(t, ValidateSlug("how-to-restore-antique-lamps"))

	assert.ErrorIs(t, ValidateSlug(""), ErrEmptyKeyword)
	assert.ErrorIs(t, ValidateSlug("has/slash"), ErrInvalidSlug)
	assert.ErrorIs(t, ValidateSlug("dot..dot"), ErrInvalidSlug)
	assert.ErrorIs(t, ValidateSlug("Upper-Case"), ErrInvalidSlug)
	assert.ErrorIs(t, ValidateSlug("-leading"), ErrInvalidSlug)
	assert.ErrorIs(t, ValidateSlug("trailing-"), ErrInvalidSlug)
}

func TestTitleCase(t *testing.T) {
	kw, err := New("how to restore antique lamps")
	require.NoError(t, err)
	assert.Equal(t, "How To Restore Antique Lamps", kw.TitleCase())
}
