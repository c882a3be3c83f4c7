package outline_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftforge/draftforge/artifact"
	"github.com/draftforge/draftforge/intent"
	"github.com/draftforge/draftforge/keyword"
	"github.com/draftforge/draftforge/outline"
)

func mustKeyword(t *testing.T, raw string) keyword.Keyword {
	t.Helper()
	kw, err := keyword.New(raw)
	require.NoError(t, err)
	return kw
}

func profileFor(t *testing.T, raw string, in intent.Inputs) (*intent.Profile, keyword.Keyword) {
	t.Helper()
	kw := mustKeyword(t, raw)
	return intent.Analyze(kw, in), kw
}

func TestOutline_Validate(t *testing.T) {
	valid := &outline.Outline{
		Title: "How To Restore Antique Lamps: A Step-by-Step Guide",
		Sections: []outline.Section{
			{Heading: "Assessing the Lamp"},
			{Heading: "Cleaning and Rewiring"},
			{Heading: "Finishing Touches"},
		},
	}
	assert.NoError(t, valid.Validate())

	missingTitle := &outline.Outline{Sections: valid.Sections}
	err := missingTitle.Validate()
	require.Error(t, err)
	assert.True(t, artifact.IsValidationError(err))

	tooFewSections := &outline.Outline{
		Title:    "How To Restore Antique Lamps",
		Sections: valid.Sections[:2],
	}
	err = tooFewSections.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 3")
}

func TestOutline_Normalize(t *testing.T) {
	o := &outline.Outline{
		Title:           "  How To Restore Antique Lamps  ",
		MetaDescription: " trimmed ",
		Sections: []outline.Section{
			{Heading: " Assessing the Lamp ", ContentHint: " look for damage "},
			{Heading: "   "},
			{Heading: "Rewiring", Subsections: []outline.Section{
				{Heading: ""},
				{Heading: " Choosing a Cord "},
			}},
		},
		FAQ: []outline.FAQ{
			{Question: " Is rewiring safe? ", AnswerHint: " yes with care "},
			{Question: ""},
		},
		Keywords:   []string{" antique lamps ", ""},
		Categories: []string{"Guides", "  "},
	}

	o.Normalize()

	assert.Equal(t, "How To Restore Antique Lamps", o.Title)
	assert.Equal(t, "trimmed", o.MetaDescription)
	require.Len(t, o.Sections, 2)
	assert.Equal(t, "Assessing the Lamp", o.Sections[0].Heading)
	assert.Equal(t, "look for damage", o.Sections[0].ContentHint)
	require.Len(t, o.Sections[1].Subsections, 1)
	assert.Equal(t, "Choosing a Cord", o.Sections[1].Subsections[0].Heading)
	require.Len(t, o.FAQ, 1)
	assert.Equal(t, "Is rewiring safe?", o.FAQ[0].Question)
	assert.Equal(t, []string{"antique lamps"}, o.Keywords)
	assert.Equal(t, []string{"Guides"}, o.Categories)
}

func TestOutline_SectionCount(t *testing.T) {
	o := &outline.Outline{
		Sections: []outline.Section{
			{Heading: "A"},
			{Heading: "B", Subsections: []outline.Section{
				{Heading: "B1"},
				{Heading: "B2", Subsections: []outline.Section{{Heading: "B2a"}}},
			}},
		},
	}
	assert.Equal(t, 5, o.SectionCount())
}

func TestFallback_Invariants(t *testing.T) {
	profile, kw := profileFor(t, "how to restore antique lamps", intent.Inputs{
		Questions: []string{"Is it worth restoring an old lamp?", "What tools do I need?"},
		Subtopics: []string{"rewiring basics", "patina care"},
	})

	o := outline.Fallback(kw, profile)

	require.NoError(t, o.Validate())
	assert.Equal(t, "How To Restore Antique Lamps: A Step-by-Step Guide", o.Title)
	assert.GreaterOrEqual(t, len(o.Sections), 3)
	assert.NotEmpty(t, o.Introduction)
	assert.NotEmpty(t, o.ConclusionHint)
	assert.Contains(t, o.Keywords, "how to restore antique lamps")
	assert.Equal(t, []string{"Guides"}, o.Categories)

	// PAA questions become the FAQ
	require.Len(t, o.FAQ, 2)
	assert.Equal(t, "Is it worth restoring an old lamp?", o.FAQ[0].Question)
	assert.NotEmpty(t, o.FAQ[0].AnswerHint)

	// Subtopics land as subsections of a dedicated section
	last := o.Sections[len(o.Sections)-1]
	assert.Equal(t, "Beyond the Basics", last.Heading)
	require.Len(t, last.Subsections, 2)
	assert.Equal(t, "Rewiring Basics", last.Subsections[0].Heading)
}

func TestFallback_WithoutQuestions(t *testing.T) {
	profile, kw := profileFor(t, "quantum chromodynamics", intent.Inputs{})

	o := outline.Fallback(kw, profile)

	require.NoError(t, o.Validate())
	assert.Equal(t, "Quantum Chromodynamics: The Complete Guide", o.Title)
	require.Len(t, o.FAQ, 3)
	assert.Contains(t, o.FAQ[0].Question, "quantum chromodynamics")
}

func TestFallback_MetaDescriptionLength(t *testing.T) {
	for _, raw := range []string{
		"seo",
		"antique lamps",
		"how to restore antique lamps",
		"best wireless headphones 2025",
		"a very long keyword phrase about restoring antique victorian oil lamps at home",
	} {
		profile, kw := profileFor(t, raw, intent.Inputs{})
		o := outline.Fallback(kw, profile)

		assert.GreaterOrEqual(t, len(o.MetaDescription), 120, "keyword %q", raw)
		assert.LessOrEqual(t, len(o.MetaDescription), 160, "keyword %q", raw)
	}
}

func TestFallback_Deterministic(t *testing.T) {
	profile, kw := profileFor(t, "buy canon r6 mark ii", intent.Inputs{})

	first := outline.Fallback(kw, profile)
	second := outline.Fallback(kw, profile)
	assert.Equal(t, first, second)
}
