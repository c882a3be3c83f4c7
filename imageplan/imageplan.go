// Package imageplan turns a scored article into a set of image slots. The
// main slot is always present and pinned to slot zero; the remaining slots
// draw from a fixed aspect catalog in an order shuffled deterministically
// from the keyword slug. Generation failures fall back to stable
// placeholder URLs, so the set is always complete.
package imageplan

import "fmt"

// Aspect names the angle an image illustrates.
type Aspect string

const (
	AspectMain          Aspect = "main"
	AspectPractical     Aspect = "practical"
	AspectConceptual    Aspect = "conceptual"
	AspectInstructional Aspect = "instructional"
	AspectComparative   Aspect = "comparative"
	AspectTechnical     Aspect = "technical"
	AspectEmotional     Aspect = "emotional"
	AspectHistorical    Aspect = "historical"
	AspectFuturistic    Aspect = "futuristic"
	AspectStatistical   Aspect = "statistical"
)

// catalog lists the shuffleable aspects; main never shuffles.
var catalog = []Aspect{
	AspectPractical,
	AspectConceptual,
	AspectInstructional,
	AspectComparative,
	AspectTechnical,
	AspectEmotional,
	AspectHistorical,
	AspectFuturistic,
	AspectStatistical,
}

// Status tracks what happened to a slot.
type Status string

const (
	StatusPlanned     Status = "planned"
	StatusGenerated   Status = "generated"
	StatusPlaceholder Status = "placeholder"
)

// Item is one image slot of the set.
type Item struct {
	Slot      int    `json:"slot"`
	Aspect    Aspect `json:"aspect"`
	Prompt    string `json:"prompt"`
	TargetURL string `json:"target_url,omitempty"`
	Status    Status `json:"status"`
}

// Set is the stored image-set artifact payload.
type Set struct {
	Keyword string `json:"keyword"`
	Items   []Item `json:"items"`
}

// SingleImage is the one-image record older consumers still read. It
// mirrors the main slot of the set.
type SingleImage struct {
	Keyword string `json:"keyword"`
	Aspect  Aspect `json:"aspect"`
	Prompt  string `json:"prompt"`
	URL     string `json:"url"`
	Status  Status `json:"status"`
}

// Single projects the main slot into the legacy record.
func (s *Set) Single() *SingleImage {
	if len(s.Items) == 0 {
		return nil
	}
	main := s.Items[0]
	return &SingleImage{
		Keyword: s.Keyword,
		Aspect:  main.Aspect,
		Prompt:  main.Prompt,
		URL:     main.TargetURL,
		Status:  main.Status,
	}
}

// aspectPrompts shape the generation request per aspect. %s is the keyword.
var aspectPrompts = map[Aspect]string{
	AspectPractical:     "Hands-on photograph of %s in everyday use, natural light, shallow depth of field",
	AspectConceptual:    "Abstract conceptual illustration representing the idea of %s, minimal palette",
	AspectInstructional: "Step-by-step instructional diagram about %s, numbered stages, flat design",
	AspectComparative:   "Side-by-side comparison scene related to %s, two clear options, balanced framing",
	AspectTechnical:     "Detailed technical cutaway related to %s, labeled parts, engineering drawing style",
	AspectEmotional:     "Warm candid moment of a person engaging with %s, authentic emotion",
	AspectHistorical:    "Historical depiction of %s in its original era, archival photograph feel",
	AspectFuturistic:    "Futuristic vision of %s a decade from now, speculative concept art",
	AspectStatistical:   "Data visualization about %s, clean charts, editorial infographic style",
}

func promptFor(a Aspect, raw, title string) string {
	if a == AspectMain {
		return fmt.Sprintf("Wide hero image for the article %q: %s, clean editorial illustration, no text overlay", title, raw)
	}
	return fmt.Sprintf(aspectPrompts[a], raw)
}
