package imageplan

import (
	"context"
	"hash/fnv"
	"log/slog"
	"math/rand/v2"

	"github.com/draftforge/draftforge/artifact"
	"github.com/draftforge/draftforge/keyword"
	"github.com/draftforge/draftforge/provider"
)

const (
	defaultCount = 5
	maxCount     = 10
)

// Count resolves how many images to plan. A positive request wins;
// otherwise the scorer's recommendation applies, then the default. The
// result always lands in [1, 10].
func Count(requested, recommended int) int {
	n := requested
	if n <= 0 {
		n = recommended
	}
	if n <= 0 {
		n = defaultCount
	}
	if n > maxCount {
		n = maxCount
	}
	return n
}

// Planner plans image slots and drives their generation.
type Planner struct {
	service *provider.ImageService
	logger  *slog.Logger
}

// Option configures a Planner.
type Option func(*Planner)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Planner) {
		p.logger = logger
	}
}

// NewPlanner creates an image planner backed by the generation service.
func NewPlanner(service *provider.ImageService, opts ...Option) *Planner {
	p := &Planner{
		service: service,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Plan lays out the slots: main pinned first, then aspects drawn from the
// catalog in the slug's shuffled order. Planning is pure; the same keyword
// and count always yield the same slots and prompts.
func (p *Planner) Plan(kw keyword.Keyword, title string, count int) []Item {
	if count < 1 {
		count = 1
	}
	if count > maxCount {
		count = maxCount
	}

	items := make([]Item, 0, count)
	items = append(items, Item{
		Slot:   0,
		Aspect: AspectMain,
		Prompt: promptFor(AspectMain, kw.Raw, title),
		Status: StatusPlanned,
	})

	shuffled := shuffledAspects(kw.Slug)
	for i := 0; i < count-1; i++ {
		a := shuffled[i]
		items = append(items, Item{
			Slot:   i + 1,
			Aspect: a,
			Prompt: promptFor(a, kw.Raw, title),
			Status: StatusPlanned,
		})
	}
	return items
}

// Generate fills each slot through the image service. A failed slot falls
// back to its placeholder URL; only cancellation aborts. The returned mode
// is live when at least one image was actually generated.
func (p *Planner) Generate(ctx context.Context, kw keyword.Keyword, items []Item) (*Set, artifact.Mode, error) {
	out := make([]Item, len(items))
	copy(out, items)

	generated := 0
	for i := range out {
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}

		if !p.service.IsLive() {
			out[i].TargetURL = provider.PlaceholderURL(kw.Slug, out[i].Slot)
			out[i].Status = StatusPlaceholder
			continue
		}

		url, err := p.service.Generate(ctx, out[i].Prompt)
		if err != nil {
			if ctx.Err() != nil {
				return nil, "", ctx.Err()
			}
			p.logger.Warn("Image generation failed, using placeholder",
				"slug", kw.Slug,
				"slot", out[i].Slot,
				"aspect", out[i].Aspect,
				"error", err)
			out[i].TargetURL = provider.PlaceholderURL(kw.Slug, out[i].Slot)
			out[i].Status = StatusPlaceholder
			continue
		}

		out[i].TargetURL = url
		out[i].Status = StatusGenerated
		generated++
	}

	mode := artifact.ModeSynthetic
	if generated > 0 {
		mode = artifact.ModeLive
	}
	return &Set{Keyword: kw.Raw, Items: out}, mode, nil
}

// shuffledAspects permutes the catalog with a generator seeded from the
// slug, so slot order is stable per keyword without any shared state.
func shuffledAspects(slug string) []Aspect {
	h := fnv.New64a()
	h.Write([]byte(slug))
	seed := h.Sum64()

	r := rand.New(rand.NewPCG(seed, seed))
	out := make([]Aspect, len(catalog))
	for i, idx := range r.Perm(len(catalog)) {
		out[i] = catalog[idx]
	}
	return out
}
