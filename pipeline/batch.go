package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/draftforge/draftforge/keyword"
)

// BatchItem is one keyword's outcome within a batch run.
type BatchItem struct {
	Keyword string
	Result  *RunResult
	Err     error
}

// RunBatch drives the pipeline for each keyword with bounded parallelism
// (pipeline.batch_concurrency). Results come back in input order.
// Keywords that slugify to an already-seen slug are rejected up front so
// two runs never race on the same artifact chain. A cancelled context
// fails keywords that have not started; in-flight runs stop at their next
// stage boundary.
func (p *Pipeline) RunBatch(ctx context.Context, keywords []string, opts Options) []BatchItem {
	items := make([]BatchItem, len(keywords))
	seen := make(map[string]int, len(keywords))

	limit := p.cfg.Pipeline.BatchConcurrency
	if limit < 1 {
		limit = 1
	}
	sem := make(chan struct{}, limit)

	var wg sync.WaitGroup
	for i, raw := range keywords {
		items[i].Keyword = raw

		slug := keyword.Slugify(raw)
		if slug != "" {
			if first, dup := seen[slug]; dup {
				items[i].Err = fmt.Errorf("duplicate of keyword %q", keywords[first])
				continue
			}
			seen[slug] = i
		}

		wg.Add(1)
		go func(i int, raw string) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				items[i].Err = ctx.Err()
				return
			}
			defer func() { <-sem }()

			if err := ctx.Err(); err != nil {
				items[i].Err = err
				return
			}
			res, err := p.Run(ctx, raw, opts)
			items[i].Result = res
			items[i].Err = err
		}(i, raw)
	}
	wg.Wait()
	return items
}
