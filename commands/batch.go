package commands

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/draftforge/draftforge/pipeline"
)

func newBatchCmd(root *rootOptions) *cobra.Command {
	flags := &runFlags{}
	var parallel int

	cmd := &cobra.Command{
		Use:   "batch <file>",
		Short: "Run the pipeline for every keyword in a file",
		Long: `Run the pipeline for every keyword in a file, one keyword per line.
Blank lines and lines starting with # are skipped. Keywords run with
bounded parallelism and results come back in input order.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open batch file: %w", err)
			}
			keywords, err := readKeywords(f)
			f.Close()
			if err != nil {
				return fmt.Errorf("read batch file: %w", err)
			}
			if len(keywords) == 0 {
				return fmt.Errorf("batch file %s contains no keywords", args[0])
			}

			env, err := buildEnv(ctx, root)
			if err != nil {
				return err
			}
			defer env.Close()

			if parallel > 0 {
				// RunBatch reads its concurrency from the shared config.
				env.Cfg.Pipeline.BatchConcurrency = parallel
			}

			items := env.Pipeline.RunBatch(ctx, keywords, flags.options())
			renderBatch(items)

			failed := 0
			for _, it := range items {
				if it.Err != nil {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d keywords failed", failed, len(items))
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVar(&parallel, "parallel", 0, "concurrent keyword runs (default from config)")
	return cmd
}

// readKeywords parses a batch file: one keyword per line, blank lines
// and #-comments skipped.
func readKeywords(r io.Reader) ([]string, error) {
	var keywords []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		keywords = append(keywords, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return keywords, nil
}

func renderBatch(items []pipeline.BatchItem) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Keyword", "Slug", "State", "Score", "Error"})
	for _, it := range items {
		var slug, state, score string
		if it.Result != nil {
			slug = it.Result.Slug
			state = string(it.Result.State)
			if it.Result.Score > 0 {
				score = strconv.Itoa(it.Result.Score)
			}
		}
		var errMsg string
		if it.Err != nil {
			errMsg = it.Err.Error()
			if state == "" {
				state = "rejected"
			}
		}
		t.AppendRow(table.Row{it.Keyword, slug, state, score, errMsg})
	}
	t.Render()
}
