package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/draftforge/draftforge/pipeline"
)

func newGenerateCmd(root *rootOptions) *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "generate <keyword>",
		Short: "Run the pipeline for one keyword",
		Long: `Run the full pipeline for one keyword: research fan-out, intent,
outline, draft, scoring, images, bundle. Stages whose inputs are
unchanged reuse stored artifacts unless --force-api is set.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			env, err := buildEnv(ctx, root)
			if err != nil {
				return err
			}
			defer env.Close()

			res, runErr := env.Pipeline.Run(ctx, args[0], flags.options())
			if res != nil {
				renderRun(res)
			}
			return runErr
		},
	}
	flags.register(cmd)
	return cmd
}

// runFlags maps one to one onto pipeline.Options. Zero values defer to
// the configured defaults.
type runFlags struct {
	forceAPI    bool
	skipImage   bool
	skipIntent  bool
	intentOnly  bool
	minScore    int
	imageCount  int
	noAutoImage bool
}

func (f *runFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.BoolVar(&f.forceAPI, "force-api", false, "re-execute every stage even when stored artifacts match")
	fl.BoolVar(&f.skipImage, "skip-image", false, "drop the image stage from the run")
	fl.BoolVar(&f.skipIntent, "skip-intent", false, "reuse the latest stored intent profile")
	fl.BoolVar(&f.intentOnly, "intent-only", false, "stop after writing the intent profile")
	fl.IntVar(&f.minScore, "min-score", 0, "refinement score floor, 1-100 (default from config)")
	fl.IntVar(&f.imageCount, "image-count", 0, "number of planned images, 1-10 (default from config)")
	fl.BoolVar(&f.noAutoImage, "no-auto-image", false, "ignore the scorer's image count recommendation")
}

func (f *runFlags) options() pipeline.Options {
	return pipeline.Options{
		ForceAPI:    f.forceAPI,
		SkipImage:   f.skipImage,
		SkipIntent:  f.skipIntent,
		IntentOnly:  f.intentOnly,
		MinScore:    f.minScore,
		ImageCount:  f.imageCount,
		NoAutoImage: f.noAutoImage,
	}
}

// renderRun prints the per-stage table followed by the run verdict.
// Failed runs still get the table so partial progress is visible.
func renderRun(res *pipeline.RunResult) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Stage", "Status", "Rev", "Mode", "Attempts", "Duration"})
	for _, st := range res.Stages {
		t.AppendRow(table.Row{st.Kind, st.Status, st.Revision, st.Mode, st.Attempts, st.Duration.Round(time.Millisecond)})
	}
	t.Render()

	switch {
	case res.State == pipeline.StateDone && res.Score > 0:
		fmt.Printf("done: %s scored %d after %d iteration(s)\n", res.Slug, res.Score, res.Iteration)
	case res.State == pipeline.StateDone:
		fmt.Printf("done: %s\n", res.Slug)
	case res.Failure != nil:
		fmt.Printf("failed: %s at %s: %s\n", res.Slug, res.Failure.Stage, res.Failure.Message)
		for _, hint := range res.Failure.Remediation {
			fmt.Printf("  hint: %s\n", hint)
		}
	}
	for _, w := range res.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
}
