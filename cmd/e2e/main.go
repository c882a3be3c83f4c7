// Package main is the end-to-end walkthrough runner for the content
// pipeline. Each scenario wires a real pipeline over a throwaway store,
// drives it, and verifies what the run leaves behind.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/draftforge/draftforge/test/e2e/config"
	"github.com/draftforge/draftforge/test/e2e/scenarios"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		llmURL        string
		keepOutput    bool
		outputJSON    bool
		timeout       time.Duration
		globalTimeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "e2e [scenario]",
		Short: "Run draftforge end-to-end walkthroughs",
		Long: `Drive the content pipeline end-to-end.

Scenarios:
  full-run   one keyword through every stage, then verify artifacts,
             exports, prompt log, and metrics
  reuse      a rerun reuses stored artifacts; --force-api bumps revisions
  degraded   a dead LLM endpoint still yields a bundle via fallbacks

full-run and reuse need an OpenAI-compatible endpoint; start the
bundled mock first:

  mock-llm -fixtures test/e2e/fixtures

Run a single scenario by name, or everything with no argument.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := "all"
			if len(args) > 0 {
				name = args[0]
			}
			cfg := &config.Config{
				LLMURL:       llmURL,
				KeepOutput:   keepOutput,
				StageTimeout: timeout,
			}
			return run(name, cfg, outputJSON, globalTimeout)
		},
	}

	cmd.Flags().StringVar(&llmURL, "llm", config.DefaultLLMURL, "OpenAI-compatible LLM endpoint URL")
	cmd.Flags().BoolVar(&keepOutput, "keep-output", false, "Keep each scenario's artifact store for inspection")
	cmd.Flags().BoolVar(&outputJSON, "json", false, "Output results as JSON")
	cmd.Flags().DurationVar(&timeout, "timeout", config.DefaultStageTimeout, "Per-check timeout")
	cmd.Flags().DurationVar(&globalTimeout, "global-timeout", config.DefaultGlobalTimeout, "Timeout for the whole run")

	cmd.AddCommand(listCmd())

	return cmd
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available scenarios",
		Run: func(cmd *cobra.Command, args []string) {
			for _, s := range registry(config.DefaultConfig()) {
				fmt.Printf("  %-10s %s\n", s.Name(), s.Description())
			}
		},
	}
}

// registry returns the scenarios in run order.
func registry(cfg *config.Config) []scenarios.Scenario {
	return []scenarios.Scenario{
		scenarios.NewFullRunScenario(cfg),
		scenarios.NewReuseScenario(cfg),
		scenarios.NewDegradedScenario(cfg),
	}
}

func run(name string, cfg *config.Config, asJSON bool, globalTimeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), globalTimeout)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var toRun []scenarios.Scenario
	for _, s := range registry(cfg) {
		if name == "all" || s.Name() == name {
			toRun = append(toRun, s)
		}
	}
	if len(toRun) == 0 {
		return fmt.Errorf("unknown scenario %q, see `e2e list`", name)
	}

	results := make([]*scenarios.Result, 0, len(toRun))
	for _, s := range toRun {
		if ctx.Err() != nil {
			if !asJSON {
				fmt.Println("\ninterrupted")
			}
			break
		}
		results = append(results, runScenario(ctx, s, !asJSON))
	}

	if asJSON {
		printJSON(results)
	} else {
		printSummary(results)
	}

	failed := 0
	for _, r := range results {
		if !r.Success {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d scenarios failed", failed, len(results))
	}
	return nil
}

// runScenario walks one scenario through its lifecycle. Setup and
// execute failures produce a failed Result rather than aborting the
// remaining scenarios.
func runScenario(ctx context.Context, s scenarios.Scenario, verbose bool) *scenarios.Result {
	if verbose {
		fmt.Printf("\n--- %s: %s\n", s.Name(), s.Description())
	}

	if err := s.Setup(ctx); err != nil {
		r := scenarios.NewResult(s.Name())
		r.Error = fmt.Sprintf("setup: %v", err)
		r.AddError(r.Error)
		r.Complete()
		if verbose {
			fmt.Printf("  setup failed: %v\n", err)
		}
		return r
	}

	r, err := s.Execute(ctx)
	if err != nil {
		r = scenarios.NewResult(s.Name())
		r.Error = fmt.Sprintf("execute: %v", err)
		r.AddError(r.Error)
		r.Complete()
	}

	if terr := s.Teardown(ctx); terr != nil {
		r.AddWarning(fmt.Sprintf("teardown: %v", terr))
	}

	if verbose {
		printChecks(r)
	}
	return r
}

// printChecks lists each check with its outcome.
func printChecks(r *scenarios.Result) {
	for _, st := range r.Stages {
		mark := "ok"
		if !st.Success {
			mark = "FAIL"
		}
		fmt.Printf("  %-4s %s (%s)\n", mark, st.Name, st.Duration.Round(time.Millisecond))
		if st.Error != "" {
			fmt.Printf("       %s\n", st.Error)
		}
	}
	for _, w := range r.Warnings {
		fmt.Printf("  warn %s\n", w)
	}
}

// printSummary renders the pass/fail table the way the status command
// renders the store.
func printSummary(results []*scenarios.Result) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Scenario", "Result", "Duration", "Checks"})

	passed := 0
	for _, r := range results {
		outcome := "FAIL"
		if r.Success {
			outcome = "pass"
			passed++
		}
		t.AppendRow(table.Row{r.ScenarioName, outcome, r.Duration.Round(time.Millisecond), len(r.Stages)})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d/%d passed", passed, len(results)), "", ""})

	fmt.Println()
	t.Render()

	for _, r := range results {
		if !r.Success && r.Error != "" {
			fmt.Printf("%s: %s\n", r.ScenarioName, r.Error)
		}
	}
}

// printJSON emits the full results for machine consumption.
func printJSON(results []*scenarios.Result) {
	passed := 0
	for _, r := range results {
		if r.Success {
			passed++
		}
	}
	report := struct {
		Timestamp time.Time           `json:"timestamp"`
		Total     int                 `json:"total"`
		Passed    int                 `json:"passed"`
		Failed    int                 `json:"failed"`
		Results   []*scenarios.Result `json:"results"`
	}{time.Now(), len(results), passed, len(results) - passed, results}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		fmt.Fprintf(os.Stderr, "encode results: %v\n", err)
	}
}
