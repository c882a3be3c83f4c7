package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/draftforge/draftforge/artifact"
	"github.com/draftforge/draftforge/pipeline"
)

func newStatusCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status [slug]",
		Short: "Show stored artifacts",
		Long: `Without arguments, list every slug in the store. With a slug, show
the latest revision of each artifact kind plus the bundle verdict.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := buildStoreEnv(root)
			if err != nil {
				return err
			}
			defer env.Close()

			if len(args) == 0 {
				return renderSlugs(cmd.Context(), env)
			}
			return renderSlug(cmd.Context(), env, args[0])
		},
	}
}

func renderSlugs(ctx context.Context, env *Env) error {
	slugs, err := env.Store.Slugs(ctx)
	if err != nil {
		return err
	}
	if len(slugs) == 0 {
		fmt.Println("store is empty")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Slug", "Kinds", "Bundle", "Updated"})
	for _, slug := range slugs {
		ix, err := env.Store.Index(ctx, slug)
		if err != nil {
			return err
		}
		bundle := "-"
		if e := ix.Latest(artifact.KindBundle); e != nil {
			bundle = "rev " + strconv.Itoa(e.Revision)
		}
		t.AppendRow(table.Row{slug, len(ix.Entries), bundle, ix.UpdatedAt.Format(time.DateTime)})
	}
	t.Render()
	return nil
}

func renderSlug(ctx context.Context, env *Env, slug string) error {
	ix, err := env.Store.Index(ctx, slug)
	if err != nil {
		return err
	}
	if len(ix.Entries) == 0 {
		fmt.Printf("no artifacts for %s\n", slug)
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Kind", "Rev", "Created", "Mode", "Provider", "Stale"})
	for _, kind := range artifact.Kinds() {
		e := ix.Latest(kind)
		if e == nil {
			continue
		}
		stale := ""
		if e.Stale {
			stale = "stale"
		}
		t.AppendRow(table.Row{kind, e.Revision, e.CreatedAt.Format(time.DateTime), e.Mode, e.Provider, stale})
	}
	t.Render()

	bundle, err := env.Store.Latest(ctx, slug, artifact.KindBundle)
	if errors.Is(err, artifact.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	var b pipeline.Bundle
	if err := json.Unmarshal(bundle.Payload, &b); err != nil {
		return fmt.Errorf("unmarshal bundle: %w", err)
	}
	verdict := fmt.Sprintf("bundle: score %d, iteration %d", b.Score, b.Iteration)
	if bundle.Stale {
		verdict += " (stale)"
	}
	fmt.Println(verdict)
	return nil
}
