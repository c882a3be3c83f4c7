package commands

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/draftforge/draftforge/artifact"
)

func newPurgeCmd(root *rootOptions) *cobra.Command {
	var (
		kindNames []string
		dryRun    bool
	)

	cmd := &cobra.Command{
		Use:   "purge <pattern>...",
		Short: "Delete stored artifacts for slugs matching a glob",
		Long: `Delete artifacts for every slug matching one of the glob patterns
(doublestar syntax, matched against the slug). With --kind only those
kinds' revisions are removed; later runs re-execute anything derived
from them.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, p := range args {
				if !doublestar.ValidatePattern(p) {
					return fmt.Errorf("invalid pattern %q", p)
				}
			}
			kinds := make([]artifact.Kind, 0, len(kindNames))
			for _, name := range kindNames {
				kind, err := artifact.ParseKind(name)
				if err != nil {
					return err
				}
				kinds = append(kinds, kind)
			}

			ctx := cmd.Context()
			env, err := buildStoreEnv(root)
			if err != nil {
				return err
			}
			defer env.Close()

			slugs, err := env.Store.Slugs(ctx)
			if err != nil {
				return err
			}
			matched := matchSlugs(slugs, args)
			if len(matched) == 0 {
				fmt.Println("no slugs match")
				return nil
			}

			if dryRun {
				for _, slug := range matched {
					fmt.Println(slug)
				}
				fmt.Printf("%d slug(s) would be purged\n", len(matched))
				return nil
			}

			total := 0
			for _, slug := range matched {
				removed, err := env.Store.Delete(ctx, slug, kinds...)
				if err != nil {
					return err
				}
				total += removed
				env.Logger.Info("purged", "slug", slug, "artifacts", removed)
			}
			fmt.Printf("purged %d artifact(s) across %d slug(s)\n", total, len(matched))
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&kindNames, "kind", nil, "limit deletion to these artifact kinds (repeatable)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list matching slugs without deleting")
	return cmd
}

// matchSlugs returns the slugs matching any of the patterns, input order
// preserved.
func matchSlugs(slugs, patterns []string) []string {
	var matched []string
	for _, slug := range slugs {
		for _, p := range patterns {
			if ok, err := doublestar.Match(p, slug); err == nil && ok {
				matched = append(matched, slug)
				break
			}
		}
	}
	return matched
}
