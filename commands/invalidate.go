package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/draftforge/draftforge/artifact"
)

func newInvalidateCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "invalidate <slug> <kind>",
		Short: "Mark artifacts derived from a kind as stale",
		Long: `Mark every artifact whose provenance chain includes the given kind
as stale for one slug. Nothing is deleted; stale artifacts stay
readable but the next run re-executes their stages instead of reusing
them.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := artifact.ParseKind(args[1])
			if err != nil {
				return err
			}

			env, err := buildStoreEnv(root)
			if err != nil {
				return err
			}
			defer env.Close()

			marked, err := env.Store.InvalidateDownstream(cmd.Context(), args[0], kind)
			if err != nil {
				return err
			}
			fmt.Printf("marked %d artifact(s) stale downstream of %s\n", marked, kind)
			return nil
		},
	}
}
