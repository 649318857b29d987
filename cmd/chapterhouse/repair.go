package main

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/chapterhouse/chapterhouse/pkg/store/dualsync"
)

func newRepairCommand(logger func() zerolog.Logger) *cobra.Command {
	var direction string

	cmd := &cobra.Command{
		Use:   "repair <category>",
		Short: "Replay one store's records through the dual-write path",
		Long: `Reconcile inter-store divergence for one category.

Dual writes accept partial failure without rollback, so a store that
rejected a write stays stale until repaired. This command reads every
record of the category from the source store and replays the batch through
the bulk save path, bringing both stores to the source's state.

Example:
  chapterhouse repair chapters
  chapterhouse repair users --direction durable-to-fast`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger()

			cat, err := categoryByName(args[0])
			if err != nil {
				return err
			}

			coord, cleanup, err := connect(cmd.Context(), log)
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := coord.Repair(cmd.Context(), cat, dualsync.Direction(direction))
			if err != nil {
				return fmt.Errorf("repair %s: %w", cat.Name, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(),
				"repaired %s: %d records, fast ok=%d, durable ok=%d failed=%d\n",
				cat.Name, result.Total, result.FastSucceeded(),
				result.DurableSucceeded(), result.DurableFailed())
			for key, keyErr := range result.DurableErrs {
				log.Warn().Err(keyErr).Str("key", key).Msg("durable store rejected record")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&direction, "direction", string(dualsync.FastToDurable),
		"repair direction: fast-to-durable or durable-to-fast")
	return cmd
}
