package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/chapterhouse/chapterhouse/pkg/models"
	"github.com/chapterhouse/chapterhouse/pkg/store"
)

func newWatchCommand(logger func() zerolog.Logger) *cobra.Command {
	var key string

	cmd := &cobra.Command{
		Use:   "watch <category>",
		Short: "Tail change deliveries for a collection or a single record",
		Long: `Subscribe through the multiplexer and print every delivery.

Without --key the whole category is watched (durable-store live
subscription with a one-shot fast-store fallback on an initially empty
snapshot). With --key a single record is watched (fast-store subscription
with a durable-store fallback on absence).

Example:
  chapterhouse watch users
  chapterhouse watch chapters --key ch1`,
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

			out := cmd.OutOrStdout()
			var sub *store.Subscription
			if key == "" {
				sub = coord.SubscribeCollection(cmd.Context(), cat, func(records []models.Fields) {
					fmt.Fprintf(out, "%s: %d records\n", cat.Name, len(records))
					for _, record := range records {
						printRecord(out, record)
					}
				})
			} else {
				sub = coord.SubscribeDoc(cmd.Context(), cat, key, func(value models.Fields, ok bool) {
					if !ok {
						fmt.Fprintf(out, "%s/%s: absent\n", cat.Name, key)
						return
					}
					printRecord(out, value)
				})
			}
			defer sub.Cancel()

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			select {
			case <-stop:
			case <-cmd.Context().Done():
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&key, "key", "", "watch a single record instead of the whole category")
	return cmd
}

func printRecord(out io.Writer, record models.Fields) {
	raw, err := json.Marshal(record)
	if err != nil {
		raw = []byte(fmt.Sprintf("%v", record))
	}
	fmt.Fprintf(out, "  %s\n", raw)
}
