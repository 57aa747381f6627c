package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/Astemirdum/lending-service/lending/internal/model"
	"github.com/Astemirdum/lending-service/pkg/kafka"
)

func NewEventsCommand(rootOpts *RootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Follow checkout and return events from the event log",
		Example: `  lendingctl events
  lendingctl events --limit 10 --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if rootOpts.Watch == nil {
				return errors.New("event log is not configured")
			}
			ctx, cancel := context.WithCancel(commandContext(cmd))
			defer cancel()

			var (
				mu   sync.Mutex
				seen int
			)
			out := cmd.OutOrStdout()
			return rootOpts.Watch(ctx, func(_ context.Context, ev kafka.EventBorrowing) error {
				mu.Lock()
				defer mu.Unlock()
				if limit > 0 && seen >= limit {
					return nil
				}
				if err := writeEvent(out, rootOpts.Format, ev); err != nil {
					return err
				}
				seen++
				if limit > 0 && seen >= limit {
					cancel()
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "stop after this many events, 0 to follow forever")
	return cmd
}

func writeEvent(w io.Writer, format string, ev kafka.EventBorrowing) error {
	if format == "json" {
		return json.NewEncoder(w).Encode(ev)
	}
	_, err := fmt.Fprintf(w, "%s  %-15s borrowing %d  book %d  borrower %d  due %s\n",
		ev.OccurredAt.Format(time.RFC3339), ev.EventType, ev.BorrowingID, ev.BookID, ev.BorrowerID,
		ev.DueDate.Format(model.DateLayout))
	return err
}
