package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Astemirdum/lending-service/lending/internal/model"
	"github.com/Astemirdum/lending-service/pkg/kafka"
)

// Lender is the part of the lending service the CLI drives.
type Lender interface {
	Checkout(ctx context.Context, req model.CheckoutRequest) (model.Borrowing, error)
	ReturnItem(ctx context.Context, borrowingID int64) (model.BorrowingView, error)
	ListActive(ctx context.Context, borrowerID int64) ([]model.BorrowingView, error)
	ListOverdue(ctx context.Context) ([]model.BorrowingView, error)
	ListInRange(ctx context.Context, start, end time.Time) ([]model.BorrowingView, error)
	ListOverdueInWindow(ctx context.Context, w model.DateWindow) ([]model.BorrowingView, error)
	ListCheckedOutInWindow(ctx context.Context, w model.DateWindow) ([]model.BorrowingView, error)
	Summary(ctx context.Context, w model.DateWindow) (model.Summary, error)
	LastMonth() model.DateWindow
}

// Opener connects to the lending store. The returned func releases it.
type Opener func(ctx context.Context) (Lender, func(), error)

// Watcher feeds borrowing events to handle until ctx is done.
type Watcher func(ctx context.Context, handle kafka.EventHandler) error

type RootOptions struct {
	Format string // "json" | "text"
	Open   Opener
	Watch  Watcher
}

var ValidFormats = []string{"text", "json"}

// NewRootCommand builds lendingctl. A nil watch disables the events command.
func NewRootCommand(open Opener, watch Watcher) *cobra.Command {
	opts := &RootOptions{Open: open, Watch: watch}

	cmd := &cobra.Command{
		Use:   "lendingctl",
		Short: "Operate the library lending ledger",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewCheckoutCommand(opts))
	cmd.AddCommand(NewReturnCommand(opts))
	cmd.AddCommand(NewActiveCommand(opts))
	cmd.AddCommand(NewOverdueCommand(opts))
	cmd.AddCommand(NewRangeCommand(opts))
	cmd.AddCommand(NewReportCommand(opts))
	cmd.AddCommand(NewEventsCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// withLender opens the store for the duration of fn.
func withLender(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, l Lender) error) error {
	ctx := commandContext(cmd)
	l, closeFn, err := opts.Open(ctx)
	if err != nil {
		return fmt.Errorf("open lending store: %w", err)
	}
	defer closeFn()
	return fn(ctx, l)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
