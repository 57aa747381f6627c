package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Astemirdum/lending-service/lending/internal/model"
)

func NewCheckoutCommand(rootOpts *RootOptions) *cobra.Command {
	var req model.CheckoutRequest
	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Lend one copy of a book",
		Example: `  lendingctl checkout --borrower 7 --book 42
  lendingctl checkout --borrower 7 --book 42 --days 21 --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLender(cmd, rootOpts, func(ctx context.Context, l Lender) error {
				rec, err := l.Checkout(ctx, req)
				if err != nil {
					return err
				}
				return writeBorrowing(cmd.OutOrStdout(), rootOpts.Format, rec)
			})
		},
	}
	cmd.Flags().Int64Var(&req.BorrowerID, "borrower", 0, "borrower id (required)")
	cmd.Flags().Int64Var(&req.BookID, "book", 0, "book id (required)")
	cmd.Flags().IntVar(&req.LoanDays, "days", 0, "loan length in days, 0 for the default")
	_ = cmd.MarkFlagRequired("borrower")
	_ = cmd.MarkFlagRequired("book")
	return cmd
}

func NewReturnCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "return <borrowing-id>",
		Short: "Close a borrowing and restock the copy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid borrowing id %q", args[0])
			}
			return withLender(cmd, rootOpts, func(ctx context.Context, l Lender) error {
				view, err := l.ReturnItem(ctx, id)
				if err != nil {
					return err
				}
				return writeBorrowings(cmd.OutOrStdout(), rootOpts.Format, []model.BorrowingView{view})
			})
		},
	}
}

func NewActiveCommand(rootOpts *RootOptions) *cobra.Command {
	var borrowerID int64
	cmd := &cobra.Command{
		Use:   "active",
		Short: "List a borrower's open borrowings, earliest due first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLender(cmd, rootOpts, func(ctx context.Context, l Lender) error {
				items, err := l.ListActive(ctx, borrowerID)
				if err != nil {
					return err
				}
				return writeBorrowings(cmd.OutOrStdout(), rootOpts.Format, items)
			})
		},
	}
	cmd.Flags().Int64Var(&borrowerID, "borrower", 0, "borrower id (required)")
	_ = cmd.MarkFlagRequired("borrower")
	return cmd
}

func NewOverdueCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "overdue",
		Short: "List open borrowings past their due date",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLender(cmd, rootOpts, func(ctx context.Context, l Lender) error {
				items, err := l.ListOverdue(ctx)
				if err != nil {
					return err
				}
				return writeBorrowings(cmd.OutOrStdout(), rootOpts.Format, items)
			})
		},
	}
}

func NewRangeCommand(rootOpts *RootOptions) *cobra.Command {
	var rawStart, rawEnd string
	cmd := &cobra.Command{
		Use:     "range",
		Short:   "List borrowings checked out between two dates, both inclusive",
		Example: `  lendingctl range --start 2024-01-01 --end 2024-01-31`,
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := model.ParseDate(rawStart)
			if err != nil {
				return fmt.Errorf("invalid --start %q: want YYYY-MM-DD", rawStart)
			}
			end, err := model.ParseDate(rawEnd)
			if err != nil {
				return fmt.Errorf("invalid --end %q: want YYYY-MM-DD", rawEnd)
			}
			return withLender(cmd, rootOpts, func(ctx context.Context, l Lender) error {
				items, err := l.ListInRange(ctx, start, end)
				if err != nil {
					return err
				}
				return writeBorrowings(cmd.OutOrStdout(), rootOpts.Format, items)
			})
		},
	}
	cmd.Flags().StringVar(&rawStart, "start", "", "first checkout date (required)")
	cmd.Flags().StringVar(&rawEnd, "end", "", "last checkout date (required)")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

// NewReportCommand groups the last month reports.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Last month reports",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "overdue",
		Short: "Overdue borrowings due within the last month",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLender(cmd, rootOpts, func(ctx context.Context, l Lender) error {
				w := l.LastMonth()
				items, err := l.ListOverdueInWindow(ctx, w)
				if err != nil {
					return err
				}
				return writeReport(cmd.OutOrStdout(), rootOpts.Format, model.Report{Window: w, Items: items})
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "last-month",
		Short: "Borrowings checked out within the last month",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLender(cmd, rootOpts, func(ctx context.Context, l Lender) error {
				w := l.LastMonth()
				items, err := l.ListCheckedOutInWindow(ctx, w)
				if err != nil {
					return err
				}
				return writeReport(cmd.OutOrStdout(), rootOpts.Format, model.Report{Window: w, Items: items})
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "summary",
		Short: "Both last month reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLender(cmd, rootOpts, func(ctx context.Context, l Lender) error {
				sum, err := l.Summary(ctx, l.LastMonth())
				if err != nil {
					return err
				}
				return writeSummary(cmd.OutOrStdout(), rootOpts.Format, sum)
			})
		},
	})
	return cmd
}
