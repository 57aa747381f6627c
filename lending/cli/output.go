package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/Astemirdum/lending-service/lending/internal/model"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func windowRange(w model.DateWindow) string {
	return w.Start.Format(model.DateLayout) + ".." + w.LastDay().Format(model.DateLayout)
}

func writeBorrowings(w io.Writer, format string, items []model.BorrowingView) error {
	if items == nil {
		items = []model.BorrowingView{}
	}
	if format == "json" {
		return writeJSON(w, items)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tBORROWER\tBOOK\tCHECKOUT\tDUE\tRETURNED")
	for _, it := range items {
		returned := "-"
		if it.ReturnDate != nil {
			returned = it.ReturnDate.Format(model.DateLayout)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			it.ID, it.BorrowerName, it.BookTitle,
			it.CheckoutDate.Format(model.DateLayout), it.DueDate.Format(model.DateLayout), returned)
	}
	return tw.Flush()
}

func writeBorrowing(w io.Writer, format string, b model.Borrowing) error {
	if format == "json" {
		return writeJSON(w, b)
	}
	_, err := fmt.Fprintf(w, "borrowing %d: book %d to borrower %d, due %s\n",
		b.ID, b.BookID, b.BorrowerID, b.DueDate.Format(model.DateLayout))
	return err
}

func writeReport(w io.Writer, format string, r model.Report) error {
	if format == "json" {
		if r.Items == nil {
			r.Items = []model.BorrowingView{}
		}
		return writeJSON(w, r)
	}
	fmt.Fprintf(w, "window %s\n", windowRange(r.Window))
	return writeBorrowings(w, format, r.Items)
}

func writeSummary(w io.Writer, format string, s model.Summary) error {
	if format == "json" {
		if s.Overdue == nil {
			s.Overdue = []model.BorrowingView{}
		}
		if s.CheckedOut == nil {
			s.CheckedOut = []model.BorrowingView{}
		}
		return writeJSON(w, s)
	}
	fmt.Fprintf(w, "window %s\n\noverdue (%d)\n", windowRange(s.Window), len(s.Overdue))
	if err := writeBorrowings(w, format, s.Overdue); err != nil {
		return err
	}
	fmt.Fprintf(w, "\nchecked out (%d)\n", len(s.CheckedOut))
	return writeBorrowings(w, format, s.CheckedOut)
}
