package model

import "time"

type BorrowingOrder int

const (
	OrderByDueDate BorrowingOrder = iota
	OrderByCheckoutDate
)

// BorrowingFilter selects ledger rows. Nil bounds are ignored; every set bound is ANDed.
type BorrowingFilter struct {
	BorrowerID *int64
	BookID     *int64
	ActiveOnly bool
	// DueBefore keeps rows with due_date < DueBefore.
	DueBefore *time.Time
	// CheckoutFrom/CheckoutTo are inclusive.
	CheckoutFrom *time.Time
	CheckoutTo   *time.Time
	// DueWindow and CheckoutWindow are half-open.
	DueWindow      *DateWindow
	CheckoutWindow *DateWindow
	Order          BorrowingOrder
}

// Match applies the filter to a single row, for stores that filter in memory.
func (f BorrowingFilter) Match(b Borrowing) bool {
	switch {
	case f.BorrowerID != nil && b.BorrowerID != *f.BorrowerID:
		return false
	case f.BookID != nil && b.BookID != *f.BookID:
		return false
	case f.ActiveOnly && !b.Active():
		return false
	case f.DueBefore != nil && !b.DueDate.Before(*f.DueBefore):
		return false
	case f.CheckoutFrom != nil && b.CheckoutDate.Before(*f.CheckoutFrom):
		return false
	case f.CheckoutTo != nil && b.CheckoutDate.After(*f.CheckoutTo):
		return false
	case f.DueWindow != nil && !f.DueWindow.Contains(b.DueDate):
		return false
	case f.CheckoutWindow != nil && !f.CheckoutWindow.Contains(b.CheckoutDate):
		return false
	}
	return true
}
