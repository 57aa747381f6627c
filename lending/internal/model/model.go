package model

import (
	"time"
)

type Book struct {
	ID                int64     `json:"id" db:"id"`
	Title             string    `json:"title" db:"title"`
	Author            string    `json:"author" db:"author"`
	ISBN              string    `json:"isbn" db:"isbn"`
	ShelfLocation     *string   `json:"shelfLocation" db:"shelf_location"`
	TotalQuantity     int       `json:"totalQuantity" db:"total_quantity"`
	AvailableQuantity int       `json:"availableQuantity" db:"available_quantity"`
	CreatedAt         time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt         time.Time `json:"updatedAt" db:"updated_at"`
}

type CreateBookRequest struct {
	Title         string  `json:"title" validate:"required"`
	Author        string  `json:"author" validate:"required"`
	ISBN          string  `json:"isbn" validate:"required"`
	ShelfLocation *string `json:"shelfLocation"`
	Quantity      int     `json:"quantity" validate:"gte=0"`
}

// UpdateBookRequest carries descriptive fields only; availability changes go
// through checkout, return and ProvisionCopies.
type UpdateBookRequest struct {
	Title         *string `json:"title"`
	Author        *string `json:"author"`
	ISBN          *string `json:"isbn"`
	ShelfLocation *string `json:"shelfLocation"`
}

func (r UpdateBookRequest) Empty() bool {
	return r.Title == nil && r.Author == nil && r.ISBN == nil && r.ShelfLocation == nil
}

type BookSearch struct {
	Title  string
	Author string
	ISBN   string
}

type Borrower struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

type CreateBorrowerRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

type UpdateBorrowerRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email" validate:"omitempty,email"`
}

func (r UpdateBorrowerRequest) Empty() bool {
	return r.Name == nil && r.Email == nil
}

type Borrowing struct {
	ID           int64      `json:"id" db:"id"`
	BorrowerID   int64      `json:"borrowerId" db:"borrower_id"`
	BookID       int64      `json:"bookId" db:"book_id"`
	CheckoutDate time.Time  `json:"checkoutDate" db:"checkout_date"`
	DueDate      time.Time  `json:"dueDate" db:"due_date"`
	ReturnDate   *time.Time `json:"returnDate" db:"return_date"`
}

func (b Borrowing) Active() bool {
	return b.ReturnDate == nil
}

// Overdue reports whether the borrowing is still open past its due date.
func (b Borrowing) Overdue(today time.Time) bool {
	return b.Active() && b.DueDate.Before(today)
}

// BorrowingView is a ledger row joined with borrower and book display fields.
type BorrowingView struct {
	Borrowing
	BorrowerName  string  `json:"borrowerName" db:"borrower_name"`
	BookTitle     string  `json:"bookTitle" db:"book_title"`
	BookAuthor    string  `json:"bookAuthor" db:"book_author"`
	BookISBN      string  `json:"bookIsbn" db:"book_isbn"`
	ShelfLocation *string `json:"shelfLocation" db:"shelf_location"`
}

type CheckoutRequest struct {
	BorrowerID int64 `json:"borrowerId" validate:"required,gt=0"`
	BookID     int64 `json:"bookId" validate:"required,gt=0"`
	// LoanDays of zero means the configured default.
	LoanDays int `json:"days" validate:"gte=0"`
}

type NewBorrowing struct {
	BorrowerID   int64
	BookID       int64
	CheckoutDate time.Time
	DueDate      time.Time
}

type Report struct {
	Window DateWindow      `json:"window"`
	Items  []BorrowingView `json:"items"`
}

type Summary struct {
	Window     DateWindow      `json:"window"`
	Overdue    []BorrowingView `json:"overdue"`
	CheckedOut []BorrowingView `json:"checkedOut"`
}
