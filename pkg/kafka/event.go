package kafka

import (
	"time"
)

type EventType string

const (
	EventBookCheckedOut EventType = "BookCheckedOut"
	EventBookReturned   EventType = "BookReturned"
)

type EventBorrowing struct {
	EventID      string     `json:"event_id"`
	EventType    EventType  `json:"event_type"`
	EventVersion int        `json:"event_version"`
	OccurredAt   time.Time  `json:"occurred_at"`
	Producer     string     `json:"producer"`
	BorrowingID  int64      `json:"borrowing_id"`
	BorrowerID   int64      `json:"borrower_id"`
	BookID       int64      `json:"book_id"`
	CheckoutDate time.Time  `json:"checkout_date"`
	DueDate      time.Time  `json:"due_date"`
	ReturnDate   *time.Time `json:"return_date,omitempty"`
}
