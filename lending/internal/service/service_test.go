package service_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Astemirdum/lending-service/lending/internal/errs"
	"github.com/Astemirdum/lending-service/lending/internal/model"
	"github.com/Astemirdum/lending-service/lending/internal/repository/memory"
	"github.com/Astemirdum/lending-service/lending/internal/service"
	"github.com/Astemirdum/lending-service/pkg/kafka"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(date string) {
	d, err := model.ParseDate(date)
	if err != nil {
		panic(err)
	}
	c.mu.Lock()
	c.now = d.Add(10 * time.Hour)
	c.mu.Unlock()
}

type fixture struct {
	svc   *service.Service
	store *memory.Store
	clock *testClock
}

func newFixture(t *testing.T, today string, opts ...service.Option) fixture {
	t.Helper()
	clock := &testClock{}
	clock.Set(today)
	store := memory.New()
	opts = append([]service.Option{service.WithClock(clock.Now)}, opts...)
	return fixture{
		svc:   service.NewService(store, zap.NewNop(), opts...),
		store: store,
		clock: clock,
	}
}

func (f fixture) book(t *testing.T, isbn string, qty int) model.Book {
	t.Helper()
	b, err := f.svc.CreateBook(context.Background(), model.CreateBookRequest{
		Title:    "Title " + isbn,
		Author:   "Author " + isbn,
		ISBN:     isbn,
		Quantity: qty,
	})
	require.NoError(t, err)
	return b
}

func (f fixture) borrower(t *testing.T, name string) model.Borrower {
	t.Helper()
	b, err := f.svc.CreateBorrower(context.Background(), model.CreateBorrowerRequest{
		Name:  name,
		Email: name + "@example.com",
	})
	require.NoError(t, err)
	return b
}

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := model.ParseDate(s)
	require.NoError(t, err)
	return d
}

func ids(items []model.BorrowingView) []int64 {
	out := make([]int64, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func TestService_CheckoutAndReturn(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, "2024-03-01")
	book := f.book(t, "111", 2)
	bob := f.borrower(t, "bob")

	rec, err := f.svc.Checkout(ctx, model.CheckoutRequest{BorrowerID: bob.ID, BookID: book.ID})
	require.NoError(t, err)
	require.Equal(t, date(t, "2024-03-01"), rec.CheckoutDate)
	require.Equal(t, date(t, "2024-03-15"), rec.DueDate)
	require.Nil(t, rec.ReturnDate)

	got, err := f.svc.GetBook(ctx, book.ID)
	require.NoError(t, err)
	require.Equal(t, 1, got.AvailableQuantity)

	active, err := f.svc.ListActive(ctx, bob.ID)
	require.NoError(t, err)
	require.Equal(t, []int64{rec.ID}, ids(active))
	require.Equal(t, "Title 111", active[0].BookTitle)

	f.clock.Set("2024-03-05")
	view, err := f.svc.ReturnItem(ctx, rec.ID)
	require.NoError(t, err)
	require.NotNil(t, view.ReturnDate)
	require.Equal(t, date(t, "2024-03-05"), *view.ReturnDate)
	require.Equal(t, "bob", view.BorrowerName)
	require.Equal(t, "Title 111", view.BookTitle)

	got, err = f.svc.GetBook(ctx, book.ID)
	require.NoError(t, err)
	require.Equal(t, 2, got.AvailableQuantity)

	_, err = f.svc.ReturnItem(ctx, rec.ID)
	require.ErrorIs(t, err, errs.ErrAlreadyReturned)
	require.ErrorIs(t, err, errs.ErrConflict)

	got, err = f.svc.GetBook(ctx, book.ID)
	require.NoError(t, err)
	require.Equal(t, 2, got.AvailableQuantity)

	_, err = f.svc.ReturnItem(ctx, 999)
	require.ErrorIs(t, err, errs.ErrBorrowingNotFound)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestService_SingleCopyHandOver(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, "2024-03-01")
	book := f.book(t, "222", 1)
	alice := f.borrower(t, "alice")
	bob := f.borrower(t, "bob")

	first, err := f.svc.Checkout(ctx, model.CheckoutRequest{BorrowerID: alice.ID, BookID: book.ID})
	require.NoError(t, err)
	require.Equal(t, first.CheckoutDate.AddDate(0, 0, service.DefaultLoanDays), first.DueDate)

	_, err = f.svc.Checkout(ctx, model.CheckoutRequest{BorrowerID: bob.ID, BookID: book.ID})
	require.ErrorIs(t, err, errs.ErrNoCopiesAvailable)
	require.ErrorIs(t, err, errs.ErrConflict)

	f.clock.Set("2024-03-04")
	_, err = f.svc.ReturnItem(ctx, first.ID)
	require.NoError(t, err)

	second, err := f.svc.Checkout(ctx, model.CheckoutRequest{BorrowerID: bob.ID, BookID: book.ID})
	require.NoError(t, err)
	require.Equal(t, date(t, "2024-03-04"), second.CheckoutDate)
	require.Equal(t, date(t, "2024-03-18"), second.DueDate)

	got, err := f.svc.GetBook(ctx, book.ID)
	require.NoError(t, err)
	require.Equal(t, 0, got.AvailableQuantity)

	active, err := f.svc.ListActive(ctx, bob.ID)
	require.NoError(t, err)
	require.Equal(t, []int64{second.ID}, ids(active))
}

func TestService_DeletePolicy(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, "2024-03-01")
	book := f.book(t, "333", 1)
	bob := f.borrower(t, "bob")

	rec, err := f.svc.Checkout(ctx, model.CheckoutRequest{BorrowerID: bob.ID, BookID: book.ID})
	require.NoError(t, err)

	stillThere := func(t *testing.T) {
		t.Helper()
		_, err := f.svc.GetBook(ctx, book.ID)
		require.NoError(t, err)
		_, err = f.svc.GetBorrower(ctx, bob.ID)
		require.NoError(t, err)
	}

	// active borrowing
	err = f.svc.DeleteBook(ctx, book.ID)
	require.ErrorIs(t, err, errs.ErrHasActiveBorrowings)
	require.ErrorIs(t, err, errs.ErrConflict)
	err = f.svc.DeleteBorrower(ctx, bob.ID)
	require.ErrorIs(t, err, errs.ErrHasActiveBorrowings)
	require.ErrorIs(t, err, errs.ErrConflict)
	stillThere(t)

	// closed history only
	_, err = f.svc.ReturnItem(ctx, rec.ID)
	require.NoError(t, err)
	require.ErrorIs(t, f.svc.DeleteBook(ctx, book.ID), errs.ErrIntegrity)
	require.ErrorIs(t, f.svc.DeleteBorrower(ctx, bob.ID), errs.ErrIntegrity)
	stillThere(t)

	history, err := f.svc.ListInRange(ctx, date(t, "2024-03-01"), date(t, "2024-03-01"))
	require.NoError(t, err)
	require.Equal(t, []int64{rec.ID}, ids(history))

	// missing rows
	err = f.svc.DeleteBook(ctx, 999)
	require.ErrorIs(t, err, errs.ErrBookNotFound)
	require.ErrorIs(t, err, errs.ErrNotFound)
	err = f.svc.DeleteBorrower(ctx, 999)
	require.ErrorIs(t, err, errs.ErrBorrowerNotFound)
	require.ErrorIs(t, err, errs.ErrNotFound)

	// no ledger rows
	spare := f.book(t, "444", 1)
	idle := f.borrower(t, "idle")
	require.NoError(t, f.svc.DeleteBook(ctx, spare.ID))
	require.NoError(t, f.svc.DeleteBorrower(ctx, idle.ID))
	_, err = f.svc.GetBook(ctx, spare.ID)
	require.ErrorIs(t, err, errs.ErrBookNotFound)
	_, err = f.svc.GetBorrower(ctx, idle.ID)
	require.ErrorIs(t, err, errs.ErrBorrowerNotFound)
}

func TestService_CheckoutErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, "2024-03-01")
	book := f.book(t, "222", 1)
	empty := f.book(t, "333", 0)
	ann := f.borrower(t, "ann")

	tests := []struct {
		name    string
		req     model.CheckoutRequest
		wantErr error
		kind    error
	}{
		{
			name:    "unknown borrower",
			req:     model.CheckoutRequest{BorrowerID: 42, BookID: book.ID},
			wantErr: errs.ErrBorrowerNotFound,
			kind:    errs.ErrNotFound,
		},
		{
			name:    "unknown book",
			req:     model.CheckoutRequest{BorrowerID: ann.ID, BookID: 42},
			wantErr: errs.ErrBookNotFound,
			kind:    errs.ErrNotFound,
		},
		{
			name:    "no copies",
			req:     model.CheckoutRequest{BorrowerID: ann.ID, BookID: empty.ID},
			wantErr: errs.ErrNoCopiesAvailable,
			kind:    errs.ErrConflict,
		},
		{
			name:    "negative loan days",
			req:     model.CheckoutRequest{BorrowerID: ann.ID, BookID: book.ID, LoanDays: -1},
			wantErr: errs.ErrInvalidLoanDays,
			kind:    errs.ErrInvalidArgument,
		},
		{
			name:    "loan too long",
			req:     model.CheckoutRequest{BorrowerID: ann.ID, BookID: book.ID, LoanDays: service.MaxLoanDays + 1},
			wantErr: errs.ErrInvalidLoanDays,
			kind:    errs.ErrInvalidArgument,
		},
	}
	for _, tt := range tests {
		_, err := f.svc.Checkout(ctx, tt.req)
		require.ErrorIs(t, err, tt.wantErr, tt.name)
		require.ErrorIs(t, err, tt.kind, tt.name)
	}

	got, err := f.svc.GetBook(ctx, book.ID)
	require.NoError(t, err)
	require.Equal(t, 1, got.AvailableQuantity)

	rec, err := f.svc.Checkout(ctx, model.CheckoutRequest{BorrowerID: ann.ID, BookID: book.ID, LoanDays: 7})
	require.NoError(t, err)
	require.Equal(t, date(t, "2024-03-08"), rec.DueDate)
}

func TestService_CheckoutLoanPeriodOption(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "2024-03-01", service.WithLoanPeriod(21, 30))
	book := f.book(t, "444", 3)
	ann := f.borrower(t, "ann")

	rec, err := f.svc.Checkout(context.Background(), model.CheckoutRequest{BorrowerID: ann.ID, BookID: book.ID})
	require.NoError(t, err)
	require.Equal(t, date(t, "2024-03-22"), rec.DueDate)

	_, err = f.svc.Checkout(context.Background(), model.CheckoutRequest{BorrowerID: ann.ID, BookID: book.ID, LoanDays: 31})
	require.ErrorIs(t, err, errs.ErrInvalidLoanDays)
}

func TestService_ConcurrentCheckoutsNeverOversell(t *testing.T) {
	t.Parallel()
	const (
		copies  = 3
		callers = 20
	)
	ctx := context.Background()
	f := newFixture(t, "2024-03-01")
	book := f.book(t, "555", copies)
	borrowers := make([]model.Borrower, callers)
	for i := range borrowers {
		borrowers[i] = f.borrower(t, fmt.Sprintf("reader%d", i))
	}

	var ok, conflict atomic.Int32
	var g errgroup.Group
	for i := 0; i < callers; i++ {
		borrowerID := borrowers[i].ID
		g.Go(func() error {
			_, err := f.svc.Checkout(ctx, model.CheckoutRequest{BorrowerID: borrowerID, BookID: book.ID})
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, errs.ErrNoCopiesAvailable):
				conflict.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	require.EqualValues(t, copies, ok.Load())
	require.EqualValues(t, callers-copies, conflict.Load())

	got, err := f.svc.GetBook(ctx, book.ID)
	require.NoError(t, err)
	require.Equal(t, 0, got.AvailableQuantity)
}

func TestService_ConcurrentReturnsCountOnce(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, "2024-03-01")
	book := f.book(t, "666", 1)
	ann := f.borrower(t, "ann")
	rec, err := f.svc.Checkout(ctx, model.CheckoutRequest{BorrowerID: ann.ID, BookID: book.ID})
	require.NoError(t, err)

	var ok, already atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.ReturnItem(ctx, rec.ID)
			if err == nil {
				ok.Add(1)
			} else if errors.Is(err, errs.ErrAlreadyReturned) {
				already.Add(1)
			}
		}()
	}
	wg.Wait()
	require.EqualValues(t, 1, ok.Load())
	require.EqualValues(t, 9, already.Load())

	got, err := f.svc.GetBook(ctx, book.ID)
	require.NoError(t, err)
	require.Equal(t, 1, got.AvailableQuantity)
}

func TestService_InventoryConservation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, "2024-03-01")
	books := []model.Book{f.book(t, "a1", 2), f.book(t, "a2", 5)}
	readers := []model.Borrower{f.borrower(t, "r1"), f.borrower(t, "r2"), f.borrower(t, "r3")}

	var g errgroup.Group
	for i := 0; i < 30; i++ {
		i := i
		g.Go(func() error {
			rec, err := f.svc.Checkout(ctx, model.CheckoutRequest{
				BorrowerID: readers[i%len(readers)].ID,
				BookID:     books[i%len(books)].ID,
			})
			if errors.Is(err, errs.ErrNoCopiesAvailable) {
				return nil
			}
			if err != nil {
				return err
			}
			if i%3 == 0 {
				_, err = f.svc.ReturnItem(ctx, rec.ID)
			}
			return err
		})
	}
	require.NoError(t, g.Wait())

	for _, b := range books {
		got, err := f.svc.GetBook(ctx, b.ID)
		require.NoError(t, err)
		bookID := b.ID
		all, err := f.store.ListBorrowings(ctx, model.BorrowingFilter{BookID: &bookID, ActiveOnly: true})
		require.NoError(t, err)
		require.GreaterOrEqual(t, got.AvailableQuantity, 0)
		require.Equal(t, got.TotalQuantity, got.AvailableQuantity+len(all), "book %d", b.ID)
	}
}

func TestService_CheckoutRollsBackOnStoreFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, "2024-03-01")
	book := f.book(t, "777", 2)
	ann := f.borrower(t, "ann")

	f.store.FailOn("InsertBorrowing", errors.New("disk full"))
	_, err := f.svc.Checkout(ctx, model.CheckoutRequest{BorrowerID: ann.ID, BookID: book.ID})
	require.ErrorIs(t, err, errs.ErrStore)

	got, err := f.svc.GetBook(ctx, book.ID)
	require.NoError(t, err)
	require.Equal(t, 2, got.AvailableQuantity)
	active, err := f.svc.ListActive(ctx, ann.ID)
	require.NoError(t, err)
	require.Empty(t, active)

	f.store.FailOn("InsertBorrowing", nil)
	_, err = f.svc.Checkout(ctx, model.CheckoutRequest{BorrowerID: ann.ID, BookID: book.ID})
	require.NoError(t, err)
}

func TestService_ReturnRollsBackOnStoreFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, "2024-03-01")
	book := f.book(t, "888", 1)
	ann := f.borrower(t, "ann")
	rec, err := f.svc.Checkout(ctx, model.CheckoutRequest{BorrowerID: ann.ID, BookID: book.ID})
	require.NoError(t, err)

	f.store.FailOn("IncrementAvailable", errors.New("connection reset"))
	_, err = f.svc.ReturnItem(ctx, rec.ID)
	require.ErrorIs(t, err, errs.ErrStore)

	active, err := f.svc.ListActive(ctx, ann.ID)
	require.NoError(t, err)
	require.Equal(t, []int64{rec.ID}, ids(active))
	require.Nil(t, active[0].ReturnDate)

	f.store.FailOn("IncrementAvailable", nil)
	_, err = f.svc.ReturnItem(ctx, rec.ID)
	require.NoError(t, err)
}

func TestService_CheckoutHonoursCancelledContext(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "2024-03-01")
	book := f.book(t, "999", 1)
	ann := f.borrower(t, "ann")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.svc.Checkout(ctx, model.CheckoutRequest{BorrowerID: ann.ID, BookID: book.ID})
	require.ErrorIs(t, err, errs.ErrStore)

	got, err := f.svc.GetBook(context.Background(), book.ID)
	require.NoError(t, err)
	require.Equal(t, 1, got.AvailableQuantity)
}

func TestService_ListOverdue(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, "2024-03-01")
	book := f.book(t, "b1", 10)
	ann := f.borrower(t, "ann")

	checkout := func(days int) model.Borrowing {
		rec, err := f.svc.Checkout(ctx, model.CheckoutRequest{BorrowerID: ann.ID, BookID: book.ID, LoanDays: days})
		require.NoError(t, err)
		return rec
	}
	late := checkout(3)     // due 03-04
	later := checkout(1)    // due 03-02
	returned := checkout(2) // due 03-03
	dueToday := checkout(9) // due 03-10
	notYet := checkout(20)  // due 03-21

	f.clock.Set("2024-03-10")
	_, err := f.svc.ReturnItem(ctx, returned.ID)
	require.NoError(t, err)

	overdue, err := f.svc.ListOverdue(ctx)
	require.NoError(t, err)
	require.Equal(t, []int64{later.ID, late.ID}, ids(overdue))
	require.Equal(t, "ann", overdue[0].BorrowerName)
	require.NotContains(t, ids(overdue), dueToday.ID)
	require.NotContains(t, ids(overdue), notYet.ID)
}

func TestService_ListInRange(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, "2023-12-31")
	book := f.book(t, "c1", 10)
	ann := f.borrower(t, "ann")

	byDate := map[string]int64{}
	for _, d := range []string{"2023-12-31", "2024-01-01", "2024-01-15", "2024-01-31", "2024-02-01"} {
		f.clock.Set(d)
		rec, err := f.svc.Checkout(ctx, model.CheckoutRequest{BorrowerID: ann.ID, BookID: book.ID})
		require.NoError(t, err)
		byDate[d] = rec.ID
	}

	items, err := f.svc.ListInRange(ctx, date(t, "2024-01-01"), date(t, "2024-01-31"))
	require.NoError(t, err)
	require.Equal(t, []int64{byDate["2024-01-01"], byDate["2024-01-15"], byDate["2024-01-31"]}, ids(items))

	items, err = f.svc.ListInRange(ctx, date(t, "2024-01-15"), date(t, "2024-01-15"))
	require.NoError(t, err)
	require.Equal(t, []int64{byDate["2024-01-15"]}, ids(items))

	_, err = f.svc.ListInRange(ctx, date(t, "2024-02-01"), date(t, "2024-01-01"))
	require.ErrorIs(t, err, errs.ErrInvalidDateRange)
	require.ErrorIs(t, err, errs.ErrInvalidArgument)
}

func TestLastMonthWindow(t *testing.T) {
	t.Parallel()
	tests := []struct {
		today, start, end, lastDay string
	}{
		{today: "2024-03-15", start: "2024-02-16", end: "2024-03-17", lastDay: "2024-03-16"},
		{today: "2024-01-01", start: "2023-12-04", end: "2024-01-03", lastDay: "2024-01-02"},
		{today: "2023-03-01", start: "2023-02-01", end: "2023-03-03", lastDay: "2023-03-02"},
	}
	for _, tt := range tests {
		w := service.LastMonthWindow(date(t, tt.today))
		require.Equal(t, date(t, tt.start), w.Start, tt.today)
		require.Equal(t, date(t, tt.end), w.End, tt.today)
		require.Equal(t, date(t, tt.lastDay), w.LastDay(), tt.today)
		require.True(t, w.Contains(date(t, tt.today)))
	}
}

func TestService_WindowQueries(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, "2024-02-01")
	book := f.book(t, "w1", 10)
	ann := f.borrower(t, "ann")

	checkout := func(day string, days int) model.Borrowing {
		f.clock.Set(day)
		rec, err := f.svc.Checkout(ctx, model.CheckoutRequest{BorrowerID: ann.ID, BookID: book.ID, LoanDays: days})
		require.NoError(t, err)
		return rec
	}
	old := checkout("2024-02-01", 10)         // due 02-11, before window
	inside := checkout("2024-02-20", 5)       // due 02-25
	returned := checkout("2024-02-21", 3)     // due 02-24
	dueLater := checkout("2024-03-10", 14)    // due 03-24, not overdue
	checkedToday := checkout("2024-03-15", 1) // due 03-16

	f.clock.Set("2024-03-15")
	_, err := f.svc.ReturnItem(ctx, returned.ID)
	require.NoError(t, err)

	w := f.svc.LastMonth()
	require.Equal(t, date(t, "2024-02-16"), w.Start)

	overdue, err := f.svc.ListOverdueInWindow(ctx, w)
	require.NoError(t, err)
	require.Equal(t, []int64{inside.ID}, ids(overdue))
	require.NotContains(t, ids(overdue), old.ID)

	checked, err := f.svc.ListCheckedOutInWindow(ctx, w)
	require.NoError(t, err)
	require.Equal(t, []int64{inside.ID, returned.ID, dueLater.ID, checkedToday.ID}, ids(checked))

	sum, err := f.svc.Summary(ctx, w)
	require.NoError(t, err)
	require.Equal(t, w, sum.Window)
	require.Equal(t, ids(overdue), ids(sum.Overdue))
	require.Equal(t, ids(checked), ids(sum.CheckedOut))

	_, err = f.svc.ListCheckedOutInWindow(ctx, model.DateWindow{Start: w.End, End: w.Start})
	require.ErrorIs(t, err, errs.ErrInvalidDateRange)
}

type recordingEvents struct {
	mu     sync.Mutex
	events []kafka.EventBorrowing
	err    error
}

func (r *recordingEvents) Log(_ context.Context, ev kafka.EventBorrowing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func TestService_EmitsEventsAfterCommit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	events := &recordingEvents{}
	f := newFixture(t, "2024-03-01", service.WithEventLogger(events))
	book := f.book(t, "e1", 1)
	ann := f.borrower(t, "ann")

	rec, err := f.svc.Checkout(ctx, model.CheckoutRequest{BorrowerID: ann.ID, BookID: book.ID})
	require.NoError(t, err)
	_, err = f.svc.Checkout(ctx, model.CheckoutRequest{BorrowerID: ann.ID, BookID: book.ID})
	require.ErrorIs(t, err, errs.ErrNoCopiesAvailable)
	_, err = f.svc.ReturnItem(ctx, rec.ID)
	require.NoError(t, err)

	require.Len(t, events.events, 2)
	require.Equal(t, kafka.EventBookCheckedOut, events.events[0].EventType)
	require.Equal(t, rec.ID, events.events[0].BorrowingID)
	require.Nil(t, events.events[0].ReturnDate)
	require.Equal(t, kafka.EventBookReturned, events.events[1].EventType)
	require.NotNil(t, events.events[1].ReturnDate)
	require.NotEqual(t, events.events[0].EventID, events.events[1].EventID)
}

func TestService_EventFailureDoesNotFailCheckout(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	events := &recordingEvents{err: errors.New("broker down")}
	f := newFixture(t, "2024-03-01", service.WithEventLogger(events))
	book := f.book(t, "e2", 1)
	ann := f.borrower(t, "ann")

	_, err := f.svc.Checkout(ctx, model.CheckoutRequest{BorrowerID: ann.ID, BookID: book.ID})
	require.NoError(t, err)
	got, err := f.svc.GetBook(ctx, book.ID)
	require.NoError(t, err)
	require.Equal(t, 0, got.AvailableQuantity)
}
