// Package memory is an in-process implementation of repository.Repository.
//
// Row locks are emulated with per-row semaphores held until the transaction
// ends, and every write inside a transaction records an undo step, so the
// locking and rollback contract matches the Postgres store. Readers outside a
// transaction may observe uncommitted writes; the store is meant for tests and
// dry runs, not as a durable backend.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Astemirdum/lending-service/lending/internal/errs"
	"github.com/Astemirdum/lending-service/lending/internal/model"
	"github.com/Astemirdum/lending-service/lending/internal/repository"
)

type Store struct {
	mu         sync.Mutex
	books      map[int64]model.Book
	borrowers  map[int64]model.Borrower
	borrowings map[int64]model.Borrowing
	locks      map[string]*rowLock
	faults     map[string]error

	nextBookID      int64
	nextBorrowerID  int64
	nextBorrowingID int64

	now func() time.Time
}

var _ repository.Repository = (*Store)(nil)

func New() *Store {
	return &Store{
		books:      make(map[int64]model.Book),
		borrowers:  make(map[int64]model.Borrower),
		borrowings: make(map[int64]model.Borrowing),
		locks:      make(map[string]*rowLock),
		faults:     make(map[string]error),
		now:        time.Now,
	}
}

// FailOn makes every later call of the named operation return err.
// A nil err clears the fault.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.faults, op)
		return
	}
	s.faults[op] = err
}

func (s *Store) fault(op string) error {
	if err, ok := s.faults[op]; ok {
		return errs.Store(op, err)
	}
	return nil
}

type rowLock struct {
	ch chan struct{}
}

func (l *rowLock) acquire(ctx context.Context) error {
	select {
	case l.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return errs.Store("lock wait", ctx.Err())
	}
}

func (l *rowLock) release() {
	<-l.ch
}

func lockKey(table string, id int64) string {
	return fmt.Sprintf("%s:%d", table, id)
}

func (s *Store) InTx(ctx context.Context, fn func(tx repository.LedgerTx) error) error {
	t := &tx{s: s, held: make(map[string]*rowLock)}
	defer func() {
		if p := recover(); p != nil {
			t.rollback()
			panic(p)
		}
	}()
	if err := fn(t); err != nil {
		t.rollback()
		return err
	}
	if err := ctx.Err(); err != nil {
		t.rollback()
		return errs.Store("commit", err)
	}
	t.commit()
	return nil
}

type tx struct {
	s    *Store
	held map[string]*rowLock
	undo []func()
}

func (t *tx) commit() {
	t.undo = nil
	t.releaseAll()
}

func (t *tx) rollback() {
	t.s.mu.Lock()
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
	t.s.mu.Unlock()
	t.releaseAll()
}

func (t *tx) releaseAll() {
	for key, l := range t.held {
		l.release()
		delete(t.held, key)
	}
}

func (t *tx) lock(ctx context.Context, table string, id int64) error {
	key := lockKey(table, id)
	if _, ok := t.held[key]; ok {
		return nil
	}
	t.s.mu.Lock()
	l, ok := t.s.locks[key]
	if !ok {
		l = &rowLock{ch: make(chan struct{}, 1)}
		t.s.locks[key] = l
	}
	t.s.mu.Unlock()

	if err := l.acquire(ctx); err != nil {
		return err
	}
	t.held[key] = l
	return nil
}

func (t *tx) GetBorrower(ctx context.Context, id int64) (model.Borrower, error) {
	return t.LockBorrowerForUpdate(ctx, id)
}

func (t *tx) LockBorrowerForUpdate(ctx context.Context, id int64) (model.Borrower, error) {
	if err := t.lock(ctx, "borrowers", id); err != nil {
		return model.Borrower{}, err
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	b, ok := t.s.borrowers[id]
	if !ok {
		return model.Borrower{}, errs.ErrBorrowerNotFound
	}
	return b, nil
}

func (t *tx) DeleteBorrower(_ context.Context, id int64) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	b, ok := t.s.borrowers[id]
	if !ok {
		return errs.ErrBorrowerNotFound
	}
	for _, br := range t.s.borrowings {
		if br.BorrowerID == id {
			return errs.Integrity("borrowings_borrower_id_fkey", fmt.Errorf("borrower %d is referenced by borrowing %d", id, br.ID))
		}
	}
	delete(t.s.borrowers, id)
	t.undo = append(t.undo, func() { t.s.borrowers[id] = b })
	return nil
}

func (t *tx) LockBookForUpdate(ctx context.Context, id int64) (model.Book, error) {
	if err := t.lock(ctx, "books", id); err != nil {
		return model.Book{}, err
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if err := t.s.fault("LockBookForUpdate"); err != nil {
		return model.Book{}, err
	}
	b, ok := t.s.books[id]
	if !ok {
		return model.Book{}, errs.ErrBookNotFound
	}
	return b, nil
}

func (t *tx) DecrementAvailable(ctx context.Context, bookID int64) error {
	return t.adjust(ctx, "DecrementAvailable", bookID, 0, -1)
}

func (t *tx) IncrementAvailable(ctx context.Context, bookID int64) error {
	return t.adjust(ctx, "IncrementAvailable", bookID, 0, 1)
}

func (t *tx) AddCopies(ctx context.Context, bookID int64, n int) (model.Book, error) {
	if err := t.adjust(ctx, "AddCopies", bookID, n, n); err != nil {
		return model.Book{}, err
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	return t.s.books[bookID], nil
}

// adjust changes the counters of a book under its row lock and records the inverse change.
func (t *tx) adjust(ctx context.Context, op string, bookID int64, totalDelta, availableDelta int) error {
	if err := t.lock(ctx, "books", bookID); err != nil {
		return err
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if err := t.s.fault(op); err != nil {
		return err
	}
	b, ok := t.s.books[bookID]
	if !ok {
		return errs.ErrBookNotFound
	}
	b.TotalQuantity += totalDelta
	b.AvailableQuantity += availableDelta
	if b.AvailableQuantity < 0 {
		return errs.Integrity("books_available_quantity_check", fmt.Errorf("book %d available %d", bookID, b.AvailableQuantity))
	}
	if b.AvailableQuantity > b.TotalQuantity {
		return errs.Integrity("books_available_le_total_check", fmt.Errorf("book %d available %d > total %d", bookID, b.AvailableQuantity, b.TotalQuantity))
	}
	b.UpdatedAt = t.s.now()
	t.s.books[bookID] = b
	t.undo = append(t.undo, func() {
		cur := t.s.books[bookID]
		cur.TotalQuantity -= totalDelta
		cur.AvailableQuantity -= availableDelta
		t.s.books[bookID] = cur
	})
	return nil
}

func (t *tx) DeleteBook(_ context.Context, id int64) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	b, ok := t.s.books[id]
	if !ok {
		return errs.ErrBookNotFound
	}
	for _, br := range t.s.borrowings {
		if br.BookID == id {
			return errs.Integrity("borrowings_book_id_fkey", fmt.Errorf("book %d is referenced by borrowing %d", id, br.ID))
		}
	}
	delete(t.s.books, id)
	t.undo = append(t.undo, func() { t.s.books[id] = b })
	return nil
}

func (t *tx) InsertBorrowing(_ context.Context, nb model.NewBorrowing) (model.Borrowing, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if err := t.s.fault("InsertBorrowing"); err != nil {
		return model.Borrowing{}, err
	}
	if _, ok := t.s.borrowers[nb.BorrowerID]; !ok {
		return model.Borrowing{}, errs.Integrity("borrowings_borrower_id_fkey", fmt.Errorf("borrower %d", nb.BorrowerID))
	}
	if _, ok := t.s.books[nb.BookID]; !ok {
		return model.Borrowing{}, errs.Integrity("borrowings_book_id_fkey", fmt.Errorf("book %d", nb.BookID))
	}
	if nb.DueDate.Before(nb.CheckoutDate) {
		return model.Borrowing{}, errs.Integrity("borrowings_due_after_checkout_check", fmt.Errorf("due %s", nb.DueDate))
	}
	t.s.nextBorrowingID++
	rec := model.Borrowing{
		ID:           t.s.nextBorrowingID,
		BorrowerID:   nb.BorrowerID,
		BookID:       nb.BookID,
		CheckoutDate: nb.CheckoutDate,
		DueDate:      nb.DueDate,
	}
	t.s.borrowings[rec.ID] = rec
	t.undo = append(t.undo, func() { delete(t.s.borrowings, rec.ID) })
	return rec, nil
}

func (t *tx) LockBorrowing(ctx context.Context, id int64) (model.Borrowing, error) {
	if err := t.lock(ctx, "borrowings", id); err != nil {
		return model.Borrowing{}, err
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	br, ok := t.s.borrowings[id]
	if !ok {
		return model.Borrowing{}, errs.ErrBorrowingNotFound
	}
	return br, nil
}

func (t *tx) MarkReturned(_ context.Context, id int64, returnDate time.Time) (model.Borrowing, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if err := t.s.fault("MarkReturned"); err != nil {
		return model.Borrowing{}, err
	}
	br, ok := t.s.borrowings[id]
	if !ok {
		return model.Borrowing{}, errs.ErrBorrowingNotFound
	}
	if br.ReturnDate != nil {
		return model.Borrowing{}, errs.ErrAlreadyReturned
	}
	d := returnDate
	br.ReturnDate = &d
	t.s.borrowings[id] = br
	t.undo = append(t.undo, func() {
		cur := t.s.borrowings[id]
		cur.ReturnDate = nil
		t.s.borrowings[id] = cur
	})
	return br, nil
}

func (t *tx) GetBorrowingView(_ context.Context, id int64) (model.BorrowingView, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	br, ok := t.s.borrowings[id]
	if !ok {
		return model.BorrowingView{}, errs.ErrBorrowingNotFound
	}
	return t.s.view(br), nil
}

func (t *tx) CountActive(_ context.Context, filter model.BorrowingFilter) (int, error) {
	filter.ActiveOnly = true
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	n := 0
	for _, br := range t.s.borrowings {
		if filter.Match(br) {
			n++
		}
	}
	return n, nil
}

func (s *Store) view(br model.Borrowing) model.BorrowingView {
	v := model.BorrowingView{Borrowing: br}
	if bo, ok := s.borrowers[br.BorrowerID]; ok {
		v.BorrowerName = bo.Name
	}
	if b, ok := s.books[br.BookID]; ok {
		v.BookTitle = b.Title
		v.BookAuthor = b.Author
		v.BookISBN = b.ISBN
		v.ShelfLocation = b.ShelfLocation
	}
	return v
}

func (s *Store) ListBorrowings(_ context.Context, filter model.BorrowingFilter) ([]model.BorrowingView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("ListBorrowings"); err != nil {
		return nil, err
	}
	items := make([]model.BorrowingView, 0)
	for _, br := range s.borrowings {
		if filter.Match(br) {
			items = append(items, s.view(br))
		}
	}
	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		ka, kb := a.DueDate, b.DueDate
		if filter.Order == model.OrderByCheckoutDate {
			ka, kb = a.CheckoutDate, b.CheckoutDate
		}
		if !ka.Equal(kb) {
			return ka.Before(kb)
		}
		return a.ID < b.ID
	})
	return items, nil
}

func (s *Store) CreateBook(_ context.Context, req model.CreateBookRequest) (model.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.books {
		if b.ISBN == req.ISBN {
			return model.Book{}, errs.Integrity("books_isbn_key", fmt.Errorf("isbn %s", req.ISBN))
		}
	}
	if req.Quantity < 0 {
		return model.Book{}, errs.Integrity("books_available_quantity_check", fmt.Errorf("quantity %d", req.Quantity))
	}
	s.nextBookID++
	now := s.now()
	b := model.Book{
		ID:                s.nextBookID,
		Title:             req.Title,
		Author:            req.Author,
		ISBN:              req.ISBN,
		ShelfLocation:     req.ShelfLocation,
		TotalQuantity:     req.Quantity,
		AvailableQuantity: req.Quantity,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	s.books[b.ID] = b
	return b, nil
}

func (s *Store) GetBook(_ context.Context, id int64) (model.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.books[id]
	if !ok {
		return model.Book{}, errs.ErrBookNotFound
	}
	return b, nil
}

func (s *Store) SearchBooks(_ context.Context, search model.BookSearch) ([]model.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	books := make([]model.Book, 0)
	for _, b := range s.books {
		if search.Title != "" && !containsFold(b.Title, search.Title) {
			continue
		}
		if search.Author != "" && !containsFold(b.Author, search.Author) {
			continue
		}
		if search.ISBN != "" && b.ISBN != search.ISBN {
			continue
		}
		books = append(books, b)
	}
	sort.Slice(books, func(i, j int) bool { return books[i].ID < books[j].ID })
	return books, nil
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func (s *Store) UpdateBook(_ context.Context, id int64, req model.UpdateBookRequest) (model.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.books[id]
	if !ok {
		return model.Book{}, errs.ErrBookNotFound
	}
	if req.ISBN != nil {
		for _, other := range s.books {
			if other.ID != id && other.ISBN == *req.ISBN {
				return model.Book{}, errs.Integrity("books_isbn_key", fmt.Errorf("isbn %s", *req.ISBN))
			}
		}
		b.ISBN = *req.ISBN
	}
	if req.Title != nil {
		b.Title = *req.Title
	}
	if req.Author != nil {
		b.Author = *req.Author
	}
	if req.ShelfLocation != nil {
		loc := *req.ShelfLocation
		b.ShelfLocation = &loc
	}
	b.UpdatedAt = s.now()
	s.books[id] = b
	return b, nil
}

func (s *Store) CreateBorrower(_ context.Context, req model.CreateBorrowerRequest) (model.Borrower, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.borrowers {
		if b.Email == req.Email {
			return model.Borrower{}, errs.Integrity("borrowers_email_key", fmt.Errorf("email %s", req.Email))
		}
	}
	s.nextBorrowerID++
	now := s.now()
	b := model.Borrower{ID: s.nextBorrowerID, Name: req.Name, Email: req.Email, CreatedAt: now, UpdatedAt: now}
	s.borrowers[b.ID] = b
	return b, nil
}

func (s *Store) GetBorrower(_ context.Context, id int64) (model.Borrower, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.borrowers[id]
	if !ok {
		return model.Borrower{}, errs.ErrBorrowerNotFound
	}
	return b, nil
}

func (s *Store) ListBorrowers(_ context.Context) ([]model.Borrower, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Borrower, 0, len(s.borrowers))
	for _, b := range s.borrowers {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpdateBorrower(_ context.Context, id int64, req model.UpdateBorrowerRequest) (model.Borrower, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.borrowers[id]
	if !ok {
		return model.Borrower{}, errs.ErrBorrowerNotFound
	}
	if req.Email != nil {
		for _, other := range s.borrowers {
			if other.ID != id && other.Email == *req.Email {
				return model.Borrower{}, errs.Integrity("borrowers_email_key", fmt.Errorf("email %s", *req.Email))
			}
		}
		b.Email = *req.Email
	}
	if req.Name != nil {
		b.Name = *req.Name
	}
	b.UpdatedAt = s.now()
	s.borrowers[id] = b
	return b, nil
}
