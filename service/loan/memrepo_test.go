package loansvc

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"booklending/model"
	loanrepo "booklending/repository/loan"
)

// memRepo mimics the Postgres repository's commit-time guards (guarded
// counter updates, one open loan per user per book) behind a mutex.
type memRepo struct {
	mu     sync.Mutex
	books  map[int64]*model.Book
	loans  map[int64]*model.Loan
	nextID int64
}

var _ loanrepo.Repo = (*memRepo)(nil)

func newMemRepo(books ...*model.Book) *memRepo {
	r := &memRepo{
		books: make(map[int64]*model.Book),
		loans: make(map[int64]*model.Loan),
	}
	for _, b := range books {
		cp := *b
		r.books[b.ID] = &cp
	}
	return r
}

func (r *memRepo) FindBook(_ context.Context, bookID int64) (*model.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.books[bookID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *b
	return &cp, nil
}

func (r *memRepo) ListOpenByUser(_ context.Context, userID int64) ([]model.Loan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Loan
	for _, l := range r.loans {
		if l.UserID == userID && l.Open() {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (r *memRepo) CreateLoan(_ context.Context, l *model.Loan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.books[l.BookID]
	if !ok || b.AvailableCopies < 1 {
		return loanrepo.ErrNoCopies
	}
	for _, ex := range r.loans {
		if ex.UserID == l.UserID && ex.BookID == l.BookID && ex.Open() {
			return loanrepo.ErrOpenLoanExists
		}
	}
	b.AvailableCopies--
	r.nextID++
	l.ID = r.nextID
	l.CreatedAt = time.Now().UTC()
	cp := *l
	r.loans[l.ID] = &cp
	return nil
}

func (r *memRepo) MarkReturned(_ context.Context, loanID int64, at time.Time) (*model.Loan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.loans[loanID]
	if !ok || !l.Open() {
		return nil, loanrepo.ErrNotOpen
	}
	b := r.books[l.BookID]
	if b.AvailableCopies >= b.TotalCopies {
		return nil, loanrepo.ErrCounterBroken
	}
	l.Status = model.LoanReturned
	ret := at
	l.ReturnDate = &ret
	b.AvailableCopies++
	cp := *l
	return &cp, nil
}

func (r *memRepo) MarkOverdue(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, l := range r.loans {
		if l.Status == model.LoanBorrowed && l.DueDate.Before(now) {
			l.Status = model.LoanOverdue
			n++
		}
	}
	return n, nil
}

func (r *memRepo) Get(_ context.Context, loanID int64) (*model.Loan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.loans[loanID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *l
	return &cp, nil
}

func (r *memRepo) List(_ context.Context) ([]model.Loan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Loan
	for _, l := range r.loans {
		out = append(out, *l)
	}
	return out, nil
}

func (r *memRepo) ListByUser(_ context.Context, userID int64) ([]model.Loan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Loan
	for _, l := range r.loans {
		if l.UserID == userID {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (r *memRepo) ListActiveByUser(ctx context.Context, userID int64) ([]model.Loan, error) {
	return r.ListOpenByUser(ctx, userID)
}

func (r *memRepo) ListOverdue(_ context.Context) ([]model.Loan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Loan
	for _, l := range r.loans {
		if l.Status == model.LoanOverdue {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (r *memRepo) CountByStatus(_ context.Context) (int64, map[model.LoanStatus]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byStatus := make(map[model.LoanStatus]int64)
	var total int64
	for _, l := range r.loans {
		byStatus[l.Status]++
		total++
	}
	return total, byStatus, nil
}

func (r *memRepo) Delete(_ context.Context, loanID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.loans[loanID]; !ok {
		return 0, nil
	}
	delete(r.loans, loanID)
	return 1, nil
}

func (r *memRepo) availableCopies(bookID int64) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.books[bookID].AvailableCopies
}

func (r *memRepo) openLoanCount(bookID int64) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, l := range r.loans {
		if l.BookID == bookID && l.Open() {
			n++
		}
	}
	return n
}
