package loansvc

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"booklending/model"
	loanrepo "booklending/repository/loan"
	"booklending/util/authz"
)

// errors used by controllers

type ErrCode string

const (
	ErrBookNotFound    ErrCode = "BOOK_NOT_FOUND"
	ErrLoanNotFound    ErrCode = "LOAN_NOT_FOUND"
	ErrNoCopies        ErrCode = "NO_COPIES_AVAILABLE"
	ErrOverdueBooks    ErrCode = "USER_HAS_OVERDUE_BOOKS"
	ErrAlreadyBorrowed ErrCode = "ALREADY_BORROWED"
	ErrAlreadyReturned ErrCode = "ALREADY_RETURNED"
	ErrForbidden       ErrCode = "FORBIDDEN"
	ErrInvalidInput    ErrCode = "INVALID_INPUT"
	ErrLoanStillOpen   ErrCode = "LOAN_STILL_OPEN"

	// ErrCorruption means the inventory counter was observed outside
	// [0, total_copies]. Surfaced for operator intervention, never
	// silently repaired, never a business failure.
	ErrCorruption ErrCode = "CORRUPTION"
)

type codedError struct{ code ErrCode }

func (e codedError) Error() string { return string(e.code) }
func (e codedError) Code() ErrCode { return e.code }
func makeErr(c ErrCode) error      { return codedError{code: c} }

// Code extracts error code
func Code(err error) ErrCode {
	var ce interface{ Code() ErrCode }
	if errors.As(err, &ce) {
		return ce.Code()
	}
	return ""
}

// Caller identifies the already-authenticated principal invoking an
// operation.
type Caller struct {
	ID   int64
	Role string
}

type CreateReq struct {
	UserID     int64 // 0 means the caller borrows for themself
	BookID     int64
	BorrowDate *time.Time
	DueDate    *time.Time
}

// Stats counts loans grouped by status.
type Stats struct {
	Total    int64                      `json:"total"`
	ByStatus map[model.LoanStatus]int64 `json:"by_status"`
}

type Service interface {
	// Create runs the eligibility rules against a snapshot, then commits
	// the copy decrement and loan insert atomically.
	Create(ctx context.Context, caller Caller, req CreateReq) (*model.Loan, error)

	// Return closes an open loan and frees its copy.
	Return(ctx context.Context, caller Caller, loanID int64, returnDate *time.Time) (*model.Loan, error)

	// Sweep transitions aged-out BORROWED loans to OVERDUE. Idempotent.
	Sweep(ctx context.Context, now time.Time) (int64, error)

	Get(ctx context.Context, loanID int64) (*model.Loan, error)
	List(ctx context.Context) ([]model.Loan, error)
	ListByUser(ctx context.Context, caller Caller, userID int64) ([]model.Loan, error)
	ListActiveByUser(ctx context.Context, caller Caller, userID int64) ([]model.Loan, error)
	ListOverdue(ctx context.Context) ([]model.Loan, error)
	GetStats(ctx context.Context) (*Stats, error)

	// Remove hard-deletes a loan record. Admin only, enforced at the
	// routes layer. Refused while the loan is open: deleting an open loan
	// would strand the copy it holds and desync the book's counter.
	Remove(ctx context.Context, loanID int64) error
}

type service struct {
	r   loanrepo.Repo
	log *slog.Logger
	now func() time.Time
}

func New(r loanrepo.Repo, log *slog.Logger) Service {
	return &service{r: r, log: log, now: func() time.Time { return time.Now().UTC() }}
}

func (s *service) Create(ctx context.Context, caller Caller, req CreateReq) (*model.Loan, error) {
	userID := req.UserID
	if userID == 0 {
		userID = caller.ID
	}
	// Plain users borrow for themselves only; staff may borrow on behalf
	// of any member.
	if userID != caller.ID && !authz.Staff(caller.Role) {
		return nil, makeErr(ErrForbidden)
	}

	now := s.now()
	borrowDate := now
	if req.BorrowDate != nil {
		borrowDate = req.BorrowDate.UTC()
	}
	dueDate := borrowDate.Add(model.DefaultLoanPeriod)
	if req.DueDate != nil {
		dueDate = req.DueDate.UTC()
	}
	if !dueDate.After(borrowDate) {
		return nil, makeErr(ErrInvalidInput)
	}

	// Optimistic check against a read snapshot. The repo re-validates
	// copy availability and open-loan uniqueness at commit time.
	snap, err := s.snapshot(ctx, userID, req.BookID)
	if err != nil {
		return nil, err
	}
	if err := CheckEligibility(snap, req.BookID, now); err != nil {
		if Code(err) == ErrCorruption {
			s.log.Error("inventory counter out of range",
				"book_id", req.BookID,
				"available", snap.Book.AvailableCopies,
				"total", snap.Book.TotalCopies)
		}
		return nil, err
	}

	l := &model.Loan{
		UserID:     userID,
		BookID:     req.BookID,
		BorrowDate: borrowDate,
		DueDate:    dueDate,
		Status:     model.LoanBorrowed,
	}
	if err := s.r.CreateLoan(ctx, l); err != nil {
		switch {
		case errors.Is(err, loanrepo.ErrNoCopies):
			return nil, makeErr(ErrNoCopies)
		case errors.Is(err, loanrepo.ErrOpenLoanExists):
			return nil, makeErr(ErrAlreadyBorrowed)
		}
		return nil, err
	}
	return l, nil
}

func (s *service) snapshot(ctx context.Context, userID, bookID int64) (Snapshot, error) {
	book, err := s.r.FindBook(ctx, bookID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Snapshot{}, makeErr(ErrBookNotFound)
		}
		return Snapshot{}, err
	}
	open, err := s.r.ListOpenByUser(ctx, userID)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Book: book, OpenLoans: open}, nil
}

func (s *service) Return(ctx context.Context, caller Caller, loanID int64, returnDate *time.Time) (*model.Loan, error) {
	l, err := s.r.Get(ctx, loanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrLoanNotFound)
		}
		return nil, err
	}
	if !authz.CanActOnLoan(caller.Role, caller.ID, l.UserID) {
		return nil, makeErr(ErrForbidden)
	}
	if !model.CanTransition(l.Status, model.LoanReturned) {
		return nil, makeErr(ErrAlreadyReturned)
	}

	at := s.now()
	if returnDate != nil {
		at = returnDate.UTC()
	}
	returned, err := s.r.MarkReturned(ctx, loanID, at)
	if err != nil {
		switch {
		case errors.Is(err, loanrepo.ErrNotOpen):
			// Lost the race against another return.
			return nil, makeErr(ErrAlreadyReturned)
		case errors.Is(err, loanrepo.ErrCounterBroken):
			s.log.Error("return would push available copies past total",
				"loan_id", loanID, "book_id", l.BookID)
			return nil, makeErr(ErrCorruption)
		}
		return nil, err
	}
	return returned, nil
}

func (s *service) Sweep(ctx context.Context, now time.Time) (int64, error) {
	return s.r.MarkOverdue(ctx, now)
}

func (s *service) Get(ctx context.Context, loanID int64) (*model.Loan, error) {
	l, err := s.r.Get(ctx, loanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrLoanNotFound)
		}
		return nil, err
	}
	return l, nil
}

func (s *service) List(ctx context.Context) ([]model.Loan, error) {
	return s.r.List(ctx)
}

func (s *service) ListByUser(ctx context.Context, caller Caller, userID int64) ([]model.Loan, error) {
	return s.r.ListByUser(ctx, authz.ScopeUserID(caller.Role, caller.ID, userID))
}

func (s *service) ListActiveByUser(ctx context.Context, caller Caller, userID int64) ([]model.Loan, error) {
	return s.r.ListActiveByUser(ctx, authz.ScopeUserID(caller.Role, caller.ID, userID))
}

func (s *service) ListOverdue(ctx context.Context) ([]model.Loan, error) {
	return s.r.ListOverdue(ctx)
}

func (s *service) GetStats(ctx context.Context) (*Stats, error) {
	total, byStatus, err := s.r.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	st := &Stats{Total: total, ByStatus: byStatus}
	for _, k := range []model.LoanStatus{model.LoanBorrowed, model.LoanOverdue, model.LoanReturned} {
		if _, ok := st.ByStatus[k]; !ok {
			st.ByStatus[k] = 0
		}
	}
	return st, nil
}

func (s *service) Remove(ctx context.Context, loanID int64) error {
	l, err := s.r.Get(ctx, loanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return makeErr(ErrLoanNotFound)
		}
		return err
	}
	// RETURNED is terminal, so the check cannot go stale before the delete.
	if l.Open() {
		return makeErr(ErrLoanStillOpen)
	}
	n, err := s.r.Delete(ctx, loanID)
	if err != nil {
		return err
	}
	if n == 0 {
		return makeErr(ErrLoanNotFound)
	}
	return nil
}
