// repository/loan/repo.go
package loanrepo

import (
	"context"
	"database/sql"
	"errors"

	"time"

	"booklending/model"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNoCopies: the guarded decrement found no copy left at commit time.
	ErrNoCopies = errors.New("no copies available")
	// ErrOpenLoanExists: the partial unique index rejected a second open
	// loan for the same (user, book).
	ErrOpenLoanExists = errors.New("open loan already exists")
	// ErrNotOpen: the loan was not in an open state at commit time.
	ErrNotOpen = errors.New("loan not open")
	// ErrCounterBroken: incrementing available_copies would exceed
	// total_copies. A prior consistency violation, never repaired here.
	ErrCounterBroken = errors.New("available copies counter out of range")
)

type Repo interface {
	FindBook(ctx context.Context, bookID int64) (*model.Book, error)
	ListOpenByUser(ctx context.Context, userID int64) ([]model.Loan, error)

	// CreateLoan decrements the book's available copies and inserts the
	// loan as one transaction.
	CreateLoan(ctx context.Context, l *model.Loan) error
	// MarkReturned closes an open loan and gives its copy back as one
	// transaction.
	MarkReturned(ctx context.Context, loanID int64, at time.Time) (*model.Loan, error)
	// MarkOverdue transitions every BORROWED loan past due to OVERDUE.
	MarkOverdue(ctx context.Context, now time.Time) (int64, error)

	Get(ctx context.Context, loanID int64) (*model.Loan, error)
	List(ctx context.Context) ([]model.Loan, error)
	ListByUser(ctx context.Context, userID int64) ([]model.Loan, error)
	ListActiveByUser(ctx context.Context, userID int64) ([]model.Loan, error)
	ListOverdue(ctx context.Context) ([]model.Loan, error)
	CountByStatus(ctx context.Context) (int64, map[model.LoanStatus]int64, error)
	Delete(ctx context.Context, loanID int64) (int64, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db: db} }

const loanCols = `id, user_id, book_id, borrow_date, due_date, return_date, status, created_at`

func scanLoan(row interface{ Scan(...any) error }) (*model.Loan, error) {
	var l model.Loan
	err := row.Scan(&l.ID, &l.UserID, &l.BookID, &l.BorrowDate, &l.DueDate, &l.ReturnDate, &l.Status, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *repo) FindBook(ctx context.Context, bookID int64) (*model.Book, error) {
	const q = `
		SELECT id, title, author, isbn, category, COALESCE(published_year, 0), location,
		       total_copies, available_copies, created_at, updated_at
		FROM books
		WHERE id = $1`
	var b model.Book
	err := r.db.QueryRowContext(ctx, q, bookID).Scan(
		&b.ID, &b.Title, &b.Author, &b.ISBN, &b.Category, &b.PublishedYear, &b.Location,
		&b.TotalCopies, &b.AvailableCopies, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *repo) ListOpenByUser(ctx context.Context, userID int64) ([]model.Loan, error) {
	const q = `
		SELECT ` + loanCols + `
		FROM loans
		WHERE user_id = $1
		AND status IN ('BORROWED', 'OVERDUE')
		ORDER BY borrow_date DESC`
	return r.queryLoans(ctx, q, userID)
}

// CreateLoan re-checks copy availability at the moment of mutation: the
// decrement only applies while available_copies >= 1, and the loan insert
// shares its transaction. Either both happen or neither does.
func (r *repo) CreateLoan(ctx context.Context, l *model.Loan) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const dec = `
		UPDATE books
		SET available_copies = available_copies - 1,
		    updated_at = now()
		WHERE id = $1
		AND available_copies >= 1`
	res, err := tx.ExecContext(ctx, dec, l.BookID)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		return ErrNoCopies
	}

	const ins = `
		INSERT INTO loans (user_id, book_id, borrow_date, due_date, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`
	err = tx.QueryRowContext(ctx, ins, l.UserID, l.BookID, l.BorrowDate, l.DueDate, l.Status).
		Scan(&l.ID, &l.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			err = ErrOpenLoanExists
		}
		return err
	}

	return tx.Commit()
}

// MarkReturned guards both steps: the status flip only applies to an open
// loan, and the increment only while it stays within total_copies. An
// increment that would overflow signals corruption and rolls back.
func (r *repo) MarkReturned(ctx context.Context, loanID int64, at time.Time) (_ *model.Loan, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const ret = `
		UPDATE loans
		SET status = 'RETURNED',
		    return_date = $2
		WHERE id = $1
		AND status IN ('BORROWED', 'OVERDUE')
		RETURNING ` + loanCols
	l, err := scanLoan(tx.QueryRowContext(ctx, ret, loanID, at))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrNotOpen
		}
		return nil, err
	}

	const inc = `
		UPDATE books
		SET available_copies = available_copies + 1,
		    updated_at = now()
		WHERE id = $1
		AND available_copies < total_copies`
	res, err := tx.ExecContext(ctx, inc, l.BookID)
	if err != nil {
		return nil, err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		err = ErrCounterBroken
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return l, nil
}

func (r *repo) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	// Status is re-checked in the WHERE clause, so a concurrently
	// returned loan cannot be resurrected.
	const q = `
		UPDATE loans
		SET status = 'OVERDUE'
		WHERE status = 'BORROWED'
		AND due_date < $1`
	res, err := r.db.ExecContext(ctx, q, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *repo) Get(ctx context.Context, loanID int64) (*model.Loan, error) {
	const q = `SELECT ` + loanCols + ` FROM loans WHERE id = $1`
	return scanLoan(r.db.QueryRowContext(ctx, q, loanID))
}

func (r *repo) List(ctx context.Context) ([]model.Loan, error) {
	const q = `SELECT ` + loanCols + ` FROM loans ORDER BY borrow_date DESC, id DESC`
	return r.queryLoans(ctx, q)
}

func (r *repo) ListByUser(ctx context.Context, userID int64) ([]model.Loan, error) {
	const q = `
		SELECT ` + loanCols + `
		FROM loans
		WHERE user_id = $1
		ORDER BY borrow_date DESC, id DESC`
	return r.queryLoans(ctx, q, userID)
}

func (r *repo) ListActiveByUser(ctx context.Context, userID int64) ([]model.Loan, error) {
	return r.ListOpenByUser(ctx, userID)
}

func (r *repo) ListOverdue(ctx context.Context) ([]model.Loan, error) {
	const q = `
		SELECT ` + loanCols + `
		FROM loans
		WHERE status = 'OVERDUE'
		ORDER BY due_date ASC`
	return r.queryLoans(ctx, q)
}

func (r *repo) CountByStatus(ctx context.Context) (int64, map[model.LoanStatus]int64, error) {
	const q = `SELECT status, COUNT(*) FROM loans GROUP BY status`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return 0, nil, err
	}
	defer rows.Close()

	var total int64
	byStatus := make(map[model.LoanStatus]int64)
	for rows.Next() {
		var st model.LoanStatus
		var n int64
		if err := rows.Scan(&st, &n); err != nil {
			return 0, nil, err
		}
		byStatus[st] = n
		total += n
	}
	return total, byStatus, rows.Err()
}

func (r *repo) Delete(ctx context.Context, loanID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM loans WHERE id = $1`, loanID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *repo) queryLoans(ctx context.Context, q string, args ...any) ([]model.Loan, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Loan
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
