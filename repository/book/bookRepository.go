package bookrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"booklending/model"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrISBNTaken = errors.New("isbn already registered")
	// ErrHasLoans: loans still reference the book, delete is refused.
	ErrHasLoans = errors.New("book has loan records")
	// ErrCopiesOutOfRange: the adjustment tripped the copy counter CHECK.
	ErrCopiesOutOfRange = errors.New("copy counters out of range")
)

// SearchFilter narrows catalog search. Title, author and category match as
// case-insensitive substrings; the rest match exactly. Status filters on
// the computed availability.
type SearchFilter struct {
	Title         string
	Author        string
	Category      string
	ISBN          string
	Location      string
	PublishedYear int
	Status        model.BookStatus
}

// BookUpdate carries partial metadata updates. Nil fields keep the stored
// value. Copy counters are deliberately absent: only the borrowing engine
// and Restock touch those.
type BookUpdate struct {
	Title         *string
	Author        *string
	ISBN          *string
	Category      *string
	PublishedYear *int
	Location      *string
}

type Repo interface {
	Create(ctx context.Context, b *model.Book) error
	Detail(ctx context.Context, id int64) (*model.BookView, error)
	Update(ctx context.Context, id int64, upd BookUpdate) (*model.Book, error)
	Delete(ctx context.Context, id int64) (int64, error)
	// Restock adjusts total and available copies by the same delta.
	Restock(ctx context.Context, id int64, delta int64) (*model.Book, error)
	Search(ctx context.Context, f SearchFilter, page, pageSize int) ([]model.BookView, int64, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db: db} }

func (r *repo) Create(ctx context.Context, b *model.Book) error {
	const q = `
		INSERT INTO books (title, author, isbn, category, published_year, location, total_copies, available_copies)
		VALUES ($1, $2, $3, $4, NULLIF($5, 0), $6, $7, $7)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, q,
		b.Title, b.Author, b.ISBN, b.Category, b.PublishedYear, b.Location, b.TotalCopies,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrISBNTaken
		}
		return err
	}
	b.AvailableCopies = b.TotalCopies
	return nil
}

const viewCols = `
	b.id, b.title, b.author, b.isbn, b.category, COALESCE(b.published_year, 0), b.location,
	b.total_copies, b.available_copies, b.created_at, b.updated_at,
	COALESCE(COUNT(l.*) FILTER (WHERE l.status IN ('BORROWED', 'OVERDUE')), 0)::BIGINT AS open_loans`

func scanView(row interface{ Scan(...any) error }) (*model.BookView, error) {
	var v model.BookView
	err := row.Scan(
		&v.ID, &v.Title, &v.Author, &v.ISBN, &v.Category, &v.PublishedYear, &v.Location,
		&v.TotalCopies, &v.AvailableCopies, &v.CreatedAt, &v.UpdatedAt, &v.OpenLoans,
	)
	if err != nil {
		return nil, err
	}
	if v.OpenLoans > 0 {
		v.Status = model.BookBorrowed
	} else {
		v.Status = model.BookAvailable
	}
	return &v, nil
}

func (r *repo) Detail(ctx context.Context, id int64) (*model.BookView, error) {
	const q = `
		SELECT ` + viewCols + `
		FROM books b
		LEFT JOIN loans l ON l.book_id = b.id
		WHERE b.id = $1
		GROUP BY b.id`
	return scanView(r.db.QueryRowContext(ctx, q, id))
}

func (r *repo) Update(ctx context.Context, id int64, upd BookUpdate) (*model.Book, error) {
	const q = `
		UPDATE books
		SET title = COALESCE($2, title),
		    author = COALESCE($3, author),
		    isbn = COALESCE($4, isbn),
		    category = COALESCE($5, category),
		    published_year = COALESCE($6, published_year),
		    location = COALESCE($7, location),
		    updated_at = now()
		WHERE id = $1
		RETURNING id, title, author, isbn, category, COALESCE(published_year, 0), location,
		          total_copies, available_copies, created_at, updated_at`
	var b model.Book
	err := r.db.QueryRowContext(ctx, q, id,
		upd.Title, upd.Author, upd.ISBN, upd.Category, upd.PublishedYear, upd.Location,
	).Scan(
		&b.ID, &b.Title, &b.Author, &b.ISBN, &b.Category, &b.PublishedYear, &b.Location,
		&b.TotalCopies, &b.AvailableCopies, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrISBNTaken
		}
		return nil, err
	}
	return &b, nil
}

func (r *repo) Delete(ctx context.Context, id int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return 0, ErrHasLoans
		}
		return 0, err
	}
	return res.RowsAffected()
}

func (r *repo) Restock(ctx context.Context, id int64, delta int64) (*model.Book, error) {
	// Both counters move together; the table CHECK rejects a delta that
	// would take either counter out of range.
	const q = `
		UPDATE books
		SET total_copies = total_copies + $2,
		    available_copies = available_copies + $2,
		    updated_at = now()
		WHERE id = $1
		RETURNING id, title, author, isbn, category, COALESCE(published_year, 0), location,
		          total_copies, available_copies, created_at, updated_at`
	var b model.Book
	err := r.db.QueryRowContext(ctx, q, id, delta).Scan(
		&b.ID, &b.Title, &b.Author, &b.ISBN, &b.Category, &b.PublishedYear, &b.Location,
		&b.TotalCopies, &b.AvailableCopies, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.CheckViolation {
			return nil, ErrCopiesOutOfRange
		}
		return nil, err
	}
	return &b, nil
}

func (r *repo) Search(ctx context.Context, f SearchFilter, page, pageSize int) ([]model.BookView, int64, error) {
	where, args := buildFilter(f)

	having := ""
	switch f.Status {
	case model.BookAvailable:
		having = `HAVING COUNT(l.*) FILTER (WHERE l.status IN ('BORROWED', 'OVERDUE')) = 0`
	case model.BookBorrowed:
		having = `HAVING COUNT(l.*) FILTER (WHERE l.status IN ('BORROWED', 'OVERDUE')) > 0`
	}

	base := `
		FROM books b
		LEFT JOIN loans l ON l.book_id = b.id
		` + where + `
		GROUP BY b.id
		` + having

	countQ := `SELECT COUNT(*) FROM (SELECT b.id ` + base + `) sub`
	var total int64
	if err := r.db.QueryRowContext(ctx, countQ, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	listQ := fmt.Sprintf(`SELECT %s %s ORDER BY b.title ASC, b.id ASC LIMIT $%d OFFSET $%d`,
		viewCols, base, len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, listQ, append(args, pageSize, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []model.BookView
	for rows.Next() {
		v, err := scanView(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *v)
	}
	return out, total, rows.Err()
}

func buildFilter(f SearchFilter) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.Title != "" {
		add(`b.title ILIKE '%%' || $%d || '%%'`, f.Title)
	}
	if f.Author != "" {
		add(`b.author ILIKE '%%' || $%d || '%%'`, f.Author)
	}
	if f.Category != "" {
		add(`b.category ILIKE '%%' || $%d || '%%'`, f.Category)
	}
	if f.ISBN != "" {
		add(`b.isbn = $%d`, f.ISBN)
	}
	if f.Location != "" {
		add(`b.location = $%d`, f.Location)
	}
	if f.PublishedYear != 0 {
		add(`b.published_year = $%d`, f.PublishedYear)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
