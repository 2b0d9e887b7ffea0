package booksvc

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"booklending/model"
	bookrepo "booklending/repository/book"
)

var (
	ErrInvalidPayload = errors.New("invalid payload")
	ErrNotFound       = errors.New("book not found")
	ErrISBNTaken      = bookrepo.ErrISBNTaken
	ErrHasLoans       = bookrepo.ErrHasLoans
	ErrBadRestock     = errors.New("restock would take copy counters out of range")

	// ErrCorrupted: the projected availability disagrees with the stored
	// counter. Reported, never repaired.
	ErrCorrupted = errors.New("availability projection disagrees with stored counter")
)

type CreateReq struct {
	Title         string
	Author        string
	ISBN          string
	Category      string
	PublishedYear int
	Location      string
	TotalCopies   int64
}

// SearchResult is a page of the availability view.
type SearchResult struct {
	Books      []model.BookView `json:"books"`
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
	Total      int64            `json:"total"`
	TotalPages int64            `json:"total_pages"`
}

type Service interface {
	Create(ctx context.Context, req CreateReq) (*model.Book, error)
	Detail(ctx context.Context, id int64) (*model.BookView, error)
	Update(ctx context.Context, id int64, upd bookrepo.BookUpdate) (*model.Book, error)
	Delete(ctx context.Context, id int64) error
	Restock(ctx context.Context, id int64, delta int64) (*model.Book, error)
	// Search lists books with availability computed from open loans.
	Search(ctx context.Context, f bookrepo.SearchFilter, page, pageSize int) (*SearchResult, error)
}

type service struct {
	r   bookrepo.Repo
	log *slog.Logger
}

func New(r bookrepo.Repo, log *slog.Logger) Service { return &service{r: r, log: log} }

func (s *service) Create(ctx context.Context, req CreateReq) (*model.Book, error) {
	if req.Title == "" || req.Author == "" || req.ISBN == "" || req.TotalCopies < 0 {
		return nil, ErrInvalidPayload
	}
	b := &model.Book{
		Title:         req.Title,
		Author:        req.Author,
		ISBN:          req.ISBN,
		Category:      req.Category,
		PublishedYear: req.PublishedYear,
		Location:      req.Location,
		TotalCopies:   req.TotalCopies,
	}
	if err := s.r.Create(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *service) Detail(ctx context.Context, id int64) (*model.BookView, error) {
	v, err := s.r.Detail(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := s.checkProjection(v); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *service) Update(ctx context.Context, id int64, upd bookrepo.BookUpdate) (*model.Book, error) {
	b, err := s.r.Update(ctx, id, upd)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return b, nil
}

func (s *service) Delete(ctx context.Context, id int64) error {
	n, err := s.r.Delete(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *service) Restock(ctx context.Context, id int64, delta int64) (*model.Book, error) {
	if delta == 0 {
		return nil, ErrInvalidPayload
	}
	b, err := s.r.Restock(ctx, id, delta)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrNotFound
		case errors.Is(err, bookrepo.ErrCopiesOutOfRange):
			return nil, ErrBadRestock
		}
		return nil, err
	}
	return b, nil
}

func (s *service) Search(ctx context.Context, f bookrepo.SearchFilter, page, pageSize int) (*SearchResult, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	if pageSize > 100 {
		pageSize = 100
	}

	books, total, err := s.r.Search(ctx, f, page, pageSize)
	if err != nil {
		return nil, err
	}
	for i := range books {
		if err := s.checkProjection(&books[i]); err != nil {
			return nil, err
		}
	}

	totalPages := (total + int64(pageSize) - 1) / int64(pageSize)
	return &SearchResult{
		Books:      books,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
	}, nil
}

// checkProjection verifies that total - open loans equals the stored
// counter. The borrowing engine keeps them synchronized; disagreement
// means corruption and is surfaced, not clamped.
func (s *service) checkProjection(v *model.BookView) error {
	if v.TotalCopies-v.OpenLoans != v.AvailableCopies {
		s.log.Error("availability projection mismatch",
			"book_id", v.ID,
			"total", v.TotalCopies,
			"open_loans", v.OpenLoans,
			"stored_available", v.AvailableCopies)
		return ErrCorrupted
	}
	return nil
}
