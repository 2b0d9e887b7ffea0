// model/book.go
package model

import "time"

type BookStatus string

const (
	BookAvailable BookStatus = "available"
	BookBorrowed  BookStatus = "borrowed"
)

type Book struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	Author          string    `json:"author"`
	ISBN            string    `json:"isbn"`
	Category        string    `json:"category,omitempty"`
	PublishedYear   int       `json:"published_year,omitempty"`
	Location        string    `json:"location,omitempty"`
	TotalCopies     int64     `json:"total_copies"`
	AvailableCopies int64     `json:"available_copies"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// BookView is a Book plus the availability computed from open loans,
// as returned by catalog search.
type BookView struct {
	Book
	Status    BookStatus `json:"status"`
	OpenLoans int64      `json:"open_loans"`
}
