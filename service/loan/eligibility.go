package loansvc

import (
	"time"

	"booklending/model"
)

// Snapshot is the read-side state the eligibility rules run against. It is
// taken before the write; the repository re-validates copy availability at
// commit time.
type Snapshot struct {
	Book      *model.Book
	OpenLoans []model.Loan // the requesting user's open loans
}

// CheckEligibility decides whether a new loan may be created. Rules run in
// order, first failure wins:
//
//  1. the book must exist
//  2. at least one copy must be available
//  3. the user must hold no overdue loans (an unswept BORROWED loan past
//     its due date counts)
//  4. the user must not already hold an open loan on this book
//
// Read-only; no side effects.
func CheckEligibility(snap Snapshot, bookID int64, now time.Time) error {
	if snap.Book == nil {
		return makeErr(ErrBookNotFound)
	}
	if snap.Book.AvailableCopies < 0 || snap.Book.AvailableCopies > snap.Book.TotalCopies {
		return makeErr(ErrCorruption)
	}
	if snap.Book.AvailableCopies < 1 {
		return makeErr(ErrNoCopies)
	}
	for _, l := range snap.OpenLoans {
		if l.OverdueAt(now) {
			return makeErr(ErrOverdueBooks)
		}
	}
	for _, l := range snap.OpenLoans {
		if l.BookID == bookID {
			return makeErr(ErrAlreadyBorrowed)
		}
	}
	return nil
}
