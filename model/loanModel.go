// model/loan.go
package model

import "time"

type LoanStatus string

const (
	LoanBorrowed LoanStatus = "BORROWED"
	LoanOverdue  LoanStatus = "OVERDUE"
	LoanReturned LoanStatus = "RETURNED"
)

// DefaultLoanPeriod is added to the borrow date when no due date is given.
const DefaultLoanPeriod = 14 * 24 * time.Hour

type Loan struct {
	ID         int64      `json:"id"`
	UserID     int64      `json:"user_id"`
	BookID     int64      `json:"book_id"`
	BorrowDate time.Time  `json:"borrow_date"`
	DueDate    time.Time  `json:"due_date"`
	ReturnDate *time.Time `json:"return_date,omitempty"`
	Status     LoanStatus `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Open reports whether the loan still holds a copy.
func (l Loan) Open() bool {
	return l.Status == LoanBorrowed || l.Status == LoanOverdue
}

// OverdueAt reports whether the loan counts as overdue at the given time.
// A BORROWED loan past its due date counts even before the sweep has run.
func (l Loan) OverdueAt(now time.Time) bool {
	if l.Status == LoanOverdue {
		return true
	}
	return l.Status == LoanBorrowed && l.DueDate.Before(now)
}

// CanTransition is the loan state machine. The sweep moves BORROWED to
// OVERDUE, a return closes either open state. Nothing else is legal.
func CanTransition(from, to LoanStatus) bool {
	switch from {
	case LoanBorrowed:
		return to == LoanOverdue || to == LoanReturned
	case LoanOverdue:
		return to == LoanReturned
	default:
		return false
	}
}
