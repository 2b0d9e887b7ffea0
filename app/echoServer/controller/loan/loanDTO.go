package loan

type CreateLoanReq struct {
	BookID int64 `json:"book_id" validate:"required,gt=0"`
	// UserID is optional; staff may borrow on behalf of another member.
	UserID     int64  `json:"user_id" validate:"omitempty,gt=0"`
	BorrowDate string `json:"borrow_date" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	DueDate    string `json:"due_date" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

type ReturnLoanReq struct {
	ReturnDate string `json:"return_date" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}
