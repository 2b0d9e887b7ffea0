package book

type CreateBookReq struct {
	Title         string `json:"title" validate:"required"`
	Author        string `json:"author" validate:"required"`
	ISBN          string `json:"isbn" validate:"required"`
	Category      string `json:"category"`
	PublishedYear int    `json:"published_year" validate:"omitempty,gte=1000,lte=2100"`
	Location      string `json:"location"`
	TotalCopies   int64  `json:"total_copies" validate:"gte=0"`
}

type UpdateBookReq struct {
	Title         *string `json:"title"`
	Author        *string `json:"author"`
	ISBN          *string `json:"isbn"`
	Category      *string `json:"category"`
	PublishedYear *int    `json:"published_year" validate:"omitempty,gte=1000,lte=2100"`
	Location      *string `json:"location"`
}

type RestockReq struct {
	Delta int64 `json:"delta" validate:"required"`
}
