package user

type UpdateUserReq struct {
	Name     *string `json:"name"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Phone    *string `json:"phone"`
	Role     *string `json:"role" validate:"omitempty,oneof=user librarian admin"`
	Password *string `json:"password" validate:"omitempty,min=6"`
}
