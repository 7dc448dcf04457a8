package dto

import "github.com/polterabyte/inventory-ctrl-api/internal/models"

// CreateUserRequest registers a new account.
type CreateUserRequest struct {
	Email    string          `json:"email" validate:"required,email"`
	Password string          `json:"password" validate:"required,min=6"`
	FullName string          `json:"full_name" validate:"required,min=2,max=150"`
	Role     models.UserRole `json:"role" validate:"required"`
}

// UpdateUserRequest updates profile fields. Nil fields are left untouched.
type UpdateUserRequest struct {
	FullName *string          `json:"full_name,omitempty" validate:"omitempty,min=2,max=150"`
	Role     *models.UserRole `json:"role,omitempty"`
	Active   *bool            `json:"active,omitempty"`
}

// UserQuery mirrors supported user listing filters.
type UserQuery struct {
	Role      string
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
