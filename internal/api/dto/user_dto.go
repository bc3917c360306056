package dto

import (
	"time"

	"github.com/spec-kit/bankcards-service/internal/domain"
	"github.com/spec-kit/bankcards-service/internal/service"
)

// UserRegisterRequest payload for new users.
type UserRegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=6,max=100"`
}

// UserLoginRequest payload for login.
type UserLoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RefreshTokenRequest payload for the token refresh endpoint.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	AccessToken      string       `json:"access_token"`
	AccessExpiresAt  time.Time    `json:"access_expires_at"`
	RefreshToken     string       `json:"refresh_token"`
	RefreshExpiresAt time.Time    `json:"refresh_expires_at"`
	User             UserResponse `json:"user"`
}

// UserResponse is the public view of a user.
type UserResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// AdminCreateUserRequest payload for admin user creation.
type AdminCreateUserRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=6,max=100"`
	Role     string `json:"role" validate:"required,oneof=USER ADMIN"`
}

// AdminUpdateUserRequest payload for partial user updates.
type AdminUpdateUserRequest struct {
	Username *string `json:"username" validate:"omitnil,min=3,max=50"`
	Password *string `json:"password" validate:"omitnil,min=6,max=100"`
	Role     *string `json:"role" validate:"omitnil,oneof=USER ADMIN"`
}

// ToInput converts the payload for the service layer.
func (r AdminUpdateUserRequest) ToInput() service.UserUpdateInput {
	in := service.UserUpdateInput{Username: r.Username, Password: r.Password}
	if r.Role != nil {
		role := domain.Role(*r.Role)
		in.Role = &role
	}
	return in
}

// UserPageResponse wraps a page of users.
type UserPageResponse struct {
	Content       []UserResponse `json:"content"`
	Page          int            `json:"page"`
	Size          int            `json:"size"`
	TotalElements int            `json:"total_elements"`
	TotalPages    int            `json:"total_pages"`
}

// NewUserResponse maps a domain user.
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{ID: u.ID, Username: u.Username, Role: string(u.Role)}
}

// NewAuthResponse combines a user with its token pair.
func NewAuthResponse(u *domain.User, pair *domain.TokenPair) AuthResponse {
	return AuthResponse{
		AccessToken:      pair.AccessToken,
		AccessExpiresAt:  pair.AccessExpiresAt,
		RefreshToken:     pair.RefreshToken,
		RefreshExpiresAt: pair.RefreshExpiresAt,
		User:             NewUserResponse(u),
	}
}

// NewUserPageResponse maps a service page.
func NewUserPageResponse(p *service.UserPage) UserPageResponse {
	content := make([]UserResponse, 0, len(p.Items))
	for i := range p.Items {
		content = append(content, NewUserResponse(&p.Items[i]))
	}
	return UserPageResponse{
		Content:       content,
		Page:          p.Page,
		Size:          p.Size,
		TotalElements: p.Total,
		TotalPages:    totalPages(p.Total, p.Size),
	}
}
