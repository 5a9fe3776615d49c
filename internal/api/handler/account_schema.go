package handler

import (
	"time"

	"github.com/issuedesk/tracker/internal/core/domain"
)

// --- Request types ---

type registerRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
	FirstName       string `json:"first_name" validate:"max=150"`
	LastName        string `json:"last_name" validate:"max=150"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type updateAccountRequest struct {
	Email     *string `json:"email" validate:"omitempty,email"`
	FirstName *string `json:"first_name" validate:"omitempty,max=150"`
	LastName  *string `json:"last_name" validate:"omitempty,max=150"`
	Role      *string `json:"role" validate:"omitempty,oneof=user developer manager admin"`
}

// --- Response types ---

// userResponse is the compact account representation used in listings and
// nested inside tickets.
type userResponse struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	DateJoined time.Time `json:"date_joined"`
}

// userDetailResponse adds profile fields for single-account reads.
type userDetailResponse struct {
	userResponse
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Avatar    *string `json:"avatar"`
}

type authResponse struct {
	Token string             `json:"token"`
	User  userDetailResponse `json:"user"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// --- Mappers ---

func toUserResponse(a *domain.Account) userResponse {
	return userResponse{
		ID:         a.ID,
		Username:   a.Username,
		Email:      a.Email,
		Role:       string(a.Role),
		DateJoined: a.DateJoined,
	}
}

func toUserDetailResponse(a *domain.Account) userDetailResponse {
	resp := userDetailResponse{
		userResponse: toUserResponse(a),
		FirstName:    a.FirstName,
		LastName:     a.LastName,
	}
	if a.Avatar != "" {
		avatar := a.Avatar
		resp.Avatar = &avatar
	}
	return resp
}
