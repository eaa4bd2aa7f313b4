package dto

import (
	"time"

	"github.com/ballotbox/ballotbox/internal/model"
)

// LoginRequest represents the request body for obtaining an access token.
// Identifier is an email address or a student ID.
type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// RegisterRequest represents the request body for voter self-registration.
type RegisterRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	StudentID string `json:"student_id"`
	Level     string `json:"level,omitempty"`
	Course    string `json:"course,omitempty"`
	Password  string `json:"password"`
}

// CreateStaffRequest represents the request body for provisioning an
// admin or auditor account. The role comes from the route, not the body.
type CreateStaffRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse represents a successful login.
type TokenResponse struct {
	AccessToken string        `json:"access_token"`
	TokenType   string        `json:"token_type"`
	ExpiresIn   int64         `json:"expires_in"`
	User        *UserResponse `json:"user"`
}

// UserResponse represents a user in API responses. Staff accounts carry
// no student fields, so those are omitted when empty.
type UserResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	StudentID *string   `json:"student_id,omitempty"`
	Level     *string   `json:"level,omitempty"`
	Course    *string   `json:"course,omitempty"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// UserListResponse represents a list of users.
type UserListResponse struct {
	Data  []*UserResponse `json:"data"`
	Total int             `json:"total"`
}

// ToUserResponse converts a User model to UserResponse DTO.
func ToUserResponse(user *model.User) *UserResponse {
	return &UserResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		StudentID: user.StudentID,
		Level:     user.Level,
		Course:    user.Course,
		Role:      string(user.Role),
		CreatedAt: user.CreatedAt,
	}
}

// ToUserListResponse converts a slice of users.
func ToUserListResponse(users []*model.User) *UserListResponse {
	data := make([]*UserResponse, 0, len(users))
	for _, u := range users {
		data = append(data, ToUserResponse(u))
	}
	return &UserListResponse{Data: data, Total: len(data)}
}

// ToTokenResponse builds the login payload. ExpiresIn counts seconds
// until the token stops verifying.
func ToTokenResponse(token string, expiresAt time.Time, user *model.User) *TokenResponse {
	expiresIn := int64(time.Until(expiresAt).Seconds())
	if expiresIn < 0 {
		expiresIn = 0
	}
	return &TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   expiresIn,
		User:        ToUserResponse(user),
	}
}
