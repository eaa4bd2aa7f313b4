package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ballotbox/ballotbox/internal/handler/dto"
	"github.com/ballotbox/ballotbox/internal/middleware"
	"github.com/ballotbox/ballotbox/internal/service"
)

// AuthHandler handles login and voter registration.
type AuthHandler struct {
	svc    *service.AuthService
	logger *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(svc *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		svc:    svc,
		logger: logger,
	}
}

// Login handles POST /api/v1/auth/token.
// The identifier field takes an email address or a student ID.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	input := service.LoginInput{
		Identifier: req.Identifier,
		Password:   req.Password,
		RequestID:  middleware.GetRequestID(r.Context()),
	}

	result, err := h.svc.Login(r.Context(), input)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("user_authenticated",
		"user_id", result.User.ID,
		"role", result.User.Role,
	)

	writeJSON(w, http.StatusOK, dto.ToTokenResponse(result.Token, result.ExpiresAt, result.User))
}

// Register handles POST /api/v1/users/register.
// Self-registration always creates a voter account.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if err := validateRegistration(req); err != nil {
		code := "VALIDATION_ERROR"
		if errors.Is(err, middleware.ErrCourseRequired) {
			code = "COURSE_REQUIRED"
		}
		h.writeError(w, http.StatusBadRequest, code, err.Error())
		return
	}

	input := service.RegisterInput{
		Name:      req.Name,
		Email:     req.Email,
		StudentID: req.StudentID,
		Level:     req.Level,
		Course:    req.Course,
		Password:  req.Password,
		RequestID: middleware.GetRequestID(r.Context()),
	}

	user, err := h.svc.Register(r.Context(), input)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("voter_registered", "user_id", user.ID)

	writeJSON(w, http.StatusCreated, dto.ToUserResponse(user))
}

// validateRegistration checks field shapes before any database work.
// Uniqueness is the service's job.
func validateRegistration(req dto.RegisterRequest) error {
	if err := middleware.ValidateName(req.Name); err != nil {
		return err
	}
	if err := middleware.ValidateEmail(req.Email); err != nil {
		return err
	}
	if err := middleware.ValidateStudentID(req.StudentID); err != nil {
		return err
	}
	if err := middleware.ValidateLevel(req.Level); err != nil {
		return err
	}
	if err := middleware.ValidateLevelCourse(req.Level, req.Course); err != nil {
		return err
	}
	return middleware.ValidatePassword(req.Password)
}

// handleServiceError maps service errors to HTTP responses.
func (h *AuthHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		h.writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Incorrect email/student_id or password")
	case errors.Is(err, service.ErrEmailTaken):
		h.writeError(w, http.StatusConflict, "EMAIL_TAKEN", "Email already registered")
	case errors.Is(err, service.ErrStudentIDTaken):
		h.writeError(w, http.StatusConflict, "STUDENT_ID_TAKEN", "Student ID already registered")
	default:
		h.logger.Error("internal_error", "error", err)
		h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}

// writeError writes an error response.
func (h *AuthHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error: message,
		Code:  code,
	})
}
