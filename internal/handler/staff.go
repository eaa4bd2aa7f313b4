package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ballotbox/ballotbox/internal/auth"
	"github.com/ballotbox/ballotbox/internal/handler/dto"
	"github.com/ballotbox/ballotbox/internal/middleware"
	"github.com/ballotbox/ballotbox/internal/model"
	"github.com/ballotbox/ballotbox/internal/service"
)

// StaffHandler manages admin and auditor accounts. The same handler
// serves both the admin-managed auditor routes and the
// superadmin-managed admin routes; the role comes from route wiring.
type StaffHandler struct {
	users  *service.UserService
	logger *slog.Logger
}

// NewStaffHandler creates a new StaffHandler.
func NewStaffHandler(users *service.UserService, logger *slog.Logger) *StaffHandler {
	return &StaffHandler{
		users:  users,
		logger: logger,
	}
}

// List returns a handler for GET on a staff collection.
func (h *StaffHandler) List(role model.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		staff, err := h.users.ListStaff(r.Context(), role)
		if err != nil {
			h.handleServiceError(w, role, err)
			return
		}

		writeJSON(w, http.StatusOK, dto.ToUserListResponse(staff))
	}
}

// Create returns a handler for POST on a staff collection.
func (h *StaffHandler) Create(role model.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dto.CreateStaffRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
			return
		}

		if err := validateStaff(req); err != nil {
			h.writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
			return
		}

		actor := auth.MustAuthFromContext(r.Context())
		input := service.CreateStaffInput{
			Name:       req.Name,
			Email:      req.Email,
			Password:   req.Password,
			Role:       role,
			ActorID:    actor.UserID,
			ActorEmail: actor.Email,
			RequestID:  middleware.GetRequestID(r.Context()),
		}

		user, err := h.users.CreateStaff(r.Context(), input)
		if err != nil {
			h.handleServiceError(w, role, err)
			return
		}

		h.logger.Info("staff_created",
			"user_id", user.ID,
			"role", user.Role,
		)

		writeJSON(w, http.StatusCreated, dto.ToUserResponse(user))
	}
}

// Delete returns a handler for DELETE on a staff member. The role scope
// means an admin route can never remove anything but an auditor, and
// the superadmin route anything but an admin.
func (h *StaffHandler) Delete(role model.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := auth.MustAuthFromContext(r.Context())
		input := service.DeleteStaffInput{
			UserID:     chi.URLParam(r, "id"),
			Role:       role,
			ActorID:    actor.UserID,
			ActorEmail: actor.Email,
			RequestID:  middleware.GetRequestID(r.Context()),
		}

		if err := h.users.DeleteStaff(r.Context(), input); err != nil {
			h.handleServiceError(w, role, err)
			return
		}

		h.logger.Info("staff_deleted",
			"user_id", input.UserID,
			"role", role,
		)

		w.WriteHeader(http.StatusNoContent)
	}
}

// validateStaff checks field shapes for staff provisioning.
func validateStaff(req dto.CreateStaffRequest) error {
	if err := middleware.ValidateName(req.Name); err != nil {
		return err
	}
	if err := middleware.ValidateEmail(req.Email); err != nil {
		return err
	}
	return middleware.ValidatePassword(req.Password)
}

// handleServiceError maps service errors to HTTP responses. Not-found
// codes name the managed role so clients can tell the collections apart.
func (h *StaffHandler) handleServiceError(w http.ResponseWriter, role model.Role, err error) {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		if role == model.RoleAdmin {
			h.writeError(w, http.StatusNotFound, "ADMIN_NOT_FOUND", "Admin not found")
			return
		}
		h.writeError(w, http.StatusNotFound, "AUDITOR_NOT_FOUND", "Auditor not found")
	case errors.Is(err, service.ErrEmailTaken):
		h.writeError(w, http.StatusConflict, "EMAIL_TAKEN", "Email already registered")
	case errors.Is(err, service.ErrInvalidPeerRole):
		h.writeError(w, http.StatusBadRequest, "INVALID_ROLE", "Role must be admin or auditor")
	default:
		h.logger.Error("internal_error", "error", err)
		h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}

// writeError writes an error response.
func (h *StaffHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error: message,
		Code:  code,
	})
}
