// Package http implements the REST API of the StudyPath hub.
package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/studypath-hub/studypath-hub/internal/application/command"
	"github.com/studypath-hub/studypath-hub/internal/application/resolver"
	"github.com/studypath-hub/studypath-hub/internal/domain/learner"
	"github.com/studypath-hub/studypath-hub/internal/domain/shared"
	"github.com/studypath-hub/studypath-hub/pkg/logger"
)

// maxBodyBytes bounds request bodies; the forms here are tiny.
const maxBodyBytes = 64 << 10

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot serves the root endpoint with basic API information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"name":        "StudyPath Hub API",
		"version":     "v1",
		"description": "REST API for tracking self-paced curriculum progress",
		"endpoints": map[string]string{
			"health":   "/health",
			"me":       "/api/v1/auth/me",
			"overview": "/api/v1/progress/overview",
			"checkins": "/api/v1/checkins",
		},
	}

	writeJSON(w, http.StatusOK, info)
}

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Healthy {
			writeJSON(w, http.StatusServiceUnavailable, status)
			return
		}
		writeJSON(w, http.StatusOK, status)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"uptime":  s.Uptime().String(),
		"version": "v1",
	})
}

// handleReady handles the readiness probe endpoint (for Kubernetes).
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Ready {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not_ready",
				"reason": status.Message,
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive handles the liveness probe endpoint (for Kubernetes).
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// AUTH HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// identityResponse is the acting identity as rendered in the header badge.
type identityResponse struct {
	Kind        string `json:"kind"`
	UserID      string `json:"user_id"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	Badge       string `json:"badge"`
	Guest       bool   `json:"guest"`
	Token       string `json:"token,omitempty"` // remote sessions only
}

func (s *Server) identityResponse(id learner.Identity) identityResponse {
	return identityResponse{
		Kind:        string(id.Kind),
		UserID:      id.UserID,
		Email:       id.Email.String(),
		DisplayName: id.DisplayName,
		Badge:       id.Badge(),
		Guest:       id.IsGuest(),
		Token:       s.deps.Resolver.Token(),
	}
}

type signUpRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Confirm     string `json:"confirm"`
	DisplayName string `json:"display_name"`
}

// handleSignUp handles POST /api/v1/auth/signup
func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	id, err := s.deps.Resolver.SignUp(r.Context(), resolver.SignUpInput{
		Email:       req.Email,
		Password:    req.Password,
		Confirm:     req.Confirm,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, s.identityResponse(id))
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// handleSignIn handles POST /api/v1/auth/signin
func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	id, err := s.deps.Resolver.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, s.identityResponse(id))
}

// handleSignOut handles POST /api/v1/auth/signout
func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	id := s.deps.Resolver.SignOut(r.Context())
	writeJSON(w, http.StatusOK, s.identityResponse(id))
}

// handleMe handles GET /api/v1/auth/me. A Bearer token resumes the remote
// session it names when the server is not already acting as that user.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	if token := bearerToken(r); token != "" && token != s.deps.Resolver.Token() {
		id, err := s.deps.Resolver.ResumeSession(r.Context(), token)
		if err != nil {
			if shared.IsNotFound(err) {
				writeJSONError(w, http.StatusUnauthorized, "session_expired", "Session is no longer valid")
				return
			}
			s.writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, s.identityResponse(id))
		return
	}

	id, _ := s.deps.Resolver.Current()
	writeJSON(w, http.StatusOK, s.identityResponse(id))
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return ""
}

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetOverview handles GET /api/v1/progress/overview
func (s *Server) handleGetOverview(w http.ResponseWriter, r *http.Request) {
	overview, err := s.deps.Queries.GetOverview(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

type completionRequest struct {
	Completed bool `json:"completed"`
}

// handleSetCourseCompletion handles PUT /api/v1/courses/{id}/completion
func (s *Server) handleSetCourseCompletion(w http.ResponseWriter, r *http.Request) {
	courseID := r.PathValue("id")

	var req completionRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	id, _ := s.deps.Resolver.Current()
	if err := s.deps.Commands.SetCourseCompletion(r.Context(), id.UserID, courseID, req.Completed); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"course_id": courseID,
		"completed": req.Completed,
	})
}

// handleGetFocusSkill handles GET /api/v1/focus-skill
func (s *Server) handleGetFocusSkill(w http.ResponseWriter, r *http.Request) {
	skill, err := s.deps.Queries.GetFocusSkill(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"skill_id": skill})
}

type focusSkillRequest struct {
	SkillID string `json:"skill_id"`
}

// handleSetFocusSkill handles PUT /api/v1/focus-skill. Submitting the
// skill that is already active clears it.
func (s *Server) handleSetFocusSkill(w http.ResponseWriter, r *http.Request) {
	var req focusSkillRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	id, _ := s.deps.Resolver.Current()
	skill, err := s.deps.Commands.SetFocusSkill(r.Context(), id.UserID, req.SkillID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"skill_id": skill})
}

// handleGetCheckins handles GET /api/v1/checkins
func (s *Server) handleGetCheckins(w http.ResponseWriter, r *http.Request) {
	log, err := s.deps.Queries.GetCheckinLog(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, log)
}

type addCheckinRequest struct {
	Day   string `json:"day"`
	Focus string `json:"focus"`
	Notes string `json:"notes"`
}

// handleAddCheckin handles POST /api/v1/checkins
func (s *Server) handleAddCheckin(w http.ResponseWriter, r *http.Request) {
	var req addCheckinRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	id, _ := s.deps.Resolver.Current()
	entry, err := s.deps.Commands.AddCheckin(r.Context(), id.UserID, command.AddCheckinInput{
		Day:   req.Day,
		Focus: req.Focus,
		Notes: req.Notes,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"id":         entry.ID,
		"day":        entry.Day,
		"focus":      string(entry.Focus),
		"notes":      entry.Notes,
		"created_at": entry.CreatedAt.Format(time.RFC3339),
	})
}

// handleClearCheckins handles DELETE /api/v1/checkins. This is
// irreversible; clients must confirm with the user before calling it.
func (s *Server) handleClearCheckins(w http.ResponseWriter, r *http.Request) {
	id, _ := s.deps.Resolver.Current()
	if err := s.deps.Commands.ClearCheckins(r.Context(), id.UserID); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// decodeBody reads and decodes a JSON request body, writing the 400
// response itself when the body is unusable.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Failed to read request body")
		return false
	}
	defer r.Body.Close()

	if len(body) == 0 {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Request body is required")
		return false
	}
	if err := json.Unmarshal(body, dest); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload")
		return false
	}
	return true
}

// writeDomainError maps the domain error taxonomy onto HTTP statuses. The
// DomainError message is written as-is: these are the strings shown
// inline next to the form that caused them.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	message := "An unexpected error occurred"
	var derr *shared.DomainError
	if errors.As(err, &derr) {
		message = derr.Message
	}

	switch {
	case shared.IsAuth(err):
		writeAuthError(w, err, message)
	case shared.IsValidation(err):
		writeJSONError(w, http.StatusBadRequest, "validation_error", message)
	case errors.Is(err, shared.ErrStaleIdentity):
		writeJSONError(w, http.StatusConflict, "identity_changed", "The acting account changed, retry the request")
	case shared.IsNotFound(err):
		writeJSONError(w, http.StatusNotFound, "not_found", message)
	case errors.Is(err, shared.ErrStoreUnavailable), errors.Is(err, shared.ErrWriteFailed):
		s.logger.Error("storage backend failure", logger.Err(err), logger.String("path", r.URL.Path))
		writeJSONError(w, http.StatusServiceUnavailable, "store_unavailable", "Storage backend is unavailable, try again")
	default:
		s.logger.Error("unhandled error", logger.Err(err), logger.String("path", r.URL.Path))
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}

// writeAuthError maps the authentication error kinds onto their statuses.
func writeAuthError(w http.ResponseWriter, err error, message string) {
	switch {
	case errors.Is(err, shared.ErrAccountExists):
		writeJSONError(w, http.StatusConflict, "account_exists", message)
	case errors.Is(err, shared.ErrConfirmMismatch):
		writeJSONError(w, http.StatusBadRequest, "confirm_mismatch", message)
	case errors.Is(err, shared.ErrProviderRejected):
		writeJSONError(w, http.StatusBadGateway, "provider_rejected", message)
	default:
		writeJSONError(w, http.StatusUnauthorized, "invalid_credentials", message)
	}
}
