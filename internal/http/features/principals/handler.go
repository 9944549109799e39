package principals

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/outpost9/accountd/internal/http/middleware"
	"github.com/outpost9/accountd/internal/httputil"
	"github.com/outpost9/accountd/pkg/auth"
	"github.com/outpost9/accountd/pkg/domain"
)

// Handler serves one principal kind. The same handler code backs both the
// user and admin route groups; the kind decides which table every operation
// touches.
type Handler struct {
	logger  *slog.Logger
	kind    domain.Kind
	service *auth.Service
	store   auth.PrincipalStore
	tokens  *auth.TokenService
}

// NewHandler creates a handler for the given principal kind.
func NewHandler(logger *slog.Logger, kind domain.Kind, service *auth.Service, store auth.PrincipalStore, tokens *auth.TokenService) *Handler {
	return &Handler{
		logger:  logger,
		kind:    kind,
		service: service,
		store:   store,
		tokens:  tokens,
	}
}

// LoginRequest represents a login request.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// VerifyTwoFactorRequest carries the pending token from login plus the
// emailed code.
type VerifyTwoFactorRequest struct {
	Token string `json:"token"`
	Code  string `json:"code"`
}

// SessionResponse represents a granted session.
type SessionResponse struct {
	Token     string            `json:"token"`
	Principal *domain.Principal `json:"principal"`
}

// Login handles credential checks.
// POST /login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		httputil.Error(w, http.StatusBadRequest, "email and password are required")
		return
	}

	result, err := h.service.Login(r.Context(), h.kind, req.Email, req.Password)
	if err != nil {
		httputil.DomainError(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, result)
}

// VerifyTwoFactor exchanges a pending token plus a valid emailed code for a
// session.
// POST /verify-2fa
func (h *Handler) VerifyTwoFactor(w http.ResponseWriter, r *http.Request) {
	var req VerifyTwoFactorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Token == "" || req.Code == "" {
		httputil.Error(w, http.StatusBadRequest, "token and code are required")
		return
	}

	claims, err := h.tokens.VerifyPending(req.Token)
	if err != nil || claims.Kind != h.kind {
		httputil.Error(w, http.StatusUnauthorized, "invalid or expired token")
		return
	}
	id, err := auth.SubjectID(claims)
	if err != nil {
		httputil.Error(w, http.StatusUnauthorized, "invalid token subject")
		return
	}

	if err := h.service.VerifyTwoFactor(r.Context(), h.kind, id, req.Code); err != nil {
		httputil.DomainError(w, err)
		return
	}

	p, err := h.store.GetByID(r.Context(), h.kind, id)
	if err != nil {
		httputil.DomainError(w, err)
		return
	}

	token, err := h.tokens.IssueSession(p.ID, h.kind, p.Role)
	if err != nil {
		httputil.Error(w, http.StatusInternalServerError, "failed to issue session")
		return
	}

	p.RecordLogin(time.Now())
	if err := h.store.RecordLogin(r.Context(), h.kind, p.ID, *p.LastLogin, p.LoginHistory); err != nil {
		httputil.DomainError(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, SessionResponse{Token: token, Principal: p.StripSecrets()})
}

// RequestPasswordReset emails a reset code. The response does not reveal
// whether the address matched an account.
// POST /request-password-reset
func (h *Handler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" {
		httputil.Error(w, http.StatusBadRequest, "email is required")
		return
	}

	if err := h.service.RequestPasswordReset(r.Context(), h.kind, req.Email); err != nil {
		httputil.DomainError(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]bool{"sent": true})
}

// ResetPassword finishes a password reset with the emailed code.
// POST /reset-password
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email       string `json:"email"`
		Code        string `json:"code"`
		NewPassword string `json:"newPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Code == "" || req.NewPassword == "" {
		httputil.Error(w, http.StatusBadRequest, "email, code and newPassword are required")
		return
	}

	if err := h.service.ResetPassword(r.Context(), h.kind, req.Email, req.Code, req.NewPassword); err != nil {
		httputil.DomainError(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]string{"message": "password has been reset"})
}

// GetMe returns the authenticated principal.
// GET /me
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	httputil.JSON(w, http.StatusOK, p)
}

// CreateRequest represents an account creation request.
type CreateRequest struct {
	Username         string          `json:"username"`
	Email            string          `json:"email"`
	Password         string          `json:"password"`
	Role             string          `json:"role,omitempty"`
	Status           string          `json:"status,omitempty"`
	TwoFactorEnabled bool            `json:"twoFactorEnabled,omitempty"`
	Meta             json.RawMessage `json:"meta,omitempty"`
}

// Create provisions a new principal.
// POST /add
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		httputil.Error(w, http.StatusBadRequest, "username, email and password are required")
		return
	}

	p, err := h.service.CreatePrincipal(r.Context(), h.kind, auth.CreateParams{
		Username:         req.Username,
		Email:            req.Email,
		Password:         req.Password,
		Role:             req.Role,
		Status:           req.Status,
		TwoFactorEnabled: req.TwoFactorEnabled,
		Meta:             req.Meta,
	})
	if err != nil {
		httputil.DomainError(w, err)
		return
	}

	h.logger.Info("principal created", "kind", h.kind, "id", p.ID, "username", p.Username)
	httputil.JSON(w, http.StatusCreated, p)
}

// List returns one page of principals.
// GET /get-all?page=&limit=&search=&status=
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	params := domain.ListParams{
		Search: r.URL.Query().Get("search"),
		Status: r.URL.Query().Get("status"),
	}
	if v := r.URL.Query().Get("page"); v != "" {
		params.Page, _ = strconv.Atoi(v)
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		params.PageSize, _ = strconv.Atoi(v)
	}
	if params.Status != "" && !domain.ValidStatus(params.Status) {
		httputil.Error(w, http.StatusBadRequest, "invalid status filter")
		return
	}

	results, total, err := h.store.List(r.Context(), h.kind, params)
	if err != nil {
		httputil.DomainError(w, err)
		return
	}
	for i := range results {
		results[i].StripSecrets()
	}
	if results == nil {
		results = []domain.Principal{}
	}

	params.Normalize()
	httputil.JSON(w, http.StatusOK, domain.NewPage(results, params, total))
}

// Get returns one principal by id.
// GET /get/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	p, err := h.store.GetByID(r.Context(), h.kind, id)
	if err != nil {
		httputil.DomainError(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, p.StripSecrets())
}

// UpdateRequest represents an account update request. Absent fields are left
// unchanged; fields outside this set cannot be updated at all.
type UpdateRequest struct {
	Username         *string         `json:"username,omitempty"`
	Email            *string         `json:"email,omitempty"`
	Status           *string         `json:"status,omitempty"`
	Role             *string         `json:"role,omitempty"`
	TwoFactorEnabled *bool           `json:"twoFactorEnabled,omitempty"`
	Meta             json.RawMessage `json:"meta,omitempty"`
}

// Update applies the allow-listed fields to a principal.
// PUT /update/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Email != nil {
		normalized := auth.NormalizeEmail(*req.Email)
		if err := auth.ValidateEmail(normalized); err != nil {
			httputil.DomainError(w, err)
			return
		}
		req.Email = &normalized
	}
	if req.Username != nil {
		if err := auth.ValidateUsername(*req.Username); err != nil {
			httputil.DomainError(w, err)
			return
		}
	}
	if req.Status != nil && !domain.ValidStatus(*req.Status) {
		httputil.Error(w, http.StatusBadRequest, "invalid status")
		return
	}
	if req.Role != nil && h.kind == domain.KindUser && !domain.ValidUserRole(*req.Role) {
		httputil.Error(w, http.StatusBadRequest, "invalid role")
		return
	}

	p, err := h.store.Update(r.Context(), h.kind, id, domain.UpdateFields{
		Username:         req.Username,
		Email:            req.Email,
		Status:           req.Status,
		Role:             req.Role,
		TwoFactorEnabled: req.TwoFactorEnabled,
		Meta:             req.Meta,
	})
	if err != nil {
		httputil.DomainError(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, p.StripSecrets())
}

// UpdateStatus sets just the account status.
// PUT /update-status/{id}
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !domain.ValidStatus(req.Status) {
		httputil.Error(w, http.StatusBadRequest, "invalid status")
		return
	}

	p, err := h.store.UpdateStatus(r.Context(), h.kind, id, req.Status)
	if err != nil {
		httputil.DomainError(w, err)
		return
	}

	h.logger.Info("status updated", "kind", h.kind, "id", p.ID, "status", p.Status)
	httputil.JSON(w, http.StatusOK, p.StripSecrets())
}

// ChangePassword verifies the current password and stores a new one.
// PUT /change-password/{id}
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		httputil.Error(w, http.StatusBadRequest, "currentPassword and newPassword are required")
		return
	}

	if err := h.service.ChangePassword(r.Context(), h.kind, id, req.CurrentPassword, req.NewPassword); err != nil {
		httputil.DomainError(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]string{"message": "password changed"})
}

// Delete removes a principal permanently.
// DELETE /delete/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.store.Delete(r.Context(), h.kind, id); err != nil {
		httputil.DomainError(w, err)
		return
	}

	h.logger.Info("principal deleted", "kind", h.kind, "id", id)
	httputil.JSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}
