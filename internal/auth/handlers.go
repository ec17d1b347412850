package auth

import (
	"net/http"

	"github.com/EmpoweredVote/EV-Auth/internal/apperr"
	"github.com/EmpoweredVote/EV-Auth/internal/tokens"
	"github.com/EmpoweredVote/EV-Auth/internal/users"
	"github.com/EmpoweredVote/EV-Auth/internal/utils"
	"github.com/go-chi/chi/v5"
)

type Handlers struct {
	svc *Service
}

func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type socialAuthRequest struct {
	Email  string `json:"email"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

type updateInfoRequest struct {
	Name string `json:"name"`
}

type updatePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type updateAvatarRequest struct {
	Avatar string `json:"avatar"`
}

type updateRoleRequest struct {
	Role string `json:"role"`
}

// sendToken sets the cookie pair and answers with the access token and user.
// It is only reached after the refresh token was persisted.
func (h *Handlers) sendToken(w http.ResponseWriter, status int, u *users.User, pair tokens.Pair) {
	h.svc.Tokens().SetCookies(w, pair)
	utils.WriteJSON(w, status, map[string]any{
		"accessToken": pair.AccessToken,
		"user":        u,
	})
}

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, r, err)
		return
	}

	u, pair, err := h.svc.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	h.sendToken(w, http.StatusCreated, u, pair)
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, r, err)
		return
	}

	u, pair, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	h.sendToken(w, http.StatusOK, u, pair)
}

// Logout always clears both cookies, even when revoking the stored token fails
// or neither cookie identifies a session any more.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	err := h.svc.EndSession(r.Context(),
		tokens.FromRequest(r, tokens.AccessCookie),
		tokens.FromRequest(r, tokens.RefreshCookie))
	h.svc.Tokens().ClearCookies(w)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]any{
		"message": "Logged out successfully",
	})
}

func (h *Handlers) RefreshToken(w http.ResponseWriter, r *http.Request) {
	u, pair, err := h.svc.Renew(r.Context(), tokens.FromRequest(r, tokens.RefreshCookie))
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	h.sendToken(w, http.StatusOK, u, pair)
}

func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	current, ok := utils.GetUserFromContext(r.Context())
	if !ok {
		utils.WriteError(w, r, apperr.Unauthenticated(msgLoginRequired, nil))
		return
	}
	u, err := h.svc.Profile(r.Context(), current.ID)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]any{"user": u})
}

func (h *Handlers) SocialAuth(w http.ResponseWriter, r *http.Request) {
	var req socialAuthRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, r, err)
		return
	}

	u, pair, err := h.svc.SocialAuth(r.Context(), req.Email, req.Name, req.Avatar)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	h.sendToken(w, http.StatusOK, u, pair)
}

func (h *Handlers) UpdateUserInfo(w http.ResponseWriter, r *http.Request) {
	var req updateInfoRequest
	current, ok := h.decodeForUser(w, r, &req)
	if !ok {
		return
	}

	u, err := h.svc.UpdateProfile(r.Context(), current.ID, req.Name)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]any{"user": u})
}

func (h *Handlers) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	var req updatePasswordRequest
	current, ok := h.decodeForUser(w, r, &req)
	if !ok {
		return
	}

	u, err := h.svc.UpdatePassword(r.Context(), current.ID, req.OldPassword, req.NewPassword)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]any{"user": u})
}

func (h *Handlers) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	var req updateAvatarRequest
	current, ok := h.decodeForUser(w, r, &req)
	if !ok {
		return
	}

	u, err := h.svc.UpdateAvatar(r.Context(), current.ID, req.Avatar)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]any{"user": u})
}

func (h *Handlers) GetAllUsers(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListUsers(r.Context())
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]any{"users": users.PublicList(list)})
}

func (h *Handlers) UpdateUserRole(w http.ResponseWriter, r *http.Request) {
	var req updateRoleRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, r, err)
		return
	}

	u, err := h.svc.UpdateRole(r.Context(), chi.URLParam(r, "id"), req.Role)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]any{
		"message": "User role updated successfully",
		"user":    u,
	})
}

func (h *Handlers) GetInstructors(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListInstructors(r.Context())
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]any{"instructors": users.PublicList(list)})
}

// decodeForUser decodes the body and returns the authenticated user, writing
// the error response itself when either step fails.
func (h *Handlers) decodeForUser(w http.ResponseWriter, r *http.Request, out any) (*users.User, bool) {
	current, ok := utils.GetUserFromContext(r.Context())
	if !ok {
		utils.WriteError(w, r, apperr.Unauthenticated(msgLoginRequired, nil))
		return nil, false
	}
	if err := utils.DecodeJSON(r, out); err != nil {
		utils.WriteError(w, r, err)
		return nil, false
	}
	return current, true
}
