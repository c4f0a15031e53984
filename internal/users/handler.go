package users

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/shawarma-timaro/storefront/internal/auth"
	"github.com/shawarma-timaro/storefront/internal/domain"
)

// ProfileStore is the slice of Repository the handler needs.
type ProfileStore interface {
	EnsureProfile(ctx context.Context, identity auth.Identity) (*domain.UserProfile, error)
	GetProfile(ctx context.Context, uid string) (*domain.UserProfile, error)
	UpdateProfile(ctx context.Context, uid string, update ProfileUpdate) (*domain.UserProfile, error)
	ListAll(ctx context.Context) ([]domain.UserProfile, error)
}

type Handler struct {
	store  ProfileStore
	logger *slog.Logger
}

func NewHandler(store ProfileStore, logger *slog.Logger) *Handler {
	return &Handler{
		store:  store,
		logger: logger,
	}
}

// HandleSession is called by the client right after the identity provider
// reports a login; it creates or refreshes the profile.
func (h *Handler) HandleSession(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFrom(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	profile, err := h.store.EnsureProfile(r.Context(), identity)
	if err != nil {
		h.logger.Error("failed to ensure user profile", "error", err, "uid", identity.UID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("session established", "uid", identity.UID)
	h.writeJSON(w, http.StatusOK, profile)
}

func (h *Handler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFrom(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	profile, err := h.store.GetProfile(r.Context(), identity.UID)
	if err != nil {
		h.logger.Error("failed to get user profile", "error", err, "uid", identity.UID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if profile == nil {
		h.writeError(w, http.StatusNotFound, "profile not found")
		return
	}

	h.writeJSON(w, http.StatusOK, profile)
}

type updateProfileRequest struct {
	DisplayName *string `json:"displayName"`
	Address     *string `json:"address"`
	Phone       *string `json:"phone"`
}

// HandleUpdateProfile merges the editable fields. Phone numbers are
// normalized and validated here, before anything touches the repository.
func (h *Handler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFrom(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	update := ProfileUpdate{
		DisplayName: req.DisplayName,
		Address:     req.Address,
	}

	if req.Phone != nil {
		normalized, ok := NormalizePhone(*req.Phone)
		if !ok {
			h.writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"errors": map[string]string{"phone": "phone must be a +380 number with nine digits"},
			})
			return
		}
		update.Phone = &normalized
	}

	profile, err := h.store.UpdateProfile(r.Context(), identity.UID, update)
	if err != nil {
		h.logger.Error("failed to update user profile", "error", err, "uid", identity.UID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if profile == nil {
		h.writeError(w, http.StatusNotFound, "profile not found")
		return
	}

	h.logger.Info("profile updated", "uid", identity.UID)
	h.writeJSON(w, http.StatusOK, profile)
}

// HandleListUsers serves the admin back-office user list.
func (h *Handler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.store.ListAll(r.Context())
	if err != nil {
		h.logger.Error("failed to list users", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, profiles)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
