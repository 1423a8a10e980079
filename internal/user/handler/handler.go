// Package handler exposes user CRUD over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	usermodels "middleoffice/internal/user/models"
	dErrors "middleoffice/pkg/domain-errors"
	"middleoffice/pkg/oid"
	"middleoffice/pkg/platform/httputil"
	"middleoffice/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

const msgDeleted = "User successfully deleted!"

// Service defines the interface for user operations.
type Service interface {
	Create(ctx context.Context, req usermodels.CreateUserRequest) (string, error)
	Get(ctx context.Context, id string) (usermodels.User, error)
	List(ctx context.Context) ([]usermodels.User, error)
	Delete(ctx context.Context, id string) error
}

type Handler struct {
	users  Service
	logger *slog.Logger
}

func New(users Service, logger *slog.Logger) *Handler {
	return &Handler{users: users, logger: logger}
}

// Register registers the user routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/api/user", h.handleCreate)
	r.Get("/api/user/{id}", h.handleGet)
	r.Delete("/api/user/{id}", h.handleDelete)
	r.Get("/api/users", h.handleList)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req usermodels.CreateUserRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		h.fail(ctx, w, dErrors.Wrap(err, dErrors.CodeParsing, "Invalid JSON body."))
		return
	}
	id, err := h.users.Create(ctx, req)
	if err != nil {
		h.fail(ctx, w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, usermodels.CreateUserResult{InsertedID: oid.ObjectID(id)})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, err := h.users.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(ctx, w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	users, err := h.users.List(ctx)
	if err != nil {
		h.fail(ctx, w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, users)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.users.Delete(ctx, chi.URLParam(r, "id")); err != nil {
		h.fail(ctx, w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, msgDeleted)
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, err error) {
	h.logger.WarnContext(ctx, "user request failed",
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
	httputil.WriteError(w, err)
}
