// Package handler exposes the document lifecycle over HTTP.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"middleoffice/internal/document/models"
	dErrors "middleoffice/pkg/domain-errors"
	"middleoffice/pkg/platform/httputil"
	"middleoffice/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

// MaxBodyBytes bounds document payloads.
const MaxBodyBytes = 2 << 20

const (
	msgPingOK      = "Pinged your deployment. You successfully connected to MongoDB!"
	msgDeleted     = "Policy successfully deleted!"
	msgNotDeleted  = "No result.."
	msgInvalidBody = "Invalid JSON body."
)

// Service defines the interface for document operations.
type Service interface {
	Create(ctx context.Context, content any) (*models.Document, error)
	Get(ctx context.Context, id string) (*models.Document, error)
	List(ctx context.Context, q models.Query) ([]models.Document, error)
	Count(ctx context.Context, q models.Query) (int64, error)
	Update(ctx context.Context, id string, content any) (*models.Document, error)
	Delete(ctx context.Context, id string) (*models.DeletionResult, error)
	Ping(ctx context.Context) error
}

// Handler handles the /api/any* routes.
type Handler struct {
	documents Service
	logger    *slog.Logger
	guard     func(http.Handler) http.Handler
}

// New creates a document Handler. guard protects the listing route; nil
// leaves it open.
func New(documents Service, logger *slog.Logger, guard func(http.Handler) http.Handler) *Handler {
	return &Handler{
		documents: documents,
		logger:    logger,
		guard:     guard,
	}
}

// Register registers the document routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/api/ping", h.handlePing)
	r.Post("/api/any", h.handleCreate)
	r.Get("/api/any/{id}", h.handleGet)
	r.Put("/api/any/{id}", h.handleUpdate)
	r.Delete("/api/any/{id}", h.handleDelete)
	r.Get("/api/countanys", h.handleCount)

	list := http.Handler(http.HandlerFunc(h.handleList))
	if h.guard != nil {
		list = h.guard(list)
	}
	r.Method(http.MethodGet, "/api/anys", list)
}

func (h *Handler) handlePing(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := h.documents.Ping(ctx); err != nil {
		h.logger.WarnContext(ctx, "backend ping failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("Error ping db return error: " + err.Error()))
		return
	}
	_, _ = w.Write([]byte(msgPingOK))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	content, err := h.decodeBody(w, r)
	if err != nil {
		h.writeError(ctx, w, "create", err)
		return
	}
	if content == nil {
		h.writeError(ctx, w, "create", dErrors.New(dErrors.CodeParsing, msgInvalidBody))
		return
	}

	doc, err := h.documents.Create(ctx, content)
	if err != nil {
		h.writeError(ctx, w, "create", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, doc.Content)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	doc, err := h.documents.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(ctx, w, "get", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, doc.Content)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	content, err := h.decodeBody(w, r)
	if err != nil {
		h.writeError(ctx, w, "update", err)
		return
	}

	doc, err := h.documents.Update(ctx, chi.URLParam(r, "id"), content)
	if err != nil {
		h.writeError(ctx, w, "update", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, doc.Content)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	res, err := h.documents.Delete(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(ctx, w, "delete", err)
		return
	}
	if res.DeletedCount != 1 {
		httputil.WriteException(w, http.StatusNotFound, msgNotDeleted)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"result": msgDeleted})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q, err := parseQuery(r, true)
	if err != nil {
		h.writeError(ctx, w, "list", err)
		return
	}
	if claims := requestcontext.ClaimsFrom(ctx); claims != nil {
		h.logger.DebugContext(ctx, "listing documents",
			"scope", claims.Scope,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	docs, err := h.documents.List(ctx, q)
	if err != nil {
		h.writeQueryError(ctx, w, "list", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, docs)
}

func (h *Handler) handleCount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q, err := parseQuery(r, false)
	if err != nil {
		h.writeError(ctx, w, "count", err)
		return
	}
	n, err := h.documents.Count(ctx, q)
	if err != nil {
		h.writeQueryError(ctx, w, "count", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int64{"result": n})
}

// decodeBody returns nil content for an empty body.
func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request) (any, error) {
	body, err := readBody(w, r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, dErrors.New(dErrors.CodeParsing, "Body exceeds "+strconv.FormatInt(tooLarge.Limit, 10)+" bytes.")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeParsing, msgInvalidBody)
	}
	if len(body) == 0 {
		return nil, nil
	}
	content, err := models.DecodeContent(body)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeParsing, msgInvalidBody)
	}
	return content, nil
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	h.log(ctx, op, err)
	httputil.WriteError(w, err)
}

// writeQueryError renders listing and count failures as 400 regardless of
// kind.
func (h *Handler) writeQueryError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	h.log(ctx, op, err)
	httputil.WriteException(w, http.StatusBadRequest, err.Error())
}

func (h *Handler) log(ctx context.Context, op string, err error) {
	level := slog.LevelWarn
	if code, ok := dErrors.RootCode(err); !ok || code == dErrors.CodeConnection || code == dErrors.CodeInternal {
		level = slog.LevelError
	}
	h.logger.Log(ctx, level, "document request failed",
		"operation", op,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
}
