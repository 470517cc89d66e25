// Package crud generates REST CRUD route sets. Given a resource name and a
// storage model it produces list, get, create, update, and delete endpoints
// that translate the range/sort/filter query conventions into paginated,
// ordered, filtered storage queries and report pagination via Content-Range.
package crud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/artpar/crudgate/ports"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// notFoundMessage is the fixed error body for missing records.
const notFoundMessage = "Record not found"

// ListHook transforms a fetched page before it is written.
type ListHook func(ctx context.Context, recs []ports.Record) ([]ports.Record, error)

// GetHook transforms a single fetched record before it is written.
type GetHook func(ctx context.Context, rec ports.Record) (ports.Record, error)

// ErrorHandler receives failures from the model layer. It owns the
// response once called.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// Config controls which routes a Handler generates and how results are
// shaped before serialization.
type Config struct {
	// Actions selects the operations to expose. Empty means all five.
	Actions []Action

	// AfterList transforms list results. Nil means identity.
	AfterList ListHook

	// AfterGet transforms get-one results. Nil means identity.
	AfterGet GetHook

	// OnError handles model failures. Nil means log and answer 500 with
	// the error message.
	OnError ErrorHandler

	// Observe, when set, is called once per completed operation with its
	// outcome ("ok", "not_found", or "error").
	Observe func(action Action, outcome string)
}

// Handler serves the generated CRUD routes for a single resource.
type Handler struct {
	resource  string
	model     ports.Model
	actions   []Action
	afterList ListHook
	afterGet  GetHook
	onError   ErrorHandler
	observe   func(Action, string)
	logger    zerolog.Logger
}

// New validates cfg and builds a CRUD handler for the resource. An action
// outside the five known values is a construction-time error and no routes
// are generated.
func New(resource string, model ports.Model, logger zerolog.Logger, cfg Config) (*Handler, error) {
	if resource == "" {
		return nil, fmt.Errorf("crud: empty resource name")
	}
	if strings.ContainsAny(resource, "/ ") {
		return nil, fmt.Errorf("crud: resource name %q is not a path segment", resource)
	}
	if model == nil {
		return nil, fmt.Errorf("crud: nil model for resource %q", resource)
	}

	actions := cfg.Actions
	if len(actions) == 0 {
		actions = AllActions()
	}
	seen := make(map[Action]bool, len(actions))
	enabled := make([]Action, 0, len(actions))
	for _, a := range actions {
		switch a {
		case ActionList, ActionGet, ActionCreate, ActionUpdate, ActionDelete:
		default:
			return nil, fmt.Errorf("crud: unknown action %d for resource %q", int(a), resource)
		}
		if seen[a] {
			continue
		}
		seen[a] = true
		enabled = append(enabled, a)
	}

	return &Handler{
		resource:  resource,
		model:     model,
		actions:   enabled,
		afterList: cfg.AfterList,
		afterGet:  cfg.AfterGet,
		onError:   cfg.OnError,
		observe:   cfg.Observe,
		logger:    logger,
	}, nil
}

// Resource returns the resource name the handler serves.
func (h *Handler) Resource() string {
	return h.resource
}

// Actions returns the operations the handler exposes.
func (h *Handler) Actions() []Action {
	out := make([]Action, len(h.actions))
	copy(out, h.actions)
	return out
}

// Routes returns a router with the enabled routes registered at
// /{resource} and /{resource}/{id}.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(ExposeContentRange)
	h.Register(r)
	return r
}

// Register adds the enabled routes to an existing router, so several
// resources can share one mount point. The caller is responsible for
// installing ExposeContentRange.
func (h *Handler) Register(r chi.Router) {
	base := "/" + h.resource
	for _, action := range h.actions {
		switch action {
		case ActionList:
			r.Get(base, h.handleList)
		case ActionGet:
			r.Get(base+"/{id}", h.handleGet)
		case ActionCreate:
			r.Post(base, h.handleCreate)
		case ActionUpdate:
			r.Put(base+"/{id}", h.handleUpdate)
		case ActionDelete:
			r.Delete(base+"/{id}", h.handleDelete)
		}
	}
}

// handleList answers GET /{resource} with one page of records and a
// Content-Range header of the form {from}-{from+returned}/{total}.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q, err := parseListQuery(r.URL.Query())
	if err != nil {
		h.fail(w, r, ActionList, err)
		return
	}

	recs, total, err := h.model.FindAndCount(r.Context(), q)
	if err != nil {
		h.fail(w, r, ActionList, err)
		return
	}

	if h.afterList != nil {
		recs, err = h.afterList(r.Context(), recs)
		if err != nil {
			h.fail(w, r, ActionList, err)
			return
		}
	}
	if recs == nil {
		recs = []ports.Record{}
	}

	w.Header().Set(contentRangeHeader, fmt.Sprintf("%d-%d/%d", q.Offset, q.Offset+len(recs), total))
	h.done(ActionList, "ok")
	h.writeJSON(w, http.StatusOK, recs)
}

// handleGet answers GET /{resource}/{id} with the record, or 404 if the
// id is unknown.
func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rec, err := h.model.FindByID(r.Context(), id)
	if errors.Is(err, ports.ErrNotFound) {
		h.done(ActionGet, "not_found")
		h.writeError(w, http.StatusNotFound, notFoundMessage)
		return
	}
	if err != nil {
		h.fail(w, r, ActionGet, err)
		return
	}

	if h.afterGet != nil {
		rec, err = h.afterGet(r.Context(), rec)
		if err != nil {
			h.fail(w, r, ActionGet, err)
			return
		}
	}

	h.done(ActionGet, "ok")
	h.writeJSON(w, http.StatusOK, rec)
}

// handleCreate answers POST /{resource} with 201 and the stored record.
func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var body ports.Record
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.done(ActionCreate, "error")
		h.writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	rec, err := h.model.Create(r.Context(), body)
	if err != nil {
		h.fail(w, r, ActionCreate, err)
		return
	}

	h.logger.Info().Str("resource", h.resource).Msg("record created")
	h.done(ActionCreate, "ok")
	h.writeJSON(w, http.StatusCreated, rec)
}

// handleUpdate answers PUT /{resource}/{id}. The record must exist; the
// response body is the update operation's row count, not the record.
func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body ports.Record
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.done(ActionUpdate, "error")
		h.writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	if _, err := h.model.FindByID(r.Context(), id); err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			h.done(ActionUpdate, "not_found")
			h.writeError(w, http.StatusNotFound, notFoundMessage)
			return
		}
		h.fail(w, r, ActionUpdate, err)
		return
	}

	result, err := h.model.UpdateByID(r.Context(), id, body)
	if err != nil {
		h.fail(w, r, ActionUpdate, err)
		return
	}

	h.logger.Info().Str("resource", h.resource).Str("id", id).Msg("record updated")
	h.done(ActionUpdate, "ok")
	h.writeJSON(w, http.StatusOK, result)
}

// handleDelete answers DELETE /{resource}/{id} with 200 and the requested
// id. There is no existence check; deleting an absent record succeeds.
func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.model.DeleteByID(r.Context(), id); err != nil {
		h.fail(w, r, ActionDelete, err)
		return
	}

	h.logger.Info().Str("resource", h.resource).Str("id", id).Msg("record deleted")
	h.done(ActionDelete, "ok")
	h.writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

// fail routes a model failure to the configured error handler.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, action Action, err error) {
	h.done(action, "error")

	if h.onError != nil {
		h.onError(w, r, err)
		return
	}

	h.logger.Error().
		Err(err).
		Str("resource", h.resource).
		Str("action", action.String()).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Msg("crud operation failed")
	h.writeError(w, http.StatusInternalServerError, err.Error())
}

func (h *Handler) done(action Action, outcome string) {
	if h.observe != nil {
		h.observe(action, outcome)
	}
}

// writeJSON writes a JSON response.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error().Err(err).Str("resource", h.resource).Msg("failed to write response body")
	}
}

// writeError writes a JSON error response.
func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error": msg,
	})
}
