package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kalambet/prefkeep/internal/form"
)

const maxEntryBodySize = 64 << 10 // 64KB

// AppDeps holds what the HTTP API needs.
type AppDeps struct {
	Controller *form.Controller
	Token      string
}

// NewAppHandler returns the form API. Everything except /health requires
// the bearer token.
func NewAppHandler(deps AppDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))
		r.Get("/entry", handleAction(deps, form.ActionLoad))
		r.Post("/entry", handleSave(deps))
		r.Delete("/entry", handleAction(deps, form.ActionDelete))
		r.Get("/entry/start", handleAction(deps, form.ActionStart))
		r.Get("/view", handleView(deps))
		r.Post("/actions/{action}", handleNamedAction(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleView(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, deps.Controller.View())
	}
}

func handleAction(deps AppDeps, action form.Action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := deps.Controller.Handle(action)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "%v", err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func handleSave(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, ok := decodeEntry(w, r, true)
		if !ok {
			return
		}
		respondView(w, deps, form.ActionSave, in)
	}
}

// handleNamedAction accepts action names and button labels, e.g.
// POST /actions/simpan with an optional {name,email} body.
func handleNamedAction(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		action, err := form.ParseAction(chi.URLParam(r, "action"))
		if err != nil {
			httpError(w, http.StatusNotFound, "invalid_request_error", "%v", err)
			return
		}
		if action != form.ActionSave {
			handleAction(deps, action)(w, r)
			return
		}
		in, ok := decodeEntry(w, r, false)
		if !ok {
			return
		}
		respondView(w, deps, action, in)
	}
}

func respondView(w http.ResponseWriter, deps AppDeps, action form.Action, in form.Entry) {
	v, err := deps.Controller.Submit(action, in)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "api_error", "%v", err)
		return
	}
	code := http.StatusOK
	if v.Notice == form.MsgEmptyInput {
		code = http.StatusUnprocessableEntity
	}
	writeJSON(w, code, v)
}

// decodeEntry reads a {name,email} body. An empty body is an empty entry
// unless required is set.
func decodeEntry(w http.ResponseWriter, r *http.Request, required bool) (form.Entry, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxEntryBodySize)
	defer r.Body.Close()

	var in form.Entry
	err := json.NewDecoder(r.Body).Decode(&in)
	if errors.Is(err, io.EOF) && !required {
		return form.Entry{}, true
	}
	if err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return form.Entry{}, false
	}
	return in, true
}
