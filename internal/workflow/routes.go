package workflow

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/sfecr/compliagent/internal/analyst"
	"github.com/sfecr/compliagent/internal/ingest"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// RuleSource feeds the diagnosis with the current rule base.
type RuleSource interface {
	List() []analyst.Rule
}

// Deps carries everything the workflow routes need.
type Deps struct {
	Manager   *Manager
	Extractor Extractor
	Diagnoser Diagnoser
	Rules     RuleSource
	Logger    *zap.Logger
}

// RegisterRoutes mounts the workflow API.
func RegisterRoutes(r chi.Router, deps Deps) {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	r.Route("/api/workflow", func(r chi.Router) {
		r.Post("/", handleCreate(deps))
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", withSession(deps, handleState))
			r.Delete("/", handleDestroy(deps))
			r.Post("/submit", withSession(deps, handleSubmit(deps)))
			r.Post("/extract", withSession(deps, handleExtract(deps)))
			r.Post("/confirm", withSession(deps, handleConfirm(deps)))
			// Alias matching the original wizard's "start diagnosis" action.
			r.Post("/diagnose", withSession(deps, handleConfirm(deps)))
			r.Post("/discard", withSession(deps, handleDiscard))
			r.Post("/reset", withSession(deps, handleReset))
			r.Post("/dismiss-error", withSession(deps, handleDismiss))
			r.Get("/events", withSession(deps, handleEvents(deps)))
		})
	})
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *Session)

// withSession resolves the session or answers 404.
func withSession(deps Deps, h sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := deps.Manager.Get(chi.URLParam(r, "id"))
		if sess == nil {
			http.Error(w, `{"error":"session not found or expired"}`, http.StatusNotFound)
			return
		}
		h(w, r, sess)
	}
}

func writeState(w http.ResponseWriter, sess *Session) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sess.Snapshot())
}

// writeTransitionErr maps machine errors onto HTTP statuses.
func writeTransitionErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrBusy):
		http.Error(w, `{"error":"a request is already in flight"}`, http.StatusConflict)
	case errors.Is(err, ErrInvalidTransition):
		http.Error(w, `{"error":"operation not allowed in the current stage"}`, http.StatusConflict)
	case errors.Is(err, ErrNoInput):
		http.Error(w, `{"error":"a document or typed text is required"}`, http.StatusBadRequest)
	default:
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
	}
}

func handleCreate(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := deps.Manager.Create()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(sess.Snapshot())
	}
}

func handleDestroy(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deps.Manager.Destroy(chi.URLParam(r, "id"))
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleState(w http.ResponseWriter, r *http.Request, sess *Session) {
	writeState(w, sess)
}

type submitTextRequest struct {
	Text string `json:"text"`
}

// handleSubmit accepts either a multipart upload under "file" or a JSON
// body with typed text. Ingestion failures become the session's error
// record rather than a transport error: the attempt happened.
func handleSubmit(deps Deps) sessionHandler {
	return func(w http.ResponseWriter, r *http.Request, sess *Session) {
		if file, header, err := r.FormFile("file"); err == nil {
			defer file.Close()

			payload, ingestErr := ingest.Ingest(header.Filename, header.Size, file, nil)
			if ingestErr != nil {
				deps.Logger.Warn("ingestion failed",
					zap.String("file", header.Filename), zap.Error(ingestErr))
				sess.RecordIngestFailure(header.Filename, ingestErr)
				writeState(w, sess)
				return
			}
			if err := sess.SubmitPayload(payload); err != nil {
				writeTransitionErr(w, err)
				return
			}
			writeState(w, sess)
			return
		}

		var req submitTextRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text == "" {
			http.Error(w, `{"error":"provide a file upload or non-empty text"}`, http.StatusBadRequest)
			return
		}
		if err := sess.SubmitText(req.Text); err != nil {
			writeTransitionErr(w, err)
			return
		}
		writeState(w, sess)
	}
}

func handleExtract(deps Deps) sessionHandler {
	return func(w http.ResponseWriter, r *http.Request, sess *Session) {
		if err := sess.Extract(r.Context(), deps.Extractor); err != nil {
			writeTransitionErr(w, err)
			return
		}
		writeState(w, sess)
	}
}

func handleConfirm(deps Deps) sessionHandler {
	return func(w http.ResponseWriter, r *http.Request, sess *Session) {
		if err := sess.Confirm(r.Context(), deps.Diagnoser, deps.Rules.List()); err != nil {
			writeTransitionErr(w, err)
			return
		}
		writeState(w, sess)
	}
}

func handleDiscard(w http.ResponseWriter, r *http.Request, sess *Session) {
	if err := sess.Discard(); err != nil {
		writeTransitionErr(w, err)
		return
	}
	writeState(w, sess)
}

func handleReset(w http.ResponseWriter, r *http.Request, sess *Session) {
	if err := sess.Reset(); err != nil {
		writeTransitionErr(w, err)
		return
	}
	writeState(w, sess)
}

func handleDismiss(w http.ResponseWriter, r *http.Request, sess *Session) {
	sess.DismissError()
	writeState(w, sess)
}

// handleEvents streams stage and processing-log events over a websocket
// until the client disconnects or the session is destroyed.
func handleEvents(deps Deps) sessionHandler {
	return func(w http.ResponseWriter, r *http.Request, sess *Session) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			deps.Logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}
		defer conn.Close()

		ch := sess.Subscribe()
		defer sess.Unsubscribe(ch)

		// Reader goroutine: we never expect messages, but reading is how
		// gorilla surfaces the client closing the connection.
		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case ev, ok := <-ch:
				if !ok {
					return
				}
				if err := conn.WriteJSON(ev); err != nil {
					return
				}
			case <-closed:
				return
			case <-r.Context().Done():
				return
			}
		}
	}
}
