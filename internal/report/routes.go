package report

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sfecr/compliagent/internal/workflow"
)

// RegisterRoutes mounts the report archive API.
func RegisterRoutes(r chi.Router, archive *Archive, sessions *workflow.Manager) {
	r.Route("/api/reports", func(r chi.Router) {
		r.Get("/", handleList(archive))
		r.Post("/snapshot/{sessionID}", handleSnapshot(archive, sessions))
		r.Get("/{id}", handleGet(archive))
		r.Delete("/{id}", handleDelete(archive))
		r.Get("/{id}/markdown", handleMarkdown(archive))
		r.Get("/{id}/html", handleHTML(archive))
	})
}

func handleList(archive *Archive) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(archive.List())
	}
}

// handleSnapshot archives the session's current diagnosis. Only a
// session at the report stage has one.
func handleSnapshot(archive *Archive, sessions *workflow.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessions.Get(chi.URLParam(r, "sessionID"))
		if sess == nil {
			http.Error(w, `{"error":"session not found or expired"}`, http.StatusNotFound)
			return
		}

		state := sess.Snapshot()
		if state.Diagnosis == nil {
			http.Error(w, `{"error":"session has no completed diagnosis"}`, http.StatusConflict)
			return
		}

		snap := archive.Save(Snapshot{
			SessionID: state.SessionID,
			FileName:  state.FileName,
			Status:    StatusCompleted,
			Entities:  state.Entities,
			Diagnosis: state.Diagnosis,
		})

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(snap)
	}
}

func handleGet(archive *Archive) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := archive.Get(chi.URLParam(r, "id"))
		if snap == nil {
			http.Error(w, `{"error":"report not found"}`, http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(snap)
	}
}

func handleDelete(archive *Archive) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		archive.Delete(chi.URLParam(r, "id"))
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleMarkdown(archive *Archive) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := archive.Get(chi.URLParam(r, "id"))
		if snap == nil {
			http.Error(w, `{"error":"report not found"}`, http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.Write([]byte(RenderMarkdown(snap)))
	}
}

func handleHTML(archive *Archive) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := archive.Get(chi.URLParam(r, "id"))
		if snap == nil {
			http.Error(w, `{"error":"report not found"}`, http.StatusNotFound)
			return
		}
		html, err := RenderHTML(snap)
		if err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(html))
	}
}
