package rulebase

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts the knowledge-base API. index may be nil when
// semantic search is not configured.
func RegisterRoutes(r chi.Router, store *Store, importer *Importer, index *SemanticIndex) {
	r.Route("/api/rules", func(r chi.Router) {
		r.Get("/", handleList(store))
		r.Get("/categories", handleCategories(store))
		r.Get("/search", handleSemanticSearch(index))
		r.Post("/import", handleImport(importer))
		r.Post("/import/{token}/confirm", handleConfirm(importer))
		r.Post("/import/{token}/cancel", handleCancel(importer))
		r.Get("/{id}", handleGet(store))
	})
}

func handleList(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rules := store.Filter(r.URL.Query().Get("q"), r.URL.Query().Get("category"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(rules)
	}
}

func handleCategories(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"categories": Categories,
			"count":      store.Count(),
		})
	}
}

func handleGet(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rule := store.Get(chi.URLParam(r, "id"))
		if rule == nil {
			http.Error(w, `{"error":"rule not found"}`, http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(rule)
	}
}

func handleImport(importer *Importer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		file, _, err := r.FormFile("file")
		if err != nil {
			http.Error(w, `{"error":"file field is required"}`, http.StatusBadRequest)
			return
		}
		defer file.Close()

		result, err := importer.Import(r.Context(), file)
		if err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadGateway)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(result)
	}
}

func handleConfirm(importer *Importer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rule, err := importer.ConfirmOverwrite(r.Context(), chi.URLParam(r, "token"))
		if err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"status": StatusImported, "rule": rule})
	}
}

func handleCancel(importer *Importer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		importer.Cancel(chi.URLParam(r, "token"))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "cancelled"})
	}
}

func handleSemanticSearch(index *SemanticIndex) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if index == nil {
			http.Error(w, `{"error":"semantic search is not configured"}`, http.StatusServiceUnavailable)
			return
		}
		query := r.URL.Query().Get("q")
		if query == "" {
			http.Error(w, `{"error":"q is required"}`, http.StatusBadRequest)
			return
		}
		limit := 5
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				limit = n
			}
		}

		matches, err := index.Search(r.Context(), query, limit, r.URL.Query().Get("category"))
		if err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
			return
		}
		if matches == nil {
			matches = []SemanticMatch{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(matches)
	}
}
