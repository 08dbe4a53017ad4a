package inspect

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
)

// EntriesHandler serves ListEntries as JSON.
func EntriesHandler(insp *Inspector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"entries": insp.ListEntries(),
		})
	}
}

// EntryHandler serves DescribeEntry for the {id} path value.
func EntryHandler(insp *Inspector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		detail, err := insp.DescribeEntry(r.PathValue("id"))
		if errors.Is(err, ErrEntryNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, detail)
	}
}

// EventsHandler serves Recent. The optional "limit" query parameter bounds
// the number of events returned.
func EventsHandler(insp *Inspector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a non-negative integer"})
				return
			}
			limit = n
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"events": insp.Recent(limit),
		})
	}
}

// LivenessHandler answers liveness probes.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

// RegisterHandlers mounts the inspector endpoints on mux.
func RegisterHandlers(mux *http.ServeMux, insp *Inspector) {
	mux.HandleFunc("GET /entries", EntriesHandler(insp))
	mux.HandleFunc("GET /entries/{id}", EntryHandler(insp))
	mux.HandleFunc("GET /events", EventsHandler(insp))
	mux.HandleFunc("GET /healthz", LivenessHandler())
}

// Handler returns a mux with every inspector endpoint.
func Handler(insp *Inspector) http.Handler {
	mux := http.NewServeMux()
	RegisterHandlers(mux, insp)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
