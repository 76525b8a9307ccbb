package shellcache

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

type statusResponse struct {
	Generation string `json:"generation"`
	Origin     string `json:"origin"`
	Entries    int    `json:"entries"`
	Uptime     string `json:"uptime"`
}

// AdminHandler returns the out-of-band maintenance surface, meant to be
// served on a separate listener so it is never subject to interception.
//
//	GET  /status    cache generation, entry count, uptime
//	POST /install   re-run shell precaching, returns the InstallReport
//	POST /activate  purge stale generations
func (wk *Worker) AdminHandler() http.Handler {
	r := chi.NewRouter()
	r.Get("/status", func(w http.ResponseWriter, req *http.Request) {
		keys, err := wk.store.Keys(req.Context(), wk.generation)
		if err != nil {
			wk.log.Error().Err(err).Msg("Could not list cache keys")
			http.Error(w, "could not list cache keys", http.StatusInternalServerError)
			return
		}
		writeJSON(w, statusResponse{
			Generation: wk.generation,
			Origin:     wk.origin.String(),
			Entries:    len(keys),
			Uptime:     time.Since(wk.started).Round(time.Second).String(),
		})
	})
	r.Post("/install", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, wk.Install(req.Context()))
	})
	r.Post("/activate", func(w http.ResponseWriter, req *http.Request) {
		if err := wk.Activate(req.Context()); err != nil {
			wk.log.Error().Err(err).Msg("Activate failed")
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	return r
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
