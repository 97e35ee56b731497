package serve

import (
	"encoding/json"
	"net/http"
	"strconv"

	log "github.com/sirupsen/logrus"

	"holecenter/journal"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 200
)

// RunLister is satisfied by *journal.Journal.
type RunLister interface {
	Recent(limit int) ([]*journal.Run, error)
}

// RunsServer serves the most recent journaled runs, e.g. /runs?limit=5.
type RunsServer struct {
	Journal RunLister
}

func (s *RunsServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		if n > maxRunsLimit {
			n = maxRunsLimit
		}
		limit = n
	}

	runs, err := s.Journal.Recent(limit)
	if err != nil {
		log.Errorf("Failed to list runs: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	js, err := json.Marshal(runs)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(js)
}
