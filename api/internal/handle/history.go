package handle

import (
	"context"
	"net/http"
	"strconv"

	"smartseg/api/internal/store"
)

type HistoryLister interface {
	Recent(ctx context.Context, limit int) ([]store.Detection, error)
}

// History: GET /history?limit=N, последние записи детекции (до 100).
func History(repo HistoryLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "GET only")
			return
		}
		limit := 20
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				writeError(w, http.StatusBadRequest, "bad limit")
				return
			}
			limit = min(n, 100)
		}
		rows, err := repo.Recent(r.Context(), limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if rows == nil {
			rows = []store.Detection{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": rows})
	}
}
