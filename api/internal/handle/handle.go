package handle

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"smartseg/api/internal/pipeline"
)

// Runner: то, что нужно хендлерам от пайплайна.
type Runner interface {
	Run(ctx context.Context, in pipeline.Input) (pipeline.Response, error)
}

type Handle struct {
	svc       Runner
	maxUpload int64
	timeout   time.Duration
	ping      func(ctx context.Context) error
}

// New: maxUpload в байтах; ping может быть nil, если БД не подключена.
func New(svc Runner, maxUpload int64, ping func(ctx context.Context) error) *Handle {
	return &Handle{
		svc:       svc,
		maxUpload: maxUpload,
		timeout:   180 * time.Second,
		ping:      ping,
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func (h *Handle) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if h.ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("db: not ok\n" + err.Error()))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Static отдаёт файлы из dir под prefix без листинга директорий.
func Static(prefix, dir string) http.Handler {
	fs := http.StripPrefix(prefix, http.FileServer(http.Dir(dir)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == prefix || r.URL.Path[len(r.URL.Path)-1] == '/' {
			http.NotFound(w, r)
			return
		}
		fs.ServeHTTP(w, r)
	})
}
