package handle

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"smartseg/api/internal/pipeline"
)

const formField = "file"

func (h *Handle) Detect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST only")
		return
	}

	if h.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case errors.As(err, &tooBig):
			writeError(w, http.StatusBadRequest, "File too large: limit is "+strconv.FormatInt(h.maxUpload>>20, 10)+" MB")
		case errors.Is(err, http.ErrNotMultipart):
			writeError(w, http.StatusBadRequest, "No file uploaded")
		default:
			writeError(w, http.StatusBadRequest, "bad multipart form: "+err.Error())
		}
		return
	}
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}

	f, hdr, err := r.FormFile(formField)
	if err != nil {
		// часть без filename multipart кладёт в Value
		if _, ok := r.MultipartForm.Value[formField]; ok {
			writeError(w, http.StatusBadRequest, "No file selected")
			return
		}
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer f.Close()
	if hdr.Filename == "" {
		writeError(w, http.StatusBadRequest, "No file selected")
		return
	}

	data, err := io.ReadAll(f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	deadline := h.timeout
	if ts := r.Header.Get("X-Request-Timeout"); ts != "" {
		if v, _ := strconv.Atoi(ts); v > 0 {
			deadline = time.Duration(v) * time.Second
		}
	}
	ctx, cancel := context.WithTimeout(r.Context(), deadline)
	defer cancel()

	resp, err := h.svc.Run(ctx, pipeline.Input{Filename: hdr.Filename, Data: data, Source: pipeline.SourceHTTP})
	if err != nil {
		log.Printf("detect: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
