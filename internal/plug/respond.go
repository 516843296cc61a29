package plug

import (
	"errors"
	"net/http"

	"github.com/gqlpipe/gqlpipe/internal/pipeline"
	"github.com/gqlpipe/gqlpipe/internal/request"
)

// writeError maps a pipeline or resolution failure to its HTTP status:
// client-input problems are 400, verb/operation mismatches are 405, and
// anything unclassified is an internal 500 with the raw message.
func (h *Handler) writeError(w http.ResponseWriter, err error) int {
	var inputErr *request.InputError
	if errors.As(err, &inputErr) {
		return writeText(w, http.StatusBadRequest, inputErr.Message)
	}
	var methodErr *pipeline.MethodError
	if errors.As(err, &methodErr) {
		return writeText(w, http.StatusMethodNotAllowed, methodErr.Error())
	}
	return writeText(w, http.StatusInternalServerError, err.Error())
}

// writeResult encodes a pipeline result: plain data is a 200, a result
// carrying GraphQL errors is a 400 with the errors array (and data when
// execution produced any).
func (h *Handler) writeResult(w http.ResponseWriter, res *pipeline.Result) int {
	if len(res.Errors) > 0 {
		body := map[string]any{"errors": res.Errors}
		if res.Data != nil {
			body["data"] = res.Data
		}
		return h.writeJSON(w, http.StatusBadRequest, body)
	}
	return h.writeJSON(w, http.StatusOK, map[string]any{"data": res.Data})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) int {
	encoded, err := h.cfg.Codec.Encode(v)
	if err != nil {
		return writeText(w, http.StatusInternalServerError, err.Error())
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(encoded)
	return status
}

func writeText(w http.ResponseWriter, status int, msg string) int {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(msg))
	return status
}

func setCORSHeaders(w http.ResponseWriter, r *http.Request, opts CORSOptions) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return
	}
	allowed := false
	wildcard := false
	for _, o := range opts.AllowedOrigins {
		if o == "*" {
			allowed = true
			wildcard = true
			break
		}
		if o == origin {
			allowed = true
		}
	}
	if !allowed {
		return
	}
	if wildcard {
		w.Header().Set("Access-Control-Allow-Origin", "*")
	} else {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Add("Vary", "Origin")
	}
	if r.Method == http.MethodOptions {
		if hdr := r.Header.Get("Access-Control-Request-Headers"); hdr != "" {
			w.Header().Set("Access-Control-Allow-Headers", hdr)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
	}
}
