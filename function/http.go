package function

import (
	"encoding/json"
	"net/http"

	"github.com/pure-golang/ticket-mailer/logger"
	"github.com/pure-golang/ticket-mailer/mailer"
)

const (
	HeaderRequestID    = "X-Request-Id"
	HeaderInvocationID = "X-Invocation-Id"
)

// NewHTTPHandler serves POST / with the request as JSON body and GET /healthz.
func NewHTTPHandler(invoker Invoker) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeText(w, http.StatusOK, "ok")
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			writeText(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
			return
		}

		ctx, id := withInvocation(r.Context(), r.Header.Get(HeaderRequestID))
		w.Header().Set(HeaderInvocationID, id)

		var req mailer.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.FromContextWithErr(ctx, err).Warn("failed to decode request body")
			writeText(w, http.StatusBadRequest, bodyInvalidRequest+err.Error())
			return
		}

		resp := invoker.Handle(ctx, req)
		writeText(w, resp.StatusCode, resp.Body)
	})
	return mux
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
