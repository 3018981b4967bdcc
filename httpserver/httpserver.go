package httpserver

import (
	"io"
	"net/http"

	"github.com/pure-golang/ticket-mailer/httpserver/middleware"
)

type Provider interface {
	Start() error
	io.Closer
}

type Runner interface {
	Run()
}

type RunableProvider interface {
	Provider
	Runner
}

// Wrap applies the standard middleware chain: recovery outermost, then
// monitoring.
func Wrap(h http.Handler) http.Handler {
	return middleware.Recovery(middleware.Monitoring(h))
}
