// Package function exposes the mailer as a Lambda function or a plain HTTP
// endpoint.
package function

import (
	"context"

	"github.com/google/uuid"

	"github.com/pure-golang/ticket-mailer/logger"
	"github.com/pure-golang/ticket-mailer/mailer"
)

// Invoker handles one mailer request.
type Invoker interface {
	Handle(ctx context.Context, req mailer.Request) mailer.Response
}

type InvokerFunc func(ctx context.Context, req mailer.Request) mailer.Response

func (f InvokerFunc) Handle(ctx context.Context, req mailer.Request) mailer.Response {
	return f(ctx, req)
}

const (
	bodyInvalidRequest = "Invalid request body: "
	invocationIDKey    = "invocation_id"
)

// withInvocation tags the context logger with the invocation id, generating
// one when id is empty.
func withInvocation(ctx context.Context, id string) (context.Context, string) {
	if id == "" {
		id = uuid.NewString()
	}
	return logger.With(ctx, invocationIDKey, id), id
}
