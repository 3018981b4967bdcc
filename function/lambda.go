package function

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-lambda-go/lambdacontext"

	"github.com/pure-golang/ticket-mailer/logger"
	"github.com/pure-golang/ticket-mailer/mailer"
)

type Lambda struct {
	invoker Invoker
}

func NewLambda(invoker Invoker) *Lambda {
	return &Lambda{invoker: invoker}
}

// Invoke handles a direct invocation whose event is the request itself. The
// event is decoded here so that a malformed one still gets a response. The
// error result is always nil: failures travel in the response.
func (l *Lambda) Invoke(ctx context.Context, event json.RawMessage) (mailer.Response, error) {
	ctx, _ = withInvocation(ctx, requestID(ctx))

	var req mailer.Request
	if err := json.Unmarshal(event, &req); err != nil {
		logger.FromContextWithErr(ctx, err).Warn("failed to decode invocation event")
		return mailer.Response{StatusCode: http.StatusBadRequest, Body: bodyInvalidRequest + err.Error()}, nil
	}

	return l.invoker.Handle(ctx, req), nil
}

// InvokeAPIGateway handles an API Gateway proxy event carrying the request as
// its JSON body.
func (l *Lambda) InvokeAPIGateway(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	ctx, _ = withInvocation(ctx, requestID(ctx))

	body := []byte(event.Body)
	if event.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(event.Body)
		if err != nil {
			return proxyResponse(http.StatusBadRequest, bodyInvalidRequest+err.Error()), nil
		}
		body = decoded
	}

	var req mailer.Request
	if err := json.Unmarshal(body, &req); err != nil {
		logger.FromContextWithErr(ctx, err).Warn("failed to decode request body")
		return proxyResponse(http.StatusBadRequest, bodyInvalidRequest+err.Error()), nil
	}

	resp := l.invoker.Handle(ctx, req)
	return proxyResponse(resp.StatusCode, resp.Body), nil
}

// Start blocks serving Lambda invocations. apiGateway selects proxy events
// instead of direct invocation.
func (l *Lambda) Start(apiGateway bool) {
	if apiGateway {
		lambda.Start(l.InvokeAPIGateway)
		return
	}
	lambda.Start(l.Invoke)
}

func requestID(ctx context.Context) string {
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		return lc.AwsRequestID
	}
	return ""
}

func proxyResponse(status int, body string) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "text/plain; charset=utf-8"},
		Body:       body,
	}
}
