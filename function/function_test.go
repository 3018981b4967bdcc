package function

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pure-golang/ticket-mailer/document"
	"github.com/pure-golang/ticket-mailer/logger"
	"github.com/pure-golang/ticket-mailer/mailer"
)

// recorder returns a fixed response and logs one record so the invocation id
// can be inspected.
type recorder struct {
	resp     mailer.Response
	requests []mailer.Request
}

func (r *recorder) Handle(ctx context.Context, req mailer.Request) mailer.Response {
	r.requests = append(r.requests, req)
	logger.FromContext(ctx).Info("handled")
	return r.resp
}

func captureContext(t *testing.T) (context.Context, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	return logger.NewContext(context.Background(), logger.NewJSON(buf, slog.LevelDebug)), buf
}

func invocationID(t *testing.T, buf *bytes.Buffer) string {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &record))
	id, _ := record["invocation_id"].(string)
	return id
}

func TestLambda_Invoke(t *testing.T) {
	inv := &recorder{resp: mailer.Response{StatusCode: 200, Body: "E-mail enviado com sucesso!"}}
	ctx, buf := captureContext(t)
	ctx = lambdacontext.NewContext(ctx, &lambdacontext.LambdaContext{AwsRequestID: "req-123"})

	resp, err := NewLambda(inv).Invoke(ctx, json.RawMessage(`{"pdf":"JVBERi0x","to":"a@b.com"}`))

	require.NoError(t, err)
	assert.Equal(t, mailer.Response{StatusCode: 200, Body: "E-mail enviado com sucesso!"}, resp)
	require.Len(t, inv.requests, 1)
	assert.Equal(t, "a@b.com", inv.requests[0].To)
	assert.Equal(t, document.KindInlineBase64, inv.requests[0].PDF.Kind())
	assert.Equal(t, "req-123", invocationID(t, buf))
}

func TestLambda_Invoke_MalformedEvent(t *testing.T) {
	inv := &recorder{resp: mailer.Response{StatusCode: 200}}
	handler := lambda.NewHandler(NewLambda(inv).Invoke)

	out, err := handler.Invoke(context.Background(), []byte(`{"pdf":42,"to":"a@b.com"}`))

	require.NoError(t, err)
	var resp mailer.Response
	require.NoError(t, json.Unmarshal(out, &resp))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Body, "Invalid request body: "), resp.Body)
	assert.Empty(t, inv.requests)
}

func TestLambda_Invoke_FailureIsNotAnError(t *testing.T) {
	inv := &recorder{resp: mailer.Response{StatusCode: 500, Body: "Erro ao enviar e-mail: boom"}}

	resp, err := NewLambda(inv).Invoke(context.Background(), json.RawMessage(`{}`))

	require.NoError(t, err)
	assert.Equal(t, 500, resp.StatusCode)
}

func TestLambda_Invoke_GeneratesID(t *testing.T) {
	inv := &recorder{resp: mailer.Response{StatusCode: 400}}
	ctx, buf := captureContext(t)

	_, err := NewLambda(inv).Invoke(ctx, json.RawMessage(`{}`))
	require.NoError(t, err)

	_, err = uuid.Parse(invocationID(t, buf))
	assert.NoError(t, err)
}

func TestLambda_InvokeAPIGateway(t *testing.T) {
	inv := &recorder{resp: mailer.Response{StatusCode: 200, Body: "E-mail enviado com sucesso!"}}

	resp, err := NewLambda(inv).InvokeAPIGateway(context.Background(), events.APIGatewayProxyRequest{
		Body: `{"url":"https://example.test/x.pdf","to":"a@b.com"}`,
	})

	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "E-mail enviado com sucesso!", resp.Body)
	assert.Equal(t, "text/plain; charset=utf-8", resp.Headers["Content-Type"])
	require.Len(t, inv.requests, 1)
	assert.Equal(t, "https://example.test/x.pdf", inv.requests[0].URL)
}

func TestLambda_InvokeAPIGateway_Base64Body(t *testing.T) {
	inv := &recorder{resp: mailer.Response{StatusCode: 200}}

	_, err := NewLambda(inv).InvokeAPIGateway(context.Background(), events.APIGatewayProxyRequest{
		Body:            base64.StdEncoding.EncodeToString([]byte(`{"pdf":"JVBERi0x","to":"a@b.com"}`)),
		IsBase64Encoded: true,
	})

	require.NoError(t, err)
	require.Len(t, inv.requests, 1)
	assert.Equal(t, document.KindInlineBase64, inv.requests[0].PDF.Kind())
}

func TestLambda_InvokeAPIGateway_BadBody(t *testing.T) {
	inv := &recorder{}
	l := NewLambda(inv)

	resp, err := l.InvokeAPIGateway(context.Background(), events.APIGatewayProxyRequest{Body: `{"to":`})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Body, "Invalid request body: "))

	resp, err = l.InvokeAPIGateway(context.Background(), events.APIGatewayProxyRequest{Body: "%%%", IsBase64Encoded: true})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	assert.Empty(t, inv.requests)
}

func TestHTTPHandler_Post(t *testing.T) {
	inv := &recorder{resp: mailer.Response{StatusCode: 200, Body: "E-mail enviado com sucesso!"}}
	h := NewHTTPHandler(inv)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"pdf":"JVBERi0x","to":"a@b.com"}`))
	req.Header.Set(HeaderRequestID, "edge-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "E-mail enviado com sucesso!", rec.Body.String())
	assert.Equal(t, "edge-42", rec.Header().Get(HeaderInvocationID))
	require.Len(t, inv.requests, 1)
	assert.Equal(t, "a@b.com", inv.requests[0].To)
}

func TestHTTPHandler_PropagatesStatus(t *testing.T) {
	inv := &recorder{resp: mailer.Response{StatusCode: 400, Body: "Missing required parameters"}}
	rec := httptest.NewRecorder()
	NewHTTPHandler(inv).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Missing required parameters", rec.Body.String())
	_, err := uuid.Parse(rec.Header().Get(HeaderInvocationID))
	assert.NoError(t, err)
}

func TestHTTPHandler_BadBody(t *testing.T) {
	inv := &recorder{}
	rec := httptest.NewRecorder()
	NewHTTPHandler(inv).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"pdf":42}`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "Invalid request body: "))
	assert.Empty(t, inv.requests)
}

func TestHTTPHandler_MethodNotAllowed(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHTTPHandler(&recorder{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, http.MethodPost, rec.Header().Get("Allow"))
}

func TestHTTPHandler_UnknownPath(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHTTPHandler(&recorder{}).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/other", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHTTPHandler_Healthz(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHTTPHandler(&recorder{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestInvokerFunc(t *testing.T) {
	var called bool
	f := InvokerFunc(func(context.Context, mailer.Request) mailer.Response {
		called = true
		return mailer.Response{StatusCode: 200}
	})

	assert.Equal(t, 200, f.Handle(context.Background(), mailer.Request{}).StatusCode)
	assert.True(t, called)
}
