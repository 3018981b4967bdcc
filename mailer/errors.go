package mailer

import (
	"net/http"

	"github.com/pkg/errors"
)

// ValidationError rejects a request before any network activity.
type ValidationError struct {
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return e.Reason + ": " + e.Err.Error()
	}
	return e.Reason
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// FetchError is a failed download of the document URL.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return e.Err.Error()
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

type Stage string

const (
	StageVerify Stage = "verify"
	StageSend   Stage = "send"
)

// DeliveryError is an SMTP failure during verify or send.
type DeliveryError struct {
	Stage Stage
	Err   error
}

func (e *DeliveryError) Error() string {
	return e.Err.Error()
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

var errMissingParameters = &ValidationError{Reason: BodyMissingParameters}

// ResponseFor maps the outcome of Deliver to the invocation response.
func ResponseFor(err error) Response {
	if err == nil {
		return Response{StatusCode: http.StatusOK, Body: BodySent}
	}

	var (
		validationErr *ValidationError
		fetchErr      *FetchError
		deliveryErr   *DeliveryError
	)
	switch {
	case errors.As(err, &validationErr):
		if validationErr.Err != nil {
			return Response{StatusCode: http.StatusBadRequest, Body: prefixInvalidPayload + validationErr.Err.Error()}
		}
		return Response{StatusCode: http.StatusBadRequest, Body: validationErr.Reason}
	case errors.As(err, &fetchErr):
		return Response{StatusCode: http.StatusInternalServerError, Body: prefixFetch + fetchErr.Error()}
	case errors.As(err, &deliveryErr):
		return Response{StatusCode: http.StatusInternalServerError, Body: prefixDelivery + deliveryErr.Error()}
	default:
		return Response{StatusCode: http.StatusInternalServerError, Body: prefixDelivery + err.Error()}
	}
}
