package mailer

import (
	"github.com/pure-golang/ticket-mailer/document"
)

// Request is the invocation payload.
type Request struct {
	PDF     document.Payload `json:"pdf"`
	URL     string           `json:"url,omitempty"`
	To      string           `json:"to"`
	Subject string           `json:"subject,omitempty"`
	Text    string           `json:"text,omitempty"`
}

// Response is the invocation result in the shape API gateways expect.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

const (
	BodyMissingParameters = "Missing required parameters"
	BodySent              = "E-mail enviado com sucesso!"

	prefixInvalidPayload = "Invalid pdf payload: "
	prefixFetch          = "Error fetching PDF from URL: "
	prefixDelivery       = "Erro ao enviar e-mail: "
)
