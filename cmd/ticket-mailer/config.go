package main

const (
	RuntimeLambda     = "lambda"
	RuntimeAPIGateway = "apigateway"
	RuntimeHTTP       = "http"

	ProviderSMTP = "smtp"
	ProviderNoop = "noop"
)

// Config selects the runtime surface and the optional components.
type Config struct {
	Runtime        string `envconfig:"MAILER_RUNTIME" default:"lambda"`
	MailProvider   string `envconfig:"MAIL_PROVIDER" default:"smtp"`
	S3Enabled      bool   `envconfig:"S3_ENABLED" default:"false"`
	TracingEnabled bool   `envconfig:"TRACING_ENABLED" default:"false"`
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"false"`
}
