package smtp

import (
	"strings"
	"time"

	"github.com/pkg/errors"
)

const DefaultPort = 587

// Config contains SMTP connection parameters.
type Config struct {
	Service  string        `envconfig:"SMTP_SERVICE" default:"gmail"`  // provider preset, see Presets
	Host     string        `envconfig:"SMTP_HOST"`                     // overrides the preset host
	Port     int           `envconfig:"SMTP_PORT"`                     // overrides the preset port
	Username string        `envconfig:"SMTP_USER" required:"true"`     // account identity
	Password string        `envconfig:"SMTP_PASSWORD" required:"true"` // account secret or app password
	From     string        `envconfig:"SMTP_FROM"`                     // defaults to Username
	TLS      bool          `envconfig:"SMTP_TLS" default:"true"`       // enable STARTTLS
	Insecure bool          `envconfig:"SMTP_INSECURE" default:"false"` // skip certificate verification
	Timeout  time.Duration `envconfig:"SMTP_TIMEOUT" default:"30s"`    // dial and session deadline
}

// Preset is a managed mail service submission endpoint.
type Preset struct {
	Host string
	Port int
}

// Presets lists the known managed services. All of them take STARTTLS on 587.
var Presets = map[string]Preset{
	"gmail":   {Host: "smtp.gmail.com", Port: 587},
	"outlook": {Host: "smtp-mail.outlook.com", Port: 587},
	"hotmail": {Host: "smtp-mail.outlook.com", Port: 587},
	"yahoo":   {Host: "smtp.mail.yahoo.com", Port: 587},
	"icloud":  {Host: "smtp.mail.me.com", Port: 587},
}

// Endpoint resolves host and port from explicit settings and the service preset.
func (c Config) Endpoint() (string, int, error) {
	host, port := c.Host, c.Port

	if c.Service != "" {
		preset, ok := Presets[strings.ToLower(c.Service)]
		switch {
		case ok:
			if host == "" {
				host = preset.Host
			}
			if port == 0 {
				port = preset.Port
			}
		case host == "":
			return "", 0, errors.Errorf("unknown smtp service %q", c.Service)
		}
	}

	if host == "" {
		return "", 0, errors.New("smtp host is not configured")
	}
	if port == 0 {
		port = DefaultPort
	}

	return host, port, nil
}

// SenderAddress is the address messages are sent from.
func (c Config) SenderAddress() string {
	if c.From != "" {
		return c.From
	}
	return c.Username
}
