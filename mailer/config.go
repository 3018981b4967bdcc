package mailer

const (
	DefaultSubject = "Aqui está seu ingresso"
	DefaultText    = "Está anexado nesse email."

	AttachmentFilename    = "ingresso.pdf"
	AttachmentContentType = "application/pdf"
)

// Config holds the message defaults. From is usually the SMTP identity.
type Config struct {
	From           string `envconfig:"MAIL_FROM"`
	DefaultSubject string `envconfig:"MAIL_DEFAULT_SUBJECT" default:"Aqui está seu ingresso"`
	DefaultText    string `envconfig:"MAIL_DEFAULT_TEXT" default:"Está anexado nesse email."`
}

func (c Config) subject() string {
	if c.DefaultSubject == "" {
		return DefaultSubject
	}
	return c.DefaultSubject
}

func (c Config) text() string {
	if c.DefaultText == "" {
		return DefaultText
	}
	return c.DefaultText
}
