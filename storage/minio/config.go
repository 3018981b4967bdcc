package minio

import "time"

const DefaultEndpoint = "s3.amazonaws.com"

// Config describes an S3-compatible endpoint (MinIO, AWS S3, Yandex Object Storage).
type Config struct {
	Endpoint           string        `envconfig:"S3_ENDPOINT"`
	AccessKey          string        `envconfig:"S3_ACCESS_KEY" required:"true"`
	SecretKey          string        `envconfig:"S3_SECRET_KEY" required:"true"`
	Region             string        `envconfig:"S3_REGION" default:"us-east-1"`
	DefaultBucket      string        `envconfig:"S3_BUCKET"`
	Secure             bool          `envconfig:"S3_SECURE" default:"true"`
	Timeout            time.Duration `envconfig:"S3_TIMEOUT" default:"30s"`
	InsecureSkipVerify bool          `envconfig:"S3_INSECURE_SKIP_VERIFY" default:"false"`
}

func (c Config) GetEndpoint() string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	return DefaultEndpoint
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return 30 * time.Second
	}
	return c.Timeout
}
