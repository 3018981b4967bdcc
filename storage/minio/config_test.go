package minio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfig_GetEndpoint(t *testing.T) {
	assert.Equal(t, "localhost:9000", Config{Endpoint: "localhost:9000"}.GetEndpoint())
	assert.Equal(t, DefaultEndpoint, Config{}.GetEndpoint())
}

func TestConfig_Timeout(t *testing.T) {
	assert.Equal(t, 30*time.Second, Config{}.timeout())
	assert.Equal(t, 5*time.Second, Config{Timeout: 5 * time.Second}.timeout())
}
