package utils

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GenerateRunID generates a search run ID with a timestamp prefix
func GenerateRunID() string {
	timestamp := time.Now().UTC().Format("20060102-150405")
	return fmt.Sprintf("run-%s-%s", timestamp, uuid.NewString()[:8])
}

// GenerateRequestID generates a unique evaluation request ID
func GenerateRequestID() string {
	return uuid.NewString()
}
