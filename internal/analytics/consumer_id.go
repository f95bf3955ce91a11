package analytics

import (
	"fmt"
	"os"
	"time"
)

// NewConsumerID returns a consumer name unique to this process.
func NewConsumerID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "folio"
	}
	return fmt.Sprintf("%s-%d-%d", host, os.Getpid(), time.Now().UnixNano())
}
