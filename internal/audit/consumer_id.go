// Package audit provides append-only audit trail capture and processing.
package audit

import (
	"fmt"
	"os"

	"github.com/oklog/ulid/v2"
)

// NewConsumerID names this process inside the Redis consumer group. The
// hostname keeps XINFO output readable for operators; the ULID makes the
// name unique when several workers share a host.
func NewConsumerID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return fmt.Sprintf("%s-%d-%s", host, os.Getpid(), ulid.Make())
}
