// Package auth provides password hashing, access tokens, and ballot receipts.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Receipt format: VOTE-{year}-{random}
// Example: VOTE-2026-4F8D2E1B9C
const (
	// ReceiptRandomLen is the length of the random part (hex encoded 5 bytes).
	ReceiptRandomLen = 10
)

var (
	// ErrInvalidReceiptFormat indicates the receipt format is invalid.
	ErrInvalidReceiptFormat = errors.New("invalid receipt format")
	// receiptFormatRegex validates the receipt format.
	receiptFormatRegex = regexp.MustCompile(`^VOTE-(\d{4})-([A-F0-9]{10})$`)
)

// GenerateReceiptID creates a new ballot receipt identifier.
// The receipt is opaque: it proves a ballot was accepted without
// revealing anything about its contents.
func GenerateReceiptID(now time.Time) (string, error) {
	randomBytes := make([]byte, ReceiptRandomLen/2)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("generate receipt: %w", err)
	}

	random := strings.ToUpper(hex.EncodeToString(randomBytes))
	return fmt.Sprintf("VOTE-%d-%s", now.UTC().Year(), random), nil
}

// ParsedReceipt contains the parsed parts of a ballot receipt.
type ParsedReceipt struct {
	Year   int
	Random string
}

// ParseReceiptID extracts the components from a ballot receipt.
// Returns an error if the format is invalid.
func ParseReceiptID(receipt string) (*ParsedReceipt, error) {
	matches := receiptFormatRegex.FindStringSubmatch(receipt)
	if matches == nil {
		return nil, ErrInvalidReceiptFormat
	}

	year, err := strconv.Atoi(matches[1])
	if err != nil {
		return nil, ErrInvalidReceiptFormat
	}

	return &ParsedReceipt{
		Year:   year,
		Random: matches[2],
	}, nil
}

// ValidateReceiptFormat checks if the receipt matches the expected format.
func ValidateReceiptFormat(receipt string) bool {
	return receiptFormatRegex.MatchString(receipt)
}
