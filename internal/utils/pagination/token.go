package pagination

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/SscSPs/esiti_settimanali/internal/apperrors"
)

const timeFormat = time.RFC3339Nano // Use a precise time format

// Cursor marks the last record of a page in store order.
type Cursor struct {
	CreatedAt time.Time
	RecordID  string
}

// EncodeToken creates an opaque page token from the last record returned.
func EncodeToken(c Cursor) string {
	tokenStr := fmt.Sprintf("%s|%s", c.CreatedAt.UTC().Format(timeFormat), c.RecordID)
	return base64.URLEncoding.EncodeToString([]byte(tokenStr))
}

// DecodeToken parses a token produced by EncodeToken. Malformed tokens are validation errors.
func DecodeToken(token string) (Cursor, error) {
	decodedBytes, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: invalid pagination token format (base64 decode): %w", apperrors.ErrValidation, err)
	}
	parts := strings.SplitN(string(decodedBytes), "|", 2)
	if len(parts) != 2 || parts[1] == "" {
		return Cursor{}, fmt.Errorf("%w: invalid pagination token format (split)", apperrors.ErrValidation)
	}

	createdAt, err := time.Parse(timeFormat, parts[0])
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: invalid pagination token format (created_at parse): %w", apperrors.ErrValidation, err)
	}
	return Cursor{CreatedAt: createdAt, RecordID: parts[1]}, nil
}

// After reports whether a record at (createdAt, id) comes after c in newest-first order.
func (c Cursor) After(createdAt time.Time, id string) bool {
	if createdAt.Equal(c.CreatedAt) {
		return id > c.RecordID
	}
	return createdAt.Before(c.CreatedAt)
}
