package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	apperrors "hotelbook/pkg/errors"

	"github.com/google/uuid"
)

// DecodeStrict decodes a single JSON object from the request body and rejects
// fields the target does not declare.
func DecodeStrict(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apperrors.TooLarge(maxErr.Limit)
		}
		if errors.Is(err, io.EOF) {
			return apperrors.InvalidInput("Request body cannot be empty")
		}
		return apperrors.InvalidInput(fmt.Sprintf("Invalid request body: %v", err))
	}
	if dec.More() {
		return apperrors.InvalidInput("Request body must contain a single JSON object")
	}
	return nil
}

// ParseID validates a path or query identifier as a UUID and returns its canonical form.
func ParseID(resource, raw string) (string, error) {
	if raw == "" {
		return "", apperrors.InvalidInput(fmt.Sprintf("%s ID cannot be empty", resource))
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", apperrors.InvalidInput(fmt.Sprintf("Invalid %s ID format: %s", resource, raw))
	}
	return id.String(), nil
}
