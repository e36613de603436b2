package errors

import "unicode"

// maxIDLength bounds node ids accepted from documents and API requests.
const maxIDLength = 256

// ValidateNodeID validates a node id read from a document or a request.
//
// The rules are intentionally conservative:
//   - No empty ids
//   - No control characters or null bytes
//   - Maximum length of 256 characters
//
// Ids are otherwise opaque to the engine.
func ValidateNodeID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "node id cannot be empty")
	}

	if len(id) > maxIDLength {
		return New(ErrCodeInvalidInput, "node id too long (max %d characters)", maxIDLength)
	}

	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "node id contains invalid control characters")
		}
	}

	return nil
}

// ValidateScope validates a scope id. The empty string is the root scope.
func ValidateScope(parentID string) error {
	if parentID == "" {
		return nil
	}
	if err := ValidateNodeID(parentID); err != nil {
		return New(ErrCodeInvalidInput, "invalid scope: %s", UserMessage(err))
	}
	return nil
}
