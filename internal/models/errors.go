package models

import (
	"errors"
	"fmt"
)

var (
	// ErrNoText is the structural failure: nothing readable came out of the document.
	ErrNoText = errors.New("no text could be extracted from document")
	// ErrUnknownProfile is returned when no institution profile matches the request.
	ErrUnknownProfile = errors.New("unknown institution profile")
)

// WarningNoAccounts is reported when segmentation recognises no account header.
const WarningNoAccounts = "no accounts found"

// StructuralError aborts a document run. It matches ErrNoText with errors.Is.
type StructuralError struct {
	Reason string
	Err    error
}

func (e *StructuralError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("structural error: %s: %v", e.Reason, e.Err)
	}
	return "structural error: " + e.Reason
}

func (e *StructuralError) Unwrap() error { return e.Err }

func (e *StructuralError) Is(target error) bool {
	return target == ErrNoText
}
