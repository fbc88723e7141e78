package domain

import (
	"errors"
	"strings"
)

var (
	// ErrUnknownSchemaVersion is returned when a record declares a schema the registry cannot handle.
	ErrUnknownSchemaVersion = errors.New("unknown schema version")
	// ErrTargetNotFound is returned when a scoring target does not exist.
	ErrTargetNotFound = errors.New("scoring target not found")
	// ErrQuestionNotFound indicates a question ID is not part of the bank.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrEmptyBank is returned when question selection runs against an empty bank.
	ErrEmptyBank = errors.New("question bank is empty")
	// ErrBankNotFound indicates the bank content could not be loaded.
	ErrBankNotFound = errors.New("question bank not found")
	// ErrUnknownExportFormat is returned when an import package is not a recognized card or session export.
	ErrUnknownExportFormat = errors.New("not a recognized card or session export")
	// ErrNoDraft is returned when promoting a draft that holds no answers.
	ErrNoDraft = errors.New("draft has no answers")
)

// ValidationError carries every field violation found in a record.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "schema errors: " + strings.Join(e.Errors, "; ")
}
