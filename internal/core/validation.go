package core

// validation.go defines the error values attached to spreadsheet entries.
//
// Errors happen at two levels:
//  1. Classification: a row references something that cannot be resolved
//     (unknown supplier, missing category, no matching variant, ...)
//  2. Record: the product, variant or override built from the row fails its
//     own validation when it is about to be saved
//
// Both levels are reported as ValidationError values keyed by the
// spreadsheet column they concern, so the review UI can highlight cells.

import (
	"fmt"
	"strings"
)

// ErrorCode classifies a validation failure for machine consumption.
type ErrorCode string

const (
	CodeRequired     ErrorCode = "required"
	CodeNotFound     ErrorCode = "not_found"
	CodeNoPermission ErrorCode = "no_permission"
	CodeInvalid      ErrorCode = "invalid"
	CodeNotSaved     ErrorCode = "not_saved"
	CodeLookup       ErrorCode = "lookup_failed"
)

// ValidationError represents a single validation error for a field.
type ValidationError struct {
	Field   string    // Spreadsheet column, or "base" for row-wide problems
	Value   string    // The offending value, if any
	Code    ErrorCode // Failure class
	Message string    // Human-readable error message
}

func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// RecordInvalidError is returned when a catalog record fails its own
// validation before it is written.
type RecordInvalidError struct {
	Record string
	Errors []ValidationError
}

func (e *RecordInvalidError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, ve := range e.Errors {
		parts[i] = ve.Error()
	}
	return fmt.Sprintf("invalid %s: %s", e.Record, strings.Join(parts, "; "))
}

// recordErrors accumulates field problems while a record validates itself.
type recordErrors struct {
	record string
	errs   []ValidationError
}

func (r *recordErrors) add(field string, code ErrorCode, msg string) {
	r.errs = append(r.errs, ValidationError{Field: field, Code: code, Message: msg})
}

func (r *recordErrors) err() error {
	if len(r.errs) == 0 {
		return nil
	}
	return &RecordInvalidError{Record: r.record, Errors: r.errs}
}

// Messages used for classification errors.
const (
	msgBlank        = "can't be blank"
	msgNotFound     = "not found in database"
	msgNoPermission = "you do not have permission to manage this enterprise"
	msgInvalidNum   = "must be a number"
	msgInvalidInt   = "must be a whole number"
	msgInvalidBool  = "must be yes/no, true/false, or 1/0"
	msgInvalidUnit  = "incorrect value"
	msgUnitMissing  = "either unit_type or variant_unit_name must be present"
	msgNoProduct    = "no existing product was found with that name"
	msgNoVariant    = "no matching variant was found for that product"
	msgNoInventory  = "this hub does not have permission to list inventory from that producer"
	msgNotNegative  = "must be greater than or equal to 0"
	msgPendingSave  = "the product created earlier in this import was not saved"
	msgBadDefault   = "configured default value is invalid"
	msgNothingSaved = "Importer did not save any products successfully"
)
