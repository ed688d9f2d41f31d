package validator

import "strings"

// FieldError is one translated validation failure.
type FieldError struct {
	Field   string `json:"field,omitempty"`
	Tag     string `json:"tag,omitempty"`
	Value   any    `json:"-"`
	Message string `json:"message"`
}

// ValidationErrors collects the failures of one validation.
type ValidationErrors struct {
	Errors []FieldError `json:"errors"`
}

// Error joins the messages.
func (e *ValidationErrors) Error() string {
	if !e.HasErrors() {
		return ""
	}
	return "validation failed: " + strings.Join(e.Messages(), "; ")
}

// HasErrors reports whether at least one failure was collected.
func (e *ValidationErrors) HasErrors() bool {
	return e != nil && len(e.Errors) > 0
}

// Count returns the number of failures.
func (e *ValidationErrors) Count() int {
	if e == nil {
		return 0
	}
	return len(e.Errors)
}

// First returns the first message, or "".
func (e *ValidationErrors) First() string {
	if !e.HasErrors() {
		return ""
	}
	return e.Errors[0].Message
}

// FirstField returns the field of the first failure, or "".
func (e *ValidationErrors) FirstField() string {
	if !e.HasErrors() {
		return ""
	}
	return e.Errors[0].Field
}

// Messages returns every message in order.
func (e *ValidationErrors) Messages() []string {
	if e == nil {
		return nil
	}
	msgs := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		msgs[i] = fe.Message
	}
	return msgs
}
