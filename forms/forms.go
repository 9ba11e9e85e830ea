// Package forms holds the HTML form payloads, their normalization and validation rules.
package forms

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// NonFieldErrors is the key for errors that belong to the form as a whole.
const NonFieldErrors = "__all__"

const msgRequired = "This field is required."

// Errors maps a field name to the message shown next to it.
type Errors map[string]string

// Add records msg for field unless the field already has an error.
func (e Errors) Add(field, msg string) {
	if _, ok := e[field]; !ok {
		e[field] = msg
	}
}

// Has reports whether field has an error.
func (e Errors) Has(field string) bool {
	_, ok := e[field]
	return ok
}

// Get returns the error for field, or "".
func (e Errors) Get(field string) string {
	return e[field]
}

// Any reports whether the form has any error.
func (e Errors) Any() bool {
	return len(e) > 0
}

// fromValidation flattens ozzo validation errors into field messages.
func fromValidation(err error) Errors {
	out := Errors{}
	if err == nil {
		return out
	}
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for field, ferr := range verrs {
			if ferr != nil {
				out.Add(field, ferr.Error())
			}
		}
		return out
	}
	out.Add(NonFieldErrors, err.Error())
	return out
}
