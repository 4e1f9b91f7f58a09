package domain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
)

// ContactSubmission represents a contact form submission. It lives for one
// request and is never stored.
type ContactSubmission struct {
	Name    string `json:"name" validate:"required" example:"Jane"`
	Email   string `json:"email" validate:"required,contact_email" example:"jane@example.com"`
	Phone   Scalar `json:"phone" swaggertype:"string" example:"555-1234"` // optional
	Service string `json:"service" validate:"required" example:"Consulting"`
	Message string `json:"message" validate:"required" example:"I would like a quote."`
}

// Scalar is a form value a client may send as a JSON string, number or
// boolean. Falsy values (null, false, 0) decode to the empty string; objects
// and arrays are rejected.
type Scalar string

var errNotScalar = errors.New("value must be a string, number or boolean")

func (s *Scalar) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return err
	}

	switch t := v.(type) {
	case nil:
		*s = ""
	case string:
		*s = Scalar(t)
	case bool:
		if t {
			*s = "true"
		} else {
			*s = ""
		}
	case json.Number:
		if f, err := t.Float64(); err == nil && f == 0 {
			*s = ""
		} else {
			*s = Scalar(t.String())
		}
	default:
		return errNotScalar
	}
	return nil
}

var (
	// ErrRequiredFieldsMissing means name, email, service or message was empty.
	ErrRequiredFieldsMissing = errors.New("required fields missing")
	// ErrInvalidEmail means the email did not have the local@domain.tld shape.
	ErrInvalidEmail = errors.New("invalid email")
)

// ContactUsecase defines the interface for contact form operations
type ContactUsecase interface {
	// Submit validates the submission, then notifies the owner and
	// acknowledges the submitter, in that order.
	Submit(ctx context.Context, sub *ContactSubmission) error
}
