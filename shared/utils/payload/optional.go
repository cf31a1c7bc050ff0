package payload

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Optional records whether a JSON key was present, separately from its value.
// A missing key leaves Set false; an explicit null sets both Set and Null.
type Optional[T any] struct {
	Value T
	Set   bool
	Null  bool
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Null = true
		return nil
	}
	return json.Unmarshal(data, &o.Value)
}

// Some builds a supplied value.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Set: true}
}

// Get returns the value when the key was present and not null.
func (o Optional[T]) Get() (T, bool) {
	return o.Value, o.Set && !o.Null
}

// Text returns a supplied string when it is not blank.
func Text(o Optional[string]) (string, bool) {
	v, ok := o.Get()
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}

// Email is Text with the surrounding whitespace removed, the form an address
// is validated, stored and looked up in.
func Email(o Optional[string]) (string, bool) {
	v, ok := Text(o)
	return strings.TrimSpace(v), ok
}

// UserPayload is the body of register, login, profile update and the user part
// of an ID verification.
type UserPayload struct {
	Email           Optional[string]          `json:"email"`
	FirstName       Optional[string]          `json:"first_name"`
	LastName        Optional[string]          `json:"last_name"`
	Phone           Optional[string]          `json:"phone"`
	Address1        Optional[string]          `json:"address1"`
	Address2        Optional[string]          `json:"address2"`
	Zipcode         Optional[string]          `json:"zipcode"`
	Password        Optional[string]          `json:"password"`
	CurrentPassword Optional[string]          `json:"current_password"`
	Utype           Optional[int]             `json:"utype"`
	Advisor         Optional[string]          `json:"advisor"`
	LastLogin       Optional[json.RawMessage] `json:"last_login"`
}

// VerifyDocumentPayload is the body of an ID document verification.
type VerifyDocumentPayload struct {
	Verified Optional[json.RawMessage] `json:"verified"`
	UserPayload
}

// VerifiedFlag decodes Verified, which must be a JSON boolean.
func (p *VerifyDocumentPayload) VerifiedFlag() (value bool, present bool, isBool bool) {
	if !p.Verified.Set {
		return false, false, false
	}
	if p.Verified.Null {
		return false, true, false
	}
	raw := bytes.TrimSpace(p.Verified.Value)
	switch string(raw) {
	case "true":
		return true, true, true
	case "false":
		return false, true, true
	default:
		return false, true, false
	}
}

// EmailPayload is the body of a password reset request.
type EmailPayload struct {
	Email Optional[string] `json:"email"`
}

// PasswordPayload is the body of a password reset.
type PasswordPayload struct {
	Password Optional[string] `json:"password"`
}
