package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Fields holds caller-supplied attributes of an open record. The service stores
// and returns them untouched; only the typed fields of a record carry rules.
type Fields map[string]any

// Reserved keys that clients can never write through a Fields payload.
const (
	KeyID       = "id"
	KeyMongoID  = "_id"
	KeyUsername = "username"
	KeyPassword = "password"
	KeyName     = "name"
	KeyAppKey   = "appKey"
	KeyAdmins   = "admins"
	KeyUsers    = "users"
	KeyEvents   = "events"
	KeyCreated  = "createdAtTimestamp"
	KeyUpdated  = "updatedAtTimestamp"
)

// Clone returns a shallow copy of f. A nil receiver yields an empty map.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Without returns a copy of f lacking the given keys.
func (f Fields) Without(keys ...string) Fields {
	out := f.Clone()
	for _, k := range keys {
		delete(out, k)
	}
	return out
}

// Merge returns a copy of f with every key of other set on top of it.
func (f Fields) Merge(other Fields) Fields {
	out := f.Clone()
	for k, v := range other {
		out[k] = v
	}
	return out
}

// Encode serializes f for storage. Keys come out sorted, so equal maps encode
// to equal strings.
func (f Fields) Encode() (string, error) {
	if f == nil {
		return "{}", nil
	}
	b, err := json.Marshal(f)
	if err != nil {
		return "", fmt.Errorf("encode fields: %w", err)
	}
	return string(b), nil
}

// DecodeFields parses a stored JSON object. An empty string is an empty record.
// Numbers come back as json.Number, exactly as they were written.
func DecodeFields(s string) (Fields, error) {
	f := Fields{}
	if s == "" {
		return f, nil
	}
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode fields: %w", err)
	}
	return f, nil
}

// flatten merges typed attributes over the open fields for JSON output.
func flatten(f Fields, typed map[string]any) ([]byte, error) {
	out := f.Clone()
	for k, v := range typed {
		out[k] = v
	}
	return json.Marshal(out)
}
