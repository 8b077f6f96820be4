package site

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Type is the kind of project a site serves.
type Type string

// Site types.
const (
	TypeLaravel   Type = "laravel"
	TypeSymfony   Type = "symfony"
	TypeWordPress Type = "wordpress"
	TypeStatic    Type = "static"
	TypeProxy     Type = "proxy"
)

// ValidTypes returns all valid site types.
func ValidTypes() []Type {
	return []Type{TypeLaravel, TypeSymfony, TypeWordPress, TypeStatic, TypeProxy}
}

// ParseType converts a user or file supplied string into a Type.
func ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		names := make([]string, 0, len(ValidTypes()))
		for _, v := range ValidTypes() {
			names = append(names, string(v))
		}
		return "", fmt.Errorf("unknown site type %q (valid: %s)", s, strings.Join(names, ", "))
	}
	return t, nil
}

// Valid reports whether t is one of the known types.
func (t Type) Valid() bool {
	switch t {
	case TypeLaravel, TypeSymfony, TypeWordPress, TypeStatic, TypeProxy:
		return true
	}
	return false
}

// ServesPublicDir reports whether the web root is the project's public/ directory.
func (t Type) ServesPublicDir() bool {
	switch t {
	case TypeLaravel, TypeSymfony:
		return true
	}
	return false
}

// UnmarshalJSON rejects unknown types.
func (t *Type) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
