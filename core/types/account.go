package types

import (
	"fmt"
	"regexp"
)

const (
	// MinAccountIDLen and MaxAccountIDLen bound the length of a valid
	// account identifier, separators included.
	MinAccountIDLen = 2
	MaxAccountIDLen = 64
)

// accountIDPattern accepts lowercase alphanumeric segments joined by single
// '.', '-' or '_' separators. Separators may not lead, trail, or repeat, so
// the byte ':' used by the state key schema can never occur inside a valid
// identifier.
var accountIDPattern = regexp.MustCompile(`^[a-z0-9]+([._-][a-z0-9]+)*$`)

// AccountID names the tenant whose contract storage, code, and stake are
// being addressed. All state keys produced for an invocation are scoped to
// exactly one AccountID.
type AccountID string

// ParseAccountID validates the supplied string and returns it as an
// AccountID. The zero AccountID is never valid.
func ParseAccountID(s string) (AccountID, error) {
	if len(s) < MinAccountIDLen || len(s) > MaxAccountIDLen {
		return "", fmt.Errorf("types: account id %q must be between %d and %d characters", s, MinAccountIDLen, MaxAccountIDLen)
	}
	if !accountIDPattern.MatchString(s) {
		return "", fmt.Errorf("types: account id %q contains invalid characters", s)
	}
	return AccountID(s), nil
}

// MustAccountID parses the supplied string and panics on failure. Intended
// for tests and static fixtures only.
func MustAccountID(s string) AccountID {
	id, err := ParseAccountID(s)
	if err != nil {
		panic(err)
	}
	return id
}

// Valid reports whether the identifier satisfies the account id grammar.
func (id AccountID) Valid() bool {
	_, err := ParseAccountID(string(id))
	return err == nil
}

func (id AccountID) String() string { return string(id) }
