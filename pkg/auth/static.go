package auth

import (
	"context"

	"github.com/rxtech-lab/clearstreet-go/pkg/errors"
)

// StaticToken is a fixed bearer value that never expires.
// It is meant for deployments that are issued a long-lived token out of band.
type StaticToken struct {
	value string
}

var _ TokenSource = StaticToken{}

// NewStaticToken creates a StaticToken.
func NewStaticToken(value string) StaticToken {
	return StaticToken{value: value}
}

// Token returns the fixed value.
func (s StaticToken) Token(_ context.Context) (string, error) {
	if s.value == "" {
		return "", errors.New(errors.ErrCodeAuthentication, "static token is empty")
	}

	return s.value, nil
}

// String implements fmt.Stringer without exposing the token.
func (s StaticToken) String() string {
	return "StaticToken{" + redact(s.value) + "}"
}
