package auth

import "fmt"

const (
	// DefaultTokenURL is the production client-credentials endpoint.
	DefaultTokenURL = "https://auth.clearstreet.io/oauth/token"
	// DefaultAudience is the audience requested for API tokens.
	DefaultAudience = "https://api.clearstreet.io"
)

// Credential identifies the client to the token endpoint. It is never mutated after construction.
type Credential struct {
	ClientID     string
	ClientSecret string
	Audience     string
	TokenURL     string
}

// String implements fmt.Stringer without exposing the secret.
func (c Credential) String() string {
	return fmt.Sprintf("Credential{ClientID: %q, ClientSecret: %q, Audience: %q, TokenURL: %q}",
		c.ClientID, redact(c.ClientSecret), c.Audience, c.TokenURL)
}

// GoString keeps %#v from printing the secret.
func (c Credential) GoString() string {
	return c.String()
}

func redact(secret string) string {
	if secret == "" {
		return ""
	}

	return "[REDACTED]"
}
