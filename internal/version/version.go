package version

import (
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Version is the current version of the clearstreet-go library.
// This value is set at build time using ldflags:
// -ldflags "-X github.com/rxtech-lab/clearstreet-go/internal/version.Version=1.2.3"
// The value "main" indicates a development build.
var Version = "v0.4.0"

// Product is the product token sent in the User-Agent header.
const Product = "clearstreet-go"

// GetVersion returns the current version of the library.
func GetVersion() string {
	return Version
}

// Normalize returns v as a canonical semantic version without the "v" prefix.
// Development builds ("main" or an empty string) normalize to "dev".
func Normalize(v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" || v == "main" {
		return "dev", nil
	}

	parsed, err := semver.NewVersion(v)
	if err != nil {
		return "", err
	}

	return parsed.String(), nil
}

// UserAgent returns "clearstreet-go/<version>" for the running build.
// A version that is not valid semver is reported as "unknown".
func UserAgent() string {
	normalized, err := Normalize(Version)
	if err != nil {
		normalized = "unknown"
	}

	return Product + "/" + normalized
}
