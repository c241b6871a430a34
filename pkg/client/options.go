package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/joho/godotenv"
	"github.com/rxtech-lab/clearstreet-go/pkg/auth"
	cserrors "github.com/rxtech-lab/clearstreet-go/pkg/errors"
	"github.com/rxtech-lab/clearstreet-go/pkg/stream"
	"github.com/rxtech-lab/clearstreet-go/pkg/transport"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultAPIURL is the production REST base URL.
	DefaultAPIURL = "https://api.clearstreet.io"

	envPrefix = "CLEARSTREET_"
)

// Options configures a Client.
type Options struct {
	APIURL       string                `json:"apiUrl" yaml:"apiUrl" jsonschema:"title=API URL,description=Base URL of the Studio REST API,default=https://api.clearstreet.io" validate:"required,url"`
	WebsocketURL string                `json:"websocketUrl" yaml:"websocketUrl" jsonschema:"title=Websocket URL,description=Account activity endpoint,default=wss://api.clearstreet.io/studio/v2/ws" validate:"required,url"`
	AuthURL      string                `json:"authUrl" yaml:"authUrl" jsonschema:"title=Auth URL,description=OAuth2 client-credentials token endpoint,default=https://auth.clearstreet.io/oauth/token" validate:"required,url"`
	Audience     string                `json:"audience" yaml:"audience" jsonschema:"title=Audience,description=Audience requested for API tokens,default=https://api.clearstreet.io" validate:"required"`
	ClientID     string                `json:"clientId" yaml:"clientId" jsonschema:"title=Client ID,description=OAuth2 client id" validate:"required_without=StaticToken"`
	ClientSecret string                `json:"clientSecret" yaml:"clientSecret" jsonschema:"title=Client Secret,description=OAuth2 client secret" validate:"required_without=StaticToken"`
	StaticToken  string                `json:"staticToken,omitempty" yaml:"staticToken,omitempty" jsonschema:"title=Static Token,description=Long-lived bearer token used instead of client credentials"`
	AccountID    string                `json:"accountId" yaml:"accountId" jsonschema:"title=Account ID,description=Account used by account-scoped calls and the activity stream"`
	LazyAuth     bool                  `json:"lazyAuth" yaml:"lazyAuth" jsonschema:"title=Lazy Auth,description=Defer the first token request until it is needed"`
	LogLevel     string                `json:"logLevel,omitempty" yaml:"logLevel,omitempty" jsonschema:"title=Log Level,enum=debug,enum=info,enum=warn,enum=error" validate:"omitempty,oneof=debug info warn error"`
	RetryPolicy  transport.RetryPolicy `json:"retryPolicy" yaml:"retryPolicy" jsonschema:"title=Retry Policy,description=Attempts and delays for transport failures"`
}

// DefaultOptions returns Options pointing at production with the default retry policy.
func DefaultOptions() Options {
	return Options{
		APIURL:       DefaultAPIURL,
		WebsocketURL: stream.DefaultURL,
		AuthURL:      auth.DefaultTokenURL,
		Audience:     auth.DefaultAudience,
		ClientID:     "",
		ClientSecret: "",
		StaticToken:  "",
		AccountID:    "",
		LazyAuth:     false,
		LogLevel:     "info",
		RetryPolicy:  transport.DefaultRetryPolicy,
	}
}

// Validate validates the Options struct.
func (o Options) Validate() error {
	validate := validator.New()
	if err := validate.Struct(o); err != nil {
		return cserrors.Wrap(cserrors.ErrCodeInternal, "invalid client options", err)
	}

	return nil
}

// String implements fmt.Stringer without exposing the secret or the static token.
func (o Options) String() string {
	return fmt.Sprintf(
		"Options{APIURL: %q, WebsocketURL: %q, AuthURL: %q, Audience: %q, ClientID: %q, ClientSecret: %q, StaticToken: %q, AccountID: %q, LazyAuth: %t}",
		o.APIURL, o.WebsocketURL, o.AuthURL, o.Audience, o.ClientID,
		redact(o.ClientSecret), redact(o.StaticToken), o.AccountID, o.LazyAuth,
	)
}

// GoString keeps %#v from printing secrets.
func (o Options) GoString() string {
	return o.String()
}

func redact(secret string) string {
	if secret == "" {
		return ""
	}

	return "[REDACTED]"
}

// LoadOptionsFile reads YAML (or JSON) from path on top of DefaultOptions.
func LoadOptionsFile(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, cserrors.Wrapf(cserrors.ErrCodeInternal, err, "failed to read options file %s", path)
	}

	options := DefaultOptions()
	if err := yaml.Unmarshal(data, &options); err != nil {
		return Options{}, cserrors.Wrapf(cserrors.ErrCodeInternal, err, "failed to parse options file %s", path)
	}

	return options, nil
}

// LoadOptionsFromEnv loads the given dotenv files (".env" when none are given,
// ignored if missing) and builds Options from CLEARSTREET_* variables on top of
// DefaultOptions. Variables already set in the process take precedence over files.
func LoadOptionsFromEnv(files ...string) (Options, error) {
	if len(files) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Options{}, cserrors.Wrap(cserrors.ErrCodeInternal, "failed to load .env", err)
		}
	} else if err := godotenv.Load(files...); err != nil {
		return Options{}, cserrors.Wrap(cserrors.ErrCodeInternal, "failed to load env files", err)
	}

	options := DefaultOptions()
	if err := options.ApplyEnv(); err != nil {
		return Options{}, err
	}

	return options, nil
}

// ApplyEnv overrides fields with every CLEARSTREET_* variable that is set.
func (o *Options) ApplyEnv() error {
	fields := map[string]*string{
		"API_URL":       &o.APIURL,
		"WEBSOCKET_URL": &o.WebsocketURL,
		"AUTH_URL":      &o.AuthURL,
		"AUDIENCE":      &o.Audience,
		"CLIENT_ID":     &o.ClientID,
		"CLIENT_SECRET": &o.ClientSecret,
		"STATIC_TOKEN":  &o.StaticToken,
		"ACCOUNT_ID":    &o.AccountID,
		"LOG_LEVEL":     &o.LogLevel,
	}

	for name, field := range fields {
		if value, ok := os.LookupEnv(envPrefix + name); ok {
			*field = value
		}
	}

	if value, ok := os.LookupEnv(envPrefix + "LAZY_AUTH"); ok {
		lazy, err := strconv.ParseBool(value)
		if err != nil {
			return cserrors.Wrapf(cserrors.ErrCodeInternal, err, "invalid %sLAZY_AUTH", envPrefix)
		}
		o.LazyAuth = lazy
	}

	return nil
}

// OptionsSchema returns the JSON schema of Options.
func OptionsSchema() (string, error) {
	r := new(jsonschema.Reflector)
	r.DoNotReference = true
	schema := r.Reflect(&Options{})

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", cserrors.Wrap(cserrors.ErrCodeSerialization, "failed to encode options schema", err)
	}

	return string(data), nil
}
