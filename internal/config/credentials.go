package config

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Environment variables holding the credentials a run needs.
const (
	EnvAnthropicAPIKey = "ANTHROPIC_API_KEY"
	EnvGitHubToken     = "GITHUB_TOKEN"
)

// LookupFunc resolves an environment variable. os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// Credentials holds the secrets read from the environment.
type Credentials struct {
	AnthropicAPIKey Secret
	GitHubToken     Secret
}

// CredentialsFromEnv reads credentials through lookup.
func CredentialsFromEnv(lookup LookupFunc) Credentials {
	var creds Credentials
	if v, ok := lookup(EnvAnthropicAPIKey); ok {
		creds.AnthropicAPIKey = Secret(strings.TrimSpace(v))
	}
	if v, ok := lookup(EnvGitHubToken); ok {
		creds.GitHubToken = Secret(strings.TrimSpace(v))
	}
	return creds
}

// MissingCredentialsError lists every required credential that was absent.
type MissingCredentialsError struct {
	Names []string
}

func (e *MissingCredentialsError) Error() string {
	return fmt.Sprintf("missing required credentials: %s", strings.Join(e.Names, ", "))
}

// RequireCredentials checks that every name resolves to a non-blank value.
// All missing names are reported together in a *MissingCredentialsError.
func RequireCredentials(lookup LookupFunc, names ...string) error {
	var missing []string
	for _, name := range names {
		v, ok := lookup(name)
		if !ok || strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &MissingCredentialsError{Names: missing}
	}
	return nil
}

const redactedSecret = "[REDACTED]"

// Secret holds a credential. Every printed or serialized form is redacted;
// only Value returns the real string.
type Secret string

func (s Secret) masked() string {
	if s == "" {
		return ""
	}
	return redactedSecret
}

func (s Secret) String() string { return s.masked() }

// GoString keeps %#v from printing the value.
func (s Secret) GoString() string { return "Secret(" + redactedSecret + ")" }

// Value returns the credential itself.
func (s Secret) Value() string { return string(s) }

// IsSet reports whether the credential is non-empty.
func (s Secret) IsSet() bool { return s != "" }

func (s Secret) MarshalJSON() ([]byte, error) { return json.Marshal(s.masked()) }

func (s Secret) MarshalText() ([]byte, error) { return []byte(s.masked()), nil }

func (s Secret) MarshalYAML() (interface{}, error) { return s.masked(), nil }
