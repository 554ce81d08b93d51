package config

import (
	"errors"
	"os"
	"strings"
)

// ErrNoToken is returned when no GitHub token is configured.
var ErrNoToken = errors.New("no GitHub token configured")

// GetGitHubToken returns the GitHub token.
// It checks in order: environment variables, config file.
func GetGitHubToken(cfg *Config) (string, error) {
	for _, name := range []string{EnvPrefix + "_GITHUB_TOKEN", "GITHUB_TOKEN"} {
		if token := os.Getenv(name); token != "" {
			return token, nil
		}
	}

	if cfg != nil && cfg.GitHub.Token != "" {
		token := os.ExpandEnv(cfg.GitHub.Token)
		if token != "" && !strings.HasPrefix(token, "${") {
			return token, nil
		}
	}

	return "", ErrNoToken
}

// MaskToken returns a masked version of the token for display.
// Shows the first 4 and last 4 characters.
func MaskToken(token string) string {
	if token == "" {
		return "(not set)"
	}
	if len(token) <= 12 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

// TokenSource represents where a token was loaded from.
type TokenSource string

const (
	TokenSourceEnv    TokenSource = "environment"
	TokenSourceConfig TokenSource = "config_file"
	TokenSourceNone   TokenSource = "none"
)

// GetTokenSource returns where the GitHub token was sourced from.
func GetTokenSource(cfg *Config) TokenSource {
	if os.Getenv(EnvPrefix+"_GITHUB_TOKEN") != "" || os.Getenv("GITHUB_TOKEN") != "" {
		return TokenSourceEnv
	}
	if cfg != nil && cfg.GitHub.Token != "" {
		token := os.ExpandEnv(cfg.GitHub.Token)
		if token != "" && !strings.HasPrefix(token, "${") {
			return TokenSourceConfig
		}
	}
	return TokenSourceNone
}
