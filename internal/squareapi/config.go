package squareapi

import (
	"net/http"
)

type Environment string

const (
	EnvironmentSandbox    Environment = "sandbox"
	EnvironmentProduction Environment = "production"
)

const (
	SandboxUrl    = "https://connect.squareupsandbox.com"
	ProductionUrl = "https://connect.squareup.com"
	// API version sent in every request
	DefaultVersion = "2024-11-20"
)

// Url returns the base url of the environment. Unknown environments return an empty string
func (e Environment) Url() (url string) {
	switch e {
	case EnvironmentSandbox:
		return SandboxUrl
	case EnvironmentProduction:
		return ProductionUrl
	default:
		return ""
	}
}

// Config holds the configuration of a Square connect client.
type Config struct {
	// Base URL without the /v2 suffix
	// Example: https://connect.squareupsandbox.com
	Url string
	// Bearer token of the merchant
	AccessToken string
	// Square-Version header. Defaults to DefaultVersion
	Version string
	// Custom headers to send
	CustomHeaders map[string]string
	// HTTP Client to use
	Client *http.Client
}
