package internal

import (
	"log/slog"
	"net/http"
)

// Adapter defines the interface for internal configuration and utility methods
// that LLM providers can access from the main adapter.
type Adapter interface {
	// DefaultModel returns the default model name configured for the adapter.
	DefaultModel() string
	// ApiKey returns the adapter-wide API key, used by providers that were not
	// given their own.
	ApiKey() string
	// SaveContext reports whether providers should record the conversation.
	SaveContext() bool
	// HttpClient returns the *http.Client instance used for making HTTP requests.
	HttpClient() *http.Client
	// Logger returns the structured logger providers should log to.
	Logger() *slog.Logger
}

// ProviderRequestOptions is a marker interface that all provider-specific
// request options structs must implement. This allows for type assertion
// and reflection to extract provider-specific options from a generic request.
type ProviderRequestOptions interface {
	// RequestOptionsForProvider is a dummy method used to satisfy the interface.
	// It has no functional purpose other than to mark a struct as containing
	// provider-specific request options.
	RequestOptionsForProvider()
}
