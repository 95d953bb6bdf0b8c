package llmadapter

import (
	"log/slog"
	"net/http"

	"golang.org/x/time/rate"
)

type llmOption func(*LlmAdapter)

// WithProvider registers a named provider. The first provider registered
// becomes the default one, unless WithDefaultProvider is also used.
func WithProvider(name string, provider Llm) llmOption {
	return func(llm *LlmAdapter) {
		llm.providers[name] = provider

		if llm.defaultProvider == nil {
			llm.defaultProvider = provider
		}
	}
}

// WithDefaultProvider registers the provider used by requests that do not
// select one by name.
func WithDefaultProvider(provider Llm) llmOption {
	return func(llm *LlmAdapter) {
		llm.providers[defaultProvider] = provider
		llm.defaultProvider = provider
	}
}

// WithDefaultModel sets the model used when neither the request nor the
// provider selects one.
func WithDefaultModel(model string) llmOption {
	return func(llm *LlmAdapter) {
		llm.defaultModel = model
	}
}

// WithApiKey sets an API key shared by all providers that were not given
// their own.
func WithApiKey(key string) llmOption {
	return func(llm *LlmAdapter) {
		llm.apiKey = key
	}
}

// WithSaveContext makes providers record the conversation, so that follow-up
// requests carry the previous messages.
func WithSaveContext() llmOption {
	return func(llm *LlmAdapter) {
		llm.saveContext = true
	}
}

func WithHttpClient(client *http.Client) llmOption {
	return func(llm *LlmAdapter) {
		llm.httpClient = client
	}
}

func WithLogger(logger *slog.Logger) llmOption {
	return func(llm *LlmAdapter) {
		if logger != nil {
			llm.logger = logger
		}
	}
}

// WithRateLimit caps how many requests per second are sent through the
// adapter, across all providers. Requests over the limit wait for a slot.
func WithRateLimit(requestsPerSecond float64, burst int) llmOption {
	return func(llm *LlmAdapter) {
		if burst < 1 {
			burst = 1
		}

		llm.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	}
}
