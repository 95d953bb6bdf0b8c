package openai

import "time"

type Opt func(*OpenAi)

// WithBaseUrl sets the URL at which the OpenAI-compatible API is available.
//
// If not specified, will use OpenAI's API.
func WithBaseUrl(url string) Opt {
	return func(p *OpenAi) {
		p.baseUrl = url
	}
}

// WithApiKey sets the API key for this provider, taking precedence over the
// key configured on the adapter.
func WithApiKey(apiKey string) Opt {
	return func(p *OpenAi) {
		p.apiKey = apiKey
	}
}

// WithDefaultModel sets the model used by requests not selecting one, taking
// precedence over the model configured on the adapter.
func WithDefaultModel(model string) Opt {
	return func(p *OpenAi) {
		p.model = &model
	}
}

// WithMaxRetries sets how many times a failed request is retried by the
// client. Negative values keep the client default.
func WithMaxRetries(retries int) Opt {
	return func(p *OpenAi) {
		p.maxRetries = &retries
	}
}

// WithTimeout sets the timeout of a single request attempt.
func WithTimeout(timeout time.Duration) Opt {
	return func(p *OpenAi) {
		p.timeout = timeout
	}
}
