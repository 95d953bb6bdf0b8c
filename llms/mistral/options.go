package mistral

import "time"

type Opt func(*Mistral)

// WithApiKey sets the Mistral API key. When not set, the key configured on
// the adapter is used.
func WithApiKey(apiKey string) Opt {
	return func(p *Mistral) {
		p.apiKey = apiKey
	}
}

// WithModel selects the model used by requests that do not set one. Defaults
// to DefaultModel.
func WithModel(model string) Opt {
	return func(p *Mistral) {
		p.model = model
	}
}

// WithMaxTokens caps the number of tokens generated per completion, not
// counting the prompt. Requests setting their own limit override it.
func WithMaxTokens(maxTokens int) Opt {
	return func(p *Mistral) {
		p.maxTokens = maxTokens
	}
}

// WithTemperature sets the sampling temperature. Defaults to
// DefaultTemperature.
func WithTemperature(temperature float64) Opt {
	return func(p *Mistral) {
		p.temperature = temperature
	}
}

func WithMaxRetries(retries int) Opt {
	return func(p *Mistral) {
		p.maxRetries = retries
	}
}

func WithTimeout(timeout time.Duration) Opt {
	return func(p *Mistral) {
		p.timeout = timeout
	}
}

// WithBaseUrl points the adapter to another deployment of the Mistral API.
func WithBaseUrl(url string) Opt {
	return func(p *Mistral) {
		p.baseUrl = url
	}
}

// WithAdditionalParams adds raw fields to the body of every request.
func WithAdditionalParams(params map[string]any) Opt {
	return func(p *Mistral) {
		for k, v := range params {
			p.additionalParams[k] = v
		}
	}
}
