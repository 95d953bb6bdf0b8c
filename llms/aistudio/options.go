package aistudio

import (
	"time"

	"google.golang.org/genai"
)

type Opt func(*AiStudio)

// WithBackend represents which Google GenAI backend to use (VertexAI or Gemini).
//
// It only accepts values of `genai.BackendGeminiAPI` or `genai.BackendVertexAI`.
func WithBackend(backend genai.Backend) Opt {
	return func(p *AiStudio) {
		p.backend = backend
	}
}

// WithApiKey sets the Gemini API key. It falls back to the adapter API key, and
// is ignored on Vertex AI, which uses application default credentials.
func WithApiKey(apiKey string) Opt {
	return func(p *AiStudio) {
		p.apiKey = apiKey
	}
}

// WithProject defines the Google Cloud Platform project to use to connect to VertexAI.
//
// It is only taken into account when using the VertexAI backend.
func WithProject(project string) Opt {
	return func(p *AiStudio) {
		p.project = project
	}
}

// WithLocation defines the Google Cloud Platform region to use to connect to VertexAI.
//
// It is only taken into account when using the VertexAI backend.
func WithLocation(location string) Opt {
	return func(p *AiStudio) {
		p.location = location
	}
}

func WithDefaultModel(model string) Opt {
	return func(p *AiStudio) {
		p.model = &model
	}
}

// WithBucket sets the Cloud Storage bucket batch inputs and outputs are
// written to. It is required for batches on Vertex AI.
func WithBucket(bucket string) Opt {
	return func(p *AiStudio) {
		p.bucket = bucket
	}
}

// WithPollInterval sets how often a batch job is polled while waiting for it.
// Non-positive values select DefaultPollInterval.
func WithPollInterval(interval time.Duration) Opt {
	return func(p *AiStudio) {
		p.pollInterval = interval
	}
}
