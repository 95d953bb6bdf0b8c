package llmadapter

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/cockroachdb/errors"
	"golang.org/x/time/rate"
)

const (
	defaultProvider = "__DEFAULT__"
)

var (
	ErrNoProvider        = errors.New("no provider was configured")
	ErrUnknownProvider   = errors.New("unknown provider")
	ErrBatchUnsupported  = errors.New("provider does not support batch mode")
	ErrRateLimitExceeded = errors.New("rate limit wait failed")
)

// LlmAdapter is the main entrypoint for interacting with different LLM providers.
// It provides a unified interface to send requests and receive responses.
type LlmAdapter struct {
	providers       map[string]Llm
	defaultProvider Llm

	httpClient *http.Client
	logger     *slog.Logger
	limiter    *rate.Limiter

	defaultModel string
	apiKey       string
	saveContext  bool
}

// New creates a new LlmAdapter with the given options.
// It initializes every registered provider and returns a configured adapter.
//
// Example usage:
//
//	provider, _ := mistral.New(mistral.WithMaxTokens(400))
//
//	adapter, err := llmadapter.New(
//		llmadapter.WithDefaultProvider(provider),
//		llmadapter.WithApiKey("your-api-key"),
//	)
func New(opts ...llmOption) (*LlmAdapter, error) {
	llm := LlmAdapter{
		providers: make(map[string]Llm),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(&llm)
	}

	for name, provider := range llm.providers {
		if err := provider.Init(&llm); err != nil {
			return nil, errors.Wrapf(err, "could not initialize LLM provider '%s'", name)
		}

		llm.logger.Debug("initialized LLM provider", "provider", name)
	}

	return &llm, nil
}

// ResetContext clears the conversation history maintained by the providers.
// This is useful when you want to start a new conversation without creating a
// new adapter instance. This also clears the systems instructions.
//
// Without arguments, the history of every provider is cleared.
func (llm *LlmAdapter) ResetContext(providers ...string) {
	if len(providers) == 0 {
		for _, provider := range llm.providers {
			provider.ResetContext()
		}

		return
	}

	for _, provider := range providers {
		if p, ok := llm.providers[provider]; ok {
			p.ResetContext()
		}
	}
}

// GetProvider resolves the provider a request should be sent to.
//
// A nil name selects the default provider, which is either the one registered
// with WithDefaultProvider, or the first one registered with WithProvider.
func (llm *LlmAdapter) GetProvider(requestProvider *string) (Llm, error) {
	if requestProvider != nil {
		p, ok := llm.providers[*requestProvider]
		if !ok {
			return nil, errors.Wrapf(ErrUnknownProvider, "unknown provider '%s'", *requestProvider)
		}

		return p, nil
	}

	if llm.defaultProvider == nil {
		return nil, ErrNoProvider
	}

	return llm.defaultProvider, nil
}

// SubmitBatch sends requests to a named provider as an asynchronous batch job.
func (llm *LlmAdapter) SubmitBatch(ctx context.Context, providerName string, reqs ...Requester) (*UntypedBatchPromise, error) {
	provider, err := llm.GetProvider(&providerName)
	if err != nil {
		return nil, err
	}

	batcher, ok := provider.(Batcher)
	if !ok {
		return nil, errors.Wrapf(ErrBatchUnsupported, "provider '%s'", providerName)
	}

	promise, err := batcher.SubmitBatch(ctx, llm, reqs...)
	if err != nil {
		return nil, err
	}

	promise.ProviderName = providerName

	return promise, nil
}

// Wait blocks until the configured rate limit lets a new request through.
func (llm *LlmAdapter) Wait(ctx context.Context) error {
	if llm.limiter == nil {
		return nil
	}

	if err := llm.limiter.Wait(ctx); err != nil {
		return errors.Mark(errors.Wrap(err, "rate limit wait failed"), ErrRateLimitExceeded)
	}

	return nil
}

func (llm *LlmAdapter) DefaultModel() string {
	return llm.defaultModel
}

func (llm *LlmAdapter) ApiKey() string {
	return llm.apiKey
}

func (llm *LlmAdapter) SaveContext() bool {
	return llm.saveContext
}

func (llm *LlmAdapter) HttpClient() *http.Client {
	return llm.httpClient
}

func (llm *LlmAdapter) Logger() *slog.Logger {
	return llm.logger
}
