// Package mistral is the Mistral AI provider. It talks to Mistral's
// OpenAI-compatible chat completion API, and accepts images on the Pixtral and
// Mistral Small / Medium model families.
package mistral

import (
	"maps"
	"reflect"
	"time"

	llmadapter "github.com/checkmarble/marble-multimodal-adapter"
	"github.com/checkmarble/marble-multimodal-adapter/internal"
	"github.com/checkmarble/marble-multimodal-adapter/llms/openai"
	"github.com/cockroachdb/errors"
	"github.com/fatih/structs"
	oai "github.com/openai/openai-go"
	"github.com/samber/lo"
)

const (
	DefaultBaseUrl     = "https://api.mistral.ai/v1/"
	DefaultModel       = "pixtral-12b-2409"
	DefaultTemperature = 0.1
	DefaultMaxRetries  = 3
	DefaultTimeout     = 60 * time.Second
)

var ErrInvalidMaxTokens = errors.New("max tokens cannot be negative")

// contextWindows lists the context size of the vision-capable models.
var contextWindows = map[string]int{
	"pixtral-12b-2409":      131072,
	"pixtral-12b-latest":    131072,
	"pixtral-large-2411":    131072,
	"pixtral-large-latest":  131072,
	"mistral-small-latest":  131072,
	"mistral-medium-latest": 131072,
}

var _ llmadapter.MultiModalLLM = (*Mistral)(nil)

// Mistral is the multi-modal Mistral AI adapter.
//
// Its configuration is fixed at construction. Per-request settings given on a
// llmadapter.Request take precedence over it.
type Mistral struct {
	*openai.OpenAi

	apiKey           string
	baseUrl          string
	model            string
	adapterModel     string
	maxTokens        int
	temperature      float64
	maxRetries       int
	timeout          time.Duration
	additionalParams map[string]any
}

// New creates the adapter. It does not reach the API, credentials are only
// used once a request is sent.
func New(opts ...Opt) (*Mistral, error) {
	llm := Mistral{
		baseUrl:          DefaultBaseUrl,
		temperature:      DefaultTemperature,
		maxRetries:       DefaultMaxRetries,
		timeout:          DefaultTimeout,
		additionalParams: make(map[string]any),
	}

	for _, opt := range opts {
		opt(&llm)
	}

	if llm.maxTokens < 0 {
		return nil, errors.Wrapf(ErrInvalidMaxTokens, "got %d", llm.maxTokens)
	}

	baseOpts := []openai.Opt{
		openai.WithBaseUrl(llm.baseUrl),
		openai.WithMaxRetries(llm.maxRetries),
		openai.WithTimeout(llm.timeout),
	}

	if llm.apiKey != "" {
		baseOpts = append(baseOpts, openai.WithApiKey(llm.apiKey))
	}

	base, err := openai.New(baseOpts...)
	if err != nil {
		return nil, err
	}

	base.RequestHookFunc = llm.transformRequest
	llm.OpenAi = base

	return &llm, nil
}

func (*Mistral) RequestOptionsType() reflect.Type {
	return reflect.TypeFor[RequestOptions]()
}

// Init records the default model of the adapter the provider is registered
// on, then sets up the API client.
func (p *Mistral) Init(llm internal.Adapter) error {
	p.adapterModel = llm.DefaultModel()

	return p.OpenAi.Init(llm)
}

// Model is the model requests are sent to when they do not pick one: the
// model given to New, then the adapter default model, then DefaultModel.
func (p *Mistral) Model() string {
	return lo.CoalesceOrEmpty(p.model, p.adapterModel, DefaultModel)
}

// MaxTokens is the output token limit configured on the adapter. Zero means
// the API default applies.
func (p *Mistral) MaxTokens() int {
	return p.maxTokens
}

func (p *Mistral) Temperature() float64 {
	return p.temperature
}

func (p *Mistral) MaxRetries() int {
	return p.maxRetries
}

func (p *Mistral) Timeout() time.Duration {
	return p.timeout
}

func (p *Mistral) BaseUrl() string {
	return p.baseUrl
}

func (p *Mistral) Metadata() llmadapter.ModelMetadata {
	contextWindow, ok := contextWindows[p.Model()]
	if !ok {
		contextWindow = llmadapter.DefaultContextWindow
	}

	return llmadapter.ModelMetadata{
		ModelName:     p.Model(),
		ContextWindow: contextWindow,
		NumOutputs:    lo.Ternary(p.maxTokens > 0, p.maxTokens, llmadapter.DefaultNumOutputs),
		IsChatModel:   true,
		IsMultiModal:  true,
	}
}

// transformRequest applies the adapter configuration to fields the request
// left unset, and adds the Mistral-specific body fields.
func (p *Mistral) transformRequest(llm internal.Adapter, requester llmadapter.Requester, cfg *oai.ChatCompletionNewParams) error {
	r := requester.ToRequest()

	if r.Model == nil {
		cfg.Model = p.Model()
	}
	if r.MaxTokens == nil && p.maxTokens > 0 {
		cfg.MaxTokens = oai.Int(int64(p.maxTokens))
	}
	if r.Temperature == nil {
		cfg.Temperature = oai.Float(p.temperature)
	}

	extras := maps.Clone(p.additionalParams)

	opts := internal.CastProviderOptions[RequestOptions](requester.ProviderRequestOptions(p))

	maps.Copy(extras, structs.Map(opts))

	if len(extras) > 0 {
		cfg.SetExtraFields(extras)
	}

	return nil
}
