package openai

import (
	"context"
	"encoding/json"
	"reflect"
	"time"

	llmadapter "github.com/checkmarble/marble-multimodal-adapter"
	"github.com/checkmarble/marble-multimodal-adapter/internal"
	"github.com/checkmarble/marble-multimodal-adapter/internal/images"
	"github.com/cockroachdb/errors"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/samber/lo"
)

// RequestHookFunc lets a derived provider alter the request after it was
// adapted to the OpenAI format.
type RequestHookFunc func(llm internal.Adapter, requester llmadapter.Requester, cfg *openai.ChatCompletionNewParams) error

// ResponseHookFunc lets a derived provider read extra data off the raw
// response.
type ResponseHookFunc func(response *openai.ChatCompletion, resp *llmadapter.InnerResponse) error

// OpenAi talks to any OpenAI-compatible chat completion API.
type OpenAi struct {
	llmadapter.BatchUnsupported

	client  openai.Client
	history llmadapter.History[openai.ChatCompletionMessageParamUnion]

	apiKey     string
	baseUrl    string
	model      *string
	maxRetries *int
	timeout    time.Duration

	RequestHookFunc  RequestHookFunc
	ResponseHookFunc ResponseHookFunc
}

// RequestOptions is empty, the OpenAI provider only reads the generic
// request options.
type RequestOptions struct{}

func (RequestOptions) RequestOptionsForProvider() {}

func New(opts ...Opt) (*OpenAi, error) {
	llm := OpenAi{}

	for _, opt := range opts {
		opt(&llm)
	}

	return &llm, nil
}

func (*OpenAi) RequestOptionsType() reflect.Type {
	return reflect.TypeFor[RequestOptions]()
}

func (p *OpenAi) Init(llm internal.Adapter) error {
	opts := []option.RequestOption{
		option.WithAPIKey(lo.CoalesceOrEmpty(p.apiKey, llm.ApiKey())),
	}

	if p.baseUrl != "" {
		opts = append(opts, option.WithBaseURL(p.baseUrl))
	}
	if llm.HttpClient() != nil {
		opts = append(opts, option.WithHTTPClient(llm.HttpClient()))
	}
	if p.maxRetries != nil && *p.maxRetries >= 0 {
		opts = append(opts, option.WithMaxRetries(*p.maxRetries))
	}
	if p.timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(p.timeout))
	}

	p.client = openai.NewClient(opts...)

	return nil
}

func (p *OpenAi) ResetContext() {
	p.history.Clear()
}

// Model resolves which model a request will use: the request, then the
// provider, then the adapter.
func (p *OpenAi) Model(llm internal.Adapter, r llmadapter.Requester) string {
	model, _ := lo.Coalesce(r.ToRequest().Model, p.model, lo.ToPtr(llm.DefaultModel()))

	return lo.FromPtr(model)
}

func (p *OpenAi) ChatCompletion(ctx context.Context, llm internal.Adapter, requester llmadapter.Requester) (*llmadapter.InnerResponse, error) {
	cfg, err := p.adaptRequest(llm, requester)
	if err != nil {
		return nil, err
	}

	input := cfg.Messages

	if llm.SaveContext() {
		cfg.Messages = append(p.history.Load(), input...)
	}

	llm.Logger().DebugContext(ctx, "sending chat completion request",
		"base_url", p.baseUrl,
		"model", cfg.Model,
		"messages", len(cfg.Messages),
		"tools", len(cfg.Tools))

	response, err := p.client.Chat.Completions.New(ctx, *cfg)
	if err != nil {
		return nil, errors.Wrap(err, "LLM provider failed to generate content")
	}

	if llm.SaveContext() {
		p.history.Save(input...)
	}

	return p.adaptResponse(llm, response)
}

func (p *OpenAi) adaptRequest(llm internal.Adapter, requester llmadapter.Requester) (*openai.ChatCompletionNewParams, error) {
	r := requester.ToRequest()

	cfg := openai.ChatCompletionNewParams{
		Model: p.Model(llm, requester),
	}

	if r.ResponseSchema != nil {
		cfg.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        "output",
					Description: openai.String(r.ResponseSchema.Description),
					Schema:      *r.ResponseSchema,
					Strict:      openai.Bool(true),
				},
			},
		}
	}

	for _, tool := range r.Tools {
		paramsJson, err := json.Marshal(tool.Parameters)
		if err != nil {
			return nil, errors.Wrap(err, "failed to encode tool parameters")
		}

		var params map[string]any

		if err := json.Unmarshal(paramsJson, &params); err != nil {
			return nil, errors.Wrap(err, "failed to encode tool parameters")
		}

		cfg.Tools = append(cfg.Tools, openai.ChatCompletionToolParam{
			Type: "function",
			Function: openai.FunctionDefinitionParam{
				Name:        tool.Name,
				Description: openai.String(tool.Description),
				Parameters:  openai.FunctionParameters(params),
			},
		})
	}

	for _, msg := range r.Messages {
		content, err := adaptMessage(msg)
		if err != nil {
			return nil, err
		}

		cfg.Messages = append(cfg.Messages, content)
	}

	if r.MaxTokens != nil {
		cfg.MaxTokens = openai.Int(int64(*r.MaxTokens))
	}
	if r.MaxCandidates != nil {
		cfg.N = openai.Int(int64(*r.MaxCandidates))
	}
	if r.Temperature != nil {
		cfg.Temperature = openai.Float(*r.Temperature)
	}
	if r.TopP != nil {
		cfg.TopP = openai.Float(*r.TopP)
	}

	if p.RequestHookFunc != nil {
		if err := p.RequestHookFunc(llm, requester, &cfg); err != nil {
			return nil, errors.Wrap(err, "could not adapt request")
		}
	}

	return &cfg, nil
}

func adaptMessage(msg llmadapter.Message) (openai.ChatCompletionMessageParamUnion, error) {
	parts := make([]openai.ChatCompletionContentPartUnionParam, 0, len(msg.Parts))

	for _, part := range msg.Parts {
		switch part.Type {
		case llmadapter.PartText:
			parts = append(parts, openai.TextContentPart(string(part.Data)))

		case llmadapter.PartImage:
			parts = append(parts, imagePart(images.Image{MimeType: part.MimeType, Data: part.Data}.DataUrl()))

		case llmadapter.PartImageUrl:
			parts = append(parts, imagePart(string(part.Data)))
		}
	}

	content := openai.ChatCompletionMessageParamUnion{}

	switch msg.Role {
	case llmadapter.RoleAi:
		if msg.HasImages() {
			return content, errors.New("assistant messages cannot contain images")
		}

		content.OfAssistant = &openai.ChatCompletionAssistantMessageParam{
			Content: openai.ChatCompletionAssistantMessageParamContentUnion{
				OfArrayOfContentParts: lo.Map(parts, func(p openai.ChatCompletionContentPartUnionParam, _ int) openai.ChatCompletionAssistantMessageParamContentArrayOfContentPartUnion {
					return openai.ChatCompletionAssistantMessageParamContentArrayOfContentPartUnion{
						OfText: p.OfText,
					}
				}),
			},
		}

	case llmadapter.RoleUser:
		content.OfUser = &openai.ChatCompletionUserMessageParam{
			Content: openai.ChatCompletionUserMessageParamContentUnion{
				OfArrayOfContentParts: parts,
			},
		}

	case llmadapter.RoleSystem:
		if msg.HasImages() {
			return content, errors.New("system messages cannot contain images")
		}

		content.OfSystem = &openai.ChatCompletionSystemMessageParam{
			Content: openai.ChatCompletionSystemMessageParamContentUnion{
				OfArrayOfContentParts: lo.Map(parts, func(p openai.ChatCompletionContentPartUnionParam, _ int) openai.ChatCompletionContentPartTextParam {
					return *p.OfText
				}),
			},
		}

	case llmadapter.RoleTool:
		if msg.Tool == nil {
			return content, errors.New("tool messages must reference a tool call")
		}

		content.OfTool = &openai.ChatCompletionToolMessageParam{
			ToolCallID: msg.Tool.Id,
			Content: openai.ChatCompletionToolMessageParamContentUnion{
				OfArrayOfContentParts: lo.FilterMap(parts, func(p openai.ChatCompletionContentPartUnionParam, _ int) (openai.ChatCompletionContentPartTextParam, bool) {
					if p.OfText == nil {
						return openai.ChatCompletionContentPartTextParam{}, false
					}

					return *p.OfText, true
				}),
			},
		}
	}

	return content, nil
}

func imagePart(url string) openai.ChatCompletionContentPartUnionParam {
	return openai.ChatCompletionContentPartUnionParam{
		OfImageURL: &openai.ChatCompletionContentPartImageParam{
			ImageURL: openai.ChatCompletionContentPartImageImageURLParam{
				URL: url,
			},
		},
	}
}

func (p *OpenAi) adaptResponse(llm internal.Adapter, response *openai.ChatCompletion) (*llmadapter.InnerResponse, error) {
	resp := llmadapter.InnerResponse{
		Id:      response.ID,
		Model:   response.Model,
		Created: time.Unix(response.Created, 0).UTC(),
		Usage: llmadapter.Usage{
			InputTokens:  int(response.Usage.PromptTokens),
			OutputTokens: int(response.Usage.CompletionTokens),
			TotalTokens:  int(response.Usage.TotalTokens),
		},
		Candidates: make([]llmadapter.ResponseCandidate, len(response.Choices)),
	}

	for idx, candidate := range response.Choices {
		toolCalls := make([]llmadapter.ResponseToolCall, len(candidate.Message.ToolCalls))

		for idx, toolCall := range candidate.Message.ToolCalls {
			toolCalls[idx] = llmadapter.ResponseToolCall{
				Id:         toolCall.ID,
				Name:       toolCall.Function.Name,
				Parameters: []byte(toolCall.Function.Arguments),
			}
		}

		resp.Candidates[idx] = llmadapter.ResponseCandidate{
			Text:         candidate.Message.Content,
			FinishReason: adaptFinishReason(candidate.FinishReason),
			ToolCalls:    toolCalls,
			SelectCandidate: func() {
				if llm.SaveContext() {
					p.history.Save(candidate.Message.ToParam())
				}
			},
		}
	}

	if p.ResponseHookFunc != nil {
		if err := p.ResponseHookFunc(response, &resp); err != nil {
			return nil, errors.Wrap(err, "could not adapt response")
		}
	}

	return &resp, nil
}

func adaptFinishReason(reason string) llmadapter.FinishReason {
	switch reason {
	case "stop":
		return llmadapter.FinishReasonStop
	case "length", "model_length":
		return llmadapter.FinishReasonMaxTokens
	case "tool_calls":
		return llmadapter.FinishReasonToolCalls
	case "content_filter":
		return llmadapter.FinishReasonContentFilter
	case "":
		return llmadapter.FinishReasonUnknown
	default:
		return llmadapter.FinishReasonOther
	}
}

// History returns the messages recorded for the current conversation.
func (p *OpenAi) History() []openai.ChatCompletionMessageParamUnion {
	return p.history.Load()
}
