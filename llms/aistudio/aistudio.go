// Package aistudio is the Google Gemini provider, reachable through either the
// Gemini API or Vertex AI. Gemini models accept images natively.
package aistudio

import (
	"context"
	"encoding/json"
	"mime"
	"path"
	"reflect"
	"strings"
	"time"

	llmadapter "github.com/checkmarble/marble-multimodal-adapter"
	"github.com/checkmarble/marble-multimodal-adapter/internal"
	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
	"google.golang.org/genai"
)

const DefaultPollInterval = 30 * time.Second

var contextWindows = map[string]int{
	"gemini-2.5-pro":        1048576,
	"gemini-2.5-flash":      1048576,
	"gemini-2.5-flash-lite": 1048576,
	"gemini-2.0-flash":      1048576,
	"gemini-2.0-flash-lite": 1048576,
}

var _ llmadapter.MultiModalLLM = (*AiStudio)(nil)
var _ llmadapter.Batcher = (*AiStudio)(nil)

type AiStudio struct {
	client  *genai.Client
	history llmadapter.History[*genai.Content]

	backend      genai.Backend
	apiKey       string
	project      string
	location     string
	model        *string
	bucket       string
	pollInterval time.Duration
}

func New(opts ...Opt) (*AiStudio, error) {
	llm := AiStudio{
		backend:      genai.BackendGeminiAPI,
		pollInterval: DefaultPollInterval,
	}

	for _, opt := range opts {
		opt(&llm)
	}

	if llm.pollInterval <= 0 {
		llm.pollInterval = DefaultPollInterval
	}

	if llm.backend == genai.BackendVertexAI && (llm.project == "" || llm.location == "") {
		return nil, errors.New("project and location are required with the Vertex AI backend")
	}

	return &llm, nil
}

func (*AiStudio) RequestOptionsType() reflect.Type {
	return reflect.TypeFor[RequestOptions]()
}

func (p *AiStudio) Init(llm internal.Adapter) error {
	cfg := genai.ClientConfig{
		Backend:    p.backend,
		Project:    p.project,
		Location:   p.location,
		HTTPClient: llm.HttpClient(),
	}

	if cfg.Backend == genai.BackendGeminiAPI {
		cfg.APIKey = lo.CoalesceOrEmpty(p.apiKey, llm.ApiKey())
	}

	client, err := genai.NewClient(context.Background(), &cfg)
	if err != nil {
		return errors.Wrap(err, "could not create Gemini client")
	}

	p.client = client

	return nil
}

func (p *AiStudio) ResetContext() {
	p.history.Clear()
}

// Model resolves which model a request will use: the request, then the
// provider, then the adapter.
func (p *AiStudio) Model(llm internal.Adapter, r llmadapter.Requester) string {
	model, _ := lo.Coalesce(r.ToRequest().Model, p.model, lo.ToPtr(llm.DefaultModel()))

	return lo.FromPtr(model)
}

func (p *AiStudio) Metadata() llmadapter.ModelMetadata {
	model := lo.FromPtr(p.model)

	contextWindow, ok := contextWindows[model]
	if !ok {
		contextWindow = llmadapter.DefaultContextWindow
	}

	return llmadapter.ModelMetadata{
		ModelName:     model,
		ContextWindow: contextWindow,
		NumOutputs:    llmadapter.DefaultNumOutputs,
		IsChatModel:   true,
		IsMultiModal:  true,
	}
}

func (p *AiStudio) ChatCompletion(ctx context.Context, llm internal.Adapter, requester llmadapter.Requester) (*llmadapter.InnerResponse, error) {
	model := p.Model(llm, requester)
	if model == "" {
		return nil, errors.New("no model was configured")
	}

	opts := internal.CastProviderOptions[RequestOptions](requester.ProviderRequestOptions(p))

	input, cfg, err := p.adaptRequest(llm, requester, opts)
	if err != nil {
		return nil, err
	}

	contents := input

	if llm.SaveContext() {
		contents = append(p.history.Load(), input...)
	}

	llm.Logger().DebugContext(ctx, "sending content generation request",
		"backend", p.backend,
		"model", model,
		"contents", len(contents),
		"tools", len(cfg.Tools))

	response, err := p.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "LLM provider failed to generate content")
	}

	if llm.SaveContext() {
		p.history.Save(input...)
	}

	return p.adaptResponse(llm, response)
}

func (p *AiStudio) adaptRequest(llm internal.Adapter, requester llmadapter.Requester, opts RequestOptions) ([]*genai.Content, *genai.GenerateContentConfig, error) {
	r := requester.ToRequest()

	contents := make([]*genai.Content, 0, len(r.Messages))

	cfg := genai.GenerateContentConfig{
		MaxOutputTokens: lo.FromPtr(internal.MaybeIntToInt32(r.MaxTokens)),
		CandidateCount:  lo.FromPtr(internal.MaybeIntToInt32(r.MaxCandidates)),
		Temperature:     internal.MaybeF64ToF32(r.Temperature),
		TopP:            internal.MaybeF64ToF32(r.TopP),
		TopK:            internal.MaybeF64ToF32(opts.TopK),
	}

	if r.ResponseSchema != nil {
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseJsonSchema = r.ResponseSchema
	}

	for _, tool := range r.Tools {
		cfg.Tools = append(cfg.Tools, &genai.Tool{
			FunctionDeclarations: []*genai.FunctionDeclaration{
				{
					Name:                 tool.Name,
					Description:          tool.Description,
					ParametersJsonSchema: tool.Parameters,
				},
			},
		})
	}

	if lo.FromPtr(opts.GoogleSearch) {
		cfg.Tools = append(cfg.Tools, &genai.Tool{GoogleSearch: &genai.GoogleSearch{}})
	}

	if opts.Thinking != nil {
		cfg.ThinkingConfig = &genai.ThinkingConfig{
			IncludeThoughts: opts.Thinking.IncludeThoughts,
			ThinkingBudget:  internal.MaybeIntToInt32(opts.Thinking.Budget),
		}
	}

	for _, msg := range r.Messages {
		parts := adaptParts(msg.Parts)

		switch msg.Role {
		case llmadapter.RoleSystem:
			if msg.HasImages() {
				return nil, nil, errors.New("system messages cannot contain images")
			}

			if cfg.SystemInstruction == nil {
				cfg.SystemInstruction = &genai.Content{}
			}

			cfg.SystemInstruction.Parts = append(cfg.SystemInstruction.Parts, parts...)

		case llmadapter.RoleTool:
			if msg.Tool == nil {
				return nil, nil, errors.New("tool messages must reference a tool call")
			}

			output := strings.Join(lo.FilterMap(parts, func(part *genai.Part, _ int) (string, bool) {
				return part.Text, part.Text != ""
			}), "\n")

			contents = append(contents, &genai.Content{
				Role: genai.RoleUser,
				Parts: []*genai.Part{
					{
						FunctionResponse: &genai.FunctionResponse{
							ID:       msg.Tool.Id,
							Name:     msg.Tool.Name,
							Response: map[string]any{"output": output},
						},
					},
				},
			})

		case llmadapter.RoleAi:
			contents = append(contents, genai.NewContentFromParts(parts, genai.RoleModel))

		default:
			contents = append(contents, genai.NewContentFromParts(parts, genai.RoleUser))
		}
	}

	return contents, &cfg, nil
}

func adaptParts(parts []llmadapter.Part) []*genai.Part {
	out := make([]*genai.Part, 0, len(parts))

	for _, part := range parts {
		switch part.Type {
		case llmadapter.PartText:
			out = append(out, genai.NewPartFromText(string(part.Data)))

		case llmadapter.PartImage:
			out = append(out, genai.NewPartFromBytes(part.Data, part.MimeType))

		case llmadapter.PartImageUrl:
			uri := string(part.Data)

			out = append(out, genai.NewPartFromURI(uri, imageMimeTypeFromUri(uri)))
		}
	}

	return out
}

// imageMimeTypeFromUri guesses the MIME type of a remote image from its
// extension, since Gemini requires one on file parts.
func imageMimeTypeFromUri(uri string) string {
	ext := path.Ext(strings.SplitN(uri, "?", 2)[0])

	if mimeType := mime.TypeByExtension(ext); strings.HasPrefix(mimeType, "image/") {
		return mimeType
	}

	return "image/jpeg"
}

func (p *AiStudio) adaptResponse(llm internal.Adapter, response *genai.GenerateContentResponse) (*llmadapter.InnerResponse, error) {
	// genai only fills ResponseID on Vertex AI, the ID is empty with the
	// Gemini API backend.
	resp := llmadapter.InnerResponse{
		Id:         response.ResponseID,
		Model:      response.ModelVersion,
		Created:    response.CreateTime,
		Candidates: make([]llmadapter.ResponseCandidate, len(response.Candidates)),
	}

	if usage := response.UsageMetadata; usage != nil {
		resp.Usage = llmadapter.Usage{
			InputTokens:  int(usage.PromptTokenCount),
			OutputTokens: int(usage.CandidatesTokenCount),
			TotalTokens:  int(usage.TotalTokenCount),
		}
	}

	for idx, candidate := range response.Candidates {
		var (
			text      strings.Builder
			toolCalls []llmadapter.ResponseToolCall
		)

		if candidate.Content != nil {
			for _, part := range candidate.Content.Parts {
				if part.FunctionCall != nil {
					params, err := json.Marshal(part.FunctionCall.Args)
					if err != nil {
						return nil, errors.Wrap(err, "failed to parse tool call parameters")
					}

					toolCalls = append(toolCalls, llmadapter.ResponseToolCall{
						Id:         part.FunctionCall.ID,
						Name:       part.FunctionCall.Name,
						Parameters: params,
					})

					continue
				}

				if !part.Thought {
					text.WriteString(part.Text)
				}
			}
		}

		finishReason := adaptFinishReason(candidate.FinishReason)
		if len(toolCalls) > 0 && finishReason == llmadapter.FinishReasonStop {
			finishReason = llmadapter.FinishReasonToolCalls
		}

		resp.Candidates[idx] = llmadapter.ResponseCandidate{
			Text:         text.String(),
			FinishReason: finishReason,
			ToolCalls:    toolCalls,
			SelectCandidate: func() {
				if llm.SaveContext() && candidate.Content != nil {
					p.history.Save(candidate.Content)
				}
			},
		}
	}

	return &resp, nil
}

func adaptFinishReason(reason genai.FinishReason) llmadapter.FinishReason {
	switch reason {
	case genai.FinishReasonStop:
		return llmadapter.FinishReasonStop
	case genai.FinishReasonMaxTokens:
		return llmadapter.FinishReasonMaxTokens
	case genai.FinishReasonSafety, genai.FinishReasonBlocklist, genai.FinishReasonProhibitedContent, genai.FinishReasonSPII:
		return llmadapter.FinishReasonContentFilter
	case genai.FinishReasonUnspecified, "":
		return llmadapter.FinishReasonUnknown
	default:
		return llmadapter.FinishReasonOther
	}
}

// History returns the contents recorded for the current conversation.
func (p *AiStudio) History() []*genai.Content {
	return p.history.Load()
}
