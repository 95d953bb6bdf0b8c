package llmadapter

import (
	"bytes"
	"context"
	"io"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/checkmarble/marble-multimodal-adapter/internal"
	"github.com/checkmarble/marble-multimodal-adapter/internal/images"
	"github.com/cockroachdb/errors"
	"github.com/invopop/jsonschema"
	"github.com/samber/lo"
)

type (
	MessageRole int
	PartType    int
)

const (
	RoleSystem MessageRole = iota
	RoleUser
	RoleAi
	RoleTool
)

const (
	// PartText is plain text content.
	PartText PartType = iota
	// PartImage is inline image data, with its MIME type set on the part.
	PartImage
	// PartImageUrl is a URL the provider will fetch the image from.
	PartImageUrl
)

// Requester represents something that can be turned into a request.
//
// Used internally to abstract over request types across packages.
type Requester interface {
	// ToRequest unwraps the actual request.
	ToRequest() innerRequest
	// ProviderRequestOptions extracts the provider-specific configuration
	// options for a given provider. This is called from each provider to
	// retrieve its specific configuration in a type-safe manner.
	ProviderRequestOptions(provider Llm) internal.ProviderRequestOptions
	// Err returns the errors accumulated while building the request.
	Err() error
}

// Part is one piece of content within a message.
//
// The content is buffered when the part is built, so a request can be sent
// any number of times.
type Part struct {
	Type PartType
	// MimeType is only set on image parts.
	MimeType string
	Data     []byte
}

// Content returns a fresh reader over the part content.
func (p Part) Content() io.Reader {
	return bytes.NewReader(p.Data)
}

// Message is an abstraction over a "prompt".
type Message struct {
	// Role represent "who" (or "what") composed a message. Note that all
	// provider will not support all of the roles, but must still account for
	// them.
	Role MessageRole
	// Parts are subdivision of a specific message. A single message can mix
	// text and images.
	Parts []Part

	// Tool is the tool call this message answers. It is only set on messages
	// with RoleTool.
	Tool *ResponseToolCall
}

// HasImages reports whether any part of the message is an image.
func (m Message) HasImages() bool {
	return lo.SomeBy(m.Parts, func(p Part) bool {
		return p.Type == PartImage || p.Type == PartImageUrl
	})
}

// innerRequest represents the actual request to be sent to the provider, before
// being adapted for it.
type innerRequest struct {
	Id             string
	Model          *string
	Messages       []Message
	ResponseSchema *jsonschema.Schema
	Tools          map[string]internal.Tool

	MaxTokens     *int
	MaxCandidates *int
	Temperature   *float64
	TopP          *float64

	ProviderOptions map[reflect.Type]internal.ProviderRequestOptions
}

// Request represent a request to be sent the a provider, in the context of the
// current conversation.
//
// It contains an `innerRequest` built by the caller, but also optionally tracks
// which candidate it responds to, in order to link tool responses to their
// corresponding tool calls.
//
// It is generic in T which it will use to unmarshal the reponse into a typed
// struct.
type Request[T any] struct {
	innerRequest

	provider   *string
	respondsTo *ResponseCandidate
	err        error
}

// NewUntypedRequest is a helper method to create a `Request` which will be a
// raw string, without unmarshalling the response into a struct.
func NewUntypedRequest() Request[string] {
	return Request[string]{
		innerRequest: innerRequest{
			Tools:           make(map[string]internal.Tool),
			ProviderOptions: make(map[reflect.Type]internal.ProviderRequestOptions),
		},
	}
}

// NewRequest creates a builder to craft a request to sent to an LLM provider.
//
// It provides a series of methods to chain-call in order to add context,
// prompts, images and configuration.
//
// It is generic in T, which will be used to generate a JSONSchema to be used as
// a response schema in the request. See [this](https://github.com/invopop/jsonschema)
// for more information about how to write the structs.
//
// Example usage:
//
//	resp, err := llmadapter.NewRequest[Output]().
//		WithTextAndImages(llmadapter.RoleUser, "What is on this receipt?", receipt).
//		Do(ctx, llm)
func NewRequest[T any]() Request[T] {
	r := innerRequest{
		Tools:           make(map[string]internal.Tool),
		ProviderOptions: make(map[reflect.Type]internal.ProviderRequestOptions),
	}

	switch any(*new(T)).(type) {
	case string:
	default:
		r.ResponseSchema = lo.ToPtr(internal.GenerateSchema[T]())
	}

	return Request[T]{
		innerRequest: r,
	}
}

// Do executes a built request on the configured provider.
//
// It will return a response generic over the configured typed on the Request,
// or an error.
func (r Request[T]) Do(ctx context.Context, llm *LlmAdapter) (*Response[T], error) {
	if r.err != nil {
		return nil, r.err
	}

	provider, err := llm.GetProvider(r.provider)
	if err != nil {
		return nil, err
	}

	if err := llm.Wait(ctx); err != nil {
		return nil, err
	}

	start := time.Now()

	resp, err := provider.ChatCompletion(ctx, llm, r)
	if err != nil {
		llm.Logger().DebugContext(ctx, "LLM request failed",
			"provider", lo.FromPtrOr(r.provider, defaultProvider),
			"duration", time.Since(start),
			"error", err.Error())

		return nil, err
	}

	llm.Logger().DebugContext(ctx, "LLM request completed",
		"provider", lo.FromPtrOr(r.provider, defaultProvider),
		"model", resp.Model,
		"candidates", len(resp.Candidates),
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
		"duration", time.Since(start))

	return &Response[T]{*resp}, nil
}

// WithProvider sends the request to the provider registered under that name.
func (r Request[T]) WithProvider(name string) Request[T] {
	r.provider = &name

	return r
}

// WithId sets an identifier on the request. It is required for requests
// submitted in a batch, to match responses with their request.
func (r Request[T]) WithId(id string) Request[T] {
	r.Id = id

	return r
}

// FromCandidate selects a candidate/choice from a previous response as the base
// for this Request.
//
// Selecting a candidate will have two effects:
//   - Adding the candidate to the history (if it is enabled).
//   - Using this response tool calls as a basis for tool responses, if applicable.
//
// Example usage:
//
//	resp, err := llmadapter.NewRequest[Output]().
//		FromCandidate(previousResp, 0).
//		WithText(llmadapter.RoleUser, "How are you today?").
//		Do(ctx, llm)
func (r Request[T]) FromCandidate(c Candidater, idx int) Request[T] {
	candidate, err := c.Candidate(idx)
	if err != nil {
		r.err = errors.CombineErrors(r.err, err)
		return r
	}

	r.respondsTo = candidate

	if candidate.SelectCandidate != nil {
		candidate.SelectCandidate()
	}

	return r
}

// WithModel overrides the model used for this specific request.
//
// If not provided, the default model set on the provider, then the adapter will
// be used.
func (r Request[T]) WithModel(model string) Request[T] {
	r.Model = &model

	return r
}

// WithInstruction adds a system prompt to the request.
//
// Note that if the adapter is configured to save history, this need only be
// added on the first request sent to the provider.
func (r Request[T]) WithInstruction(parts ...string) Request[T] {
	return r.WithText(RoleSystem, parts...)
}

// WithInstructionReader adds a system prompt read from an io.Reader.
func (r Request[T]) WithInstructionReader(parts ...io.Reader) Request[T] {
	return r.WithTextReader(RoleSystem, parts...)
}

// WithText adds a text message to the Request.
//
// Each provided `string` will be added as a discrete `part` in the message.
func (r Request[T]) WithText(role MessageRole, parts ...string) Request[T] {
	return r.WithTextReader(role, lo.Map(parts, func(p string, _ int) io.Reader {
		return strings.NewReader(p)
	})...)
}

// WithTextReader adds a message to the Request read from an io.Reader.
func (r Request[T]) WithTextReader(role MessageRole, parts ...io.Reader) Request[T] {
	msgParts := make([]Part, 0, len(parts))

	for _, p := range parts {
		part, err := textPart(p)
		if err != nil {
			r.err = errors.CombineErrors(r.err, err)
			return r
		}

		msgParts = append(msgParts, part)
	}

	r.Messages = append(r.Messages, Message{
		Role:  role,
		Parts: msgParts,
	})

	return r
}

// WithImage adds a message made of one or several images.
//
// Images are checked to be PNG, JPEG, GIF or WEBP, and downscaled if they are
// larger than what vision models process.
func (r Request[T]) WithImage(role MessageRole, images ...io.Reader) Request[T] {
	parts := make([]Part, 0, len(images))

	for _, img := range images {
		part, err := imagePart(img)
		if err != nil {
			r.err = errors.CombineErrors(r.err, err)
			return r
		}

		parts = append(parts, part)
	}

	r.Messages = append(r.Messages, Message{
		Role:  role,
		Parts: parts,
	})

	return r
}

// WithImageFile adds a message containing an image read from disk.
func (r Request[T]) WithImageFile(role MessageRole, path string) Request[T] {
	f, err := os.Open(path)
	if err != nil {
		r.err = errors.CombineErrors(r.err, errors.Wrapf(err, "could not open image '%s'", path))
		return r
	}

	defer f.Close()

	return r.WithImage(role, f)
}

// WithImageUrl adds a message containing images the provider will download
// itself.
func (r Request[T]) WithImageUrl(role MessageRole, urls ...string) Request[T] {
	r.Messages = append(r.Messages, Message{
		Role: role,
		Parts: lo.Map(urls, func(url string, _ int) Part {
			return Part{Type: PartImageUrl, Data: []byte(url)}
		}),
	})

	return r
}

// WithTextAndImages adds a single message made of a text prompt followed by
// images, which is how most vision prompts are expressed.
func (r Request[T]) WithTextAndImages(role MessageRole, text string, images ...io.Reader) Request[T] {
	parts := []Part{{Type: PartText, Data: []byte(text)}}

	for _, img := range images {
		part, err := imagePart(img)
		if err != nil {
			r.err = errors.CombineErrors(r.err, err)
			return r
		}

		parts = append(parts, part)
	}

	r.Messages = append(r.Messages, Message{
		Role:  role,
		Parts: parts,
	})

	return r
}

// WithSerializable adds a text message containing `input` encoded with the
// given serializer.
func (r Request[T]) WithSerializable(role MessageRole, serializer Serializer, input any) Request[T] {
	content, err := serializer.Serialize(input)
	if err != nil {
		r.err = errors.CombineErrors(r.err, errors.Wrap(err, "could not serialize message"))
		return r
	}

	return r.WithTextReader(role, content)
}

// WithTools adds tool definitions to the request.
//
// Tools are represented as a type-safe function taking its configuration as
// input, and return a string and an error. The JSONSchema sent to the provider
// will be generated from the input type.
//
// Example usage:
//
//	resp, err := llmadapter.NewRequest[Output]().
//		WithText(llmadapter.RoleUser, "How are you today?").
//		WithTools(llmadapter.NewTool[WeatherParams]("get_weather", "Get weather at location", llmadapter.Function(func(args WeatherParams) (string, error) {
//			return "Good weather!", nil
//		}))).
//		Do(ctx, llm)
func (r Request[T]) WithTools(tools ...internal.Tool) Request[T] {
	for _, tool := range tools {
		r.Tools[tool.Name] = tool
	}

	return r
}

func (r Request[T]) withToolResponse(tool ResponseToolCall, output string) Request[T] {
	r.Messages = append(r.Messages, Message{
		Role:  RoleTool,
		Parts: []Part{{Type: PartText, Data: []byte(output)}},
		Tool:  &tool,
	})

	return r
}

// WithToolExecution executes the requested tools and add their output to the
// Request.
//
// It will also take care of adding the matching tool definitions to the
// Request, so there is not need to also call `WithTools`.
//
// Note that this requires that a candidate from the previous reponse was
// selected by calling `FromCandidate()` before this function, to determine
// which function the provider asked to be called.
func (r Request[T]) WithToolExecution(tools ...internal.Tool) Request[T] {
	if r.respondsTo == nil {
		r.err = errors.CombineErrors(r.err, errors.New("cannot execute tools without selecting a response candidate, call FromCandidate() first"))
		return r
	}

	r = r.WithTools(tools...)

	for _, toolCall := range r.respondsTo.ToolCalls {
		tool, ok := r.Tools[toolCall.Name]
		if !ok {
			r.err = errors.CombineErrors(r.err, errors.Newf("no tool was registered for response to tool '%s'", toolCall.Name))
			return r
		}

		resp, err := tool.Call(toolCall.Parameters)
		if err != nil {
			r.err = errors.CombineErrors(r.err, err)
			return r
		}

		r = r.withToolResponse(toolCall, resp)
	}

	return r
}

// WithProviderOptions set provider-specific options.
//
// Some options are not going to be supported by all providers, so they will
// usually defined a type representing options specific to them. This function
// allows to define those. One set of option can be defined by provider type.
func (r Request[T]) WithProviderOptions(opts internal.ProviderRequestOptions) Request[T] {
	r.ProviderOptions[reflect.TypeOf(opts)] = opts

	return r
}

// WithMaxTokens limits how many token a provider can emit for its completion.
//
// It takes precedence over the limit configured on the provider.
func (r Request[T]) WithMaxTokens(tokens int) Request[T] {
	r.MaxTokens = &tokens

	return r
}

// WithMaxCandidates limits how many candidate responses the provider is able to provide.
//
// Most providers default to 1 for this value.
func (r Request[T]) WithMaxCandidates(candidates int) Request[T] {
	r.MaxCandidates = &candidates

	return r
}

// WithTemperature sets custom temperature value to be used.
//
// Default value depends on the model.
func (r Request[T]) WithTemperature(temp float64) Request[T] {
	r.Temperature = &temp

	return r
}

// WithTopP sets the `top_p` parameter.
func (r Request[T]) WithTopP(topp float64) Request[T] {
	r.TopP = &topp

	return r
}

// Request[T] implementation of Requester.

func (r Request[T]) ToRequest() innerRequest {
	return r.innerRequest
}

func (r Request[T]) ProviderRequestOptions(provider Llm) internal.ProviderRequestOptions {
	var providerOpts internal.ProviderRequestOptions

	if opts, ok := r.ProviderOptions[provider.RequestOptionsType()]; ok {
		providerOpts = opts
	}

	return providerOpts
}

func (r Request[T]) Err() error {
	return r.err
}

func textPart(r io.Reader) (Part, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return Part{}, errors.Wrap(err, "could not read text part")
	}

	return Part{Type: PartText, Data: buf}, nil
}

func imagePart(r io.Reader) (Part, error) {
	img, err := images.Read(r)
	if err != nil {
		return Part{}, err
	}

	return Part{
		Type:     PartImage,
		MimeType: img.MimeType,
		Data:     img.Data,
	}, nil
}
