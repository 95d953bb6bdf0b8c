package llmadapter

import (
	"context"
	"reflect"

	"github.com/checkmarble/marble-multimodal-adapter/internal"
)

const (
	// DefaultContextWindow is reported by providers that do not know the
	// context size of the selected model.
	DefaultContextWindow = 3900
	// DefaultNumOutputs is reported when no output token limit was configured.
	DefaultNumOutputs = 256
)

// Llm is the contract every provider implements.
type Llm interface {
	// Init is called once by New, with the adapter the provider was
	// registered on.
	Init(llm internal.Adapter) error
	// ResetContext drops the conversation history kept by the provider.
	ResetContext()
	// ChatCompletion sends one request to the provider.
	ChatCompletion(context.Context, internal.Adapter, Requester) (*InnerResponse, error)
	// RequestOptionsType is the type of provider-specific request options the
	// provider reads from a request.
	RequestOptionsType() reflect.Type
}

// MultiModalLLM is a provider able to take mixed text and image input and
// produce text output.
type MultiModalLLM interface {
	Llm

	// Metadata describes the model the provider talks to.
	Metadata() ModelMetadata
}

// ModelMetadata describes the capabilities of a configured model.
type ModelMetadata struct {
	ModelName string
	// ContextWindow is the number of tokens the model accepts, input and
	// output combined.
	ContextWindow int
	// NumOutputs is the maximum number of tokens the model will generate.
	NumOutputs   int
	IsChatModel  bool
	IsMultiModal bool
}

// Batcher is implemented by providers supporting asynchronous batch jobs.
type Batcher interface {
	SubmitBatch(ctx context.Context, llm internal.Adapter, reqs ...Requester) (*UntypedBatchPromise, error)
	Check(ctx context.Context, pr *UntypedBatchPromise) (BatchStatus, error)
	Wait(ctx context.Context, pr *UntypedBatchPromise) <-chan BatchWaitResponse
}
