package llmadapter

import (
	"context"

	"github.com/checkmarble/marble-multimodal-adapter/internal"
)

type (
	BatchStatus int
)

const (
	BatchPending BatchStatus = iota
	BatchRunning
	BatchFinished
	BatchError
)

// BatchUnsupported can be embedded by providers without batch support, to
// make that explicit.
type BatchUnsupported struct{}

func (BatchUnsupported) SubmitBatch(context.Context, internal.Adapter, ...Requester) (*UntypedBatchPromise, error) {
	return nil, ErrBatchUnsupported
}

func (BatchUnsupported) Check(context.Context, *UntypedBatchPromise) (BatchStatus, error) {
	return BatchError, ErrBatchUnsupported
}

func (BatchUnsupported) Wait(context.Context, *UntypedBatchPromise) <-chan BatchWaitResponse {
	ch := make(chan BatchWaitResponse, 1)
	ch <- BatchWaitResponse{Status: BatchError, Error: ErrBatchUnsupported}
	close(ch)

	return ch
}

type Batch[T any] struct {
	Requests []Request[T]
}

func NewBatch[T any](reqs ...Request[T]) Batch[T] {
	return Batch[T]{Requests: reqs}
}

// Submit sends the batch to the named provider. Every request must have an
// ID set with WithId.
func (b Batch[T]) Submit(ctx context.Context, llm *LlmAdapter, providerName string) (*BatchPromise[T], error) {
	requesters := make([]Requester, len(b.Requests))

	for idx, r := range b.Requests {
		requesters[idx] = r
	}

	promise, err := llm.SubmitBatch(ctx, providerName, requesters...)
	if err != nil {
		return nil, err
	}

	return &BatchPromise[T]{promise}, nil
}

type UntypedBatchPromise struct {
	Provider     Batcher
	ProviderName string
	Id           string
}

type BatchPromise[T any] struct {
	*UntypedBatchPromise
}

func (p BatchPromise[T]) Check(ctx context.Context) (BatchStatus, error) {
	return p.Provider.Check(ctx, p.UntypedBatchPromise)
}

// Wait blocks until the batch job ends or the context is cancelled.
func (p BatchPromise[T]) Wait(ctx context.Context) (*BatchWaitResponse, error) {
	resp, ok := <-p.Provider.Wait(ctx, p.UntypedBatchPromise)
	if !ok {
		return nil, ctx.Err()
	}

	if resp.Error != nil {
		return nil, resp.Error
	}

	return &resp, nil
}

type BatchWaitResponse struct {
	Status BatchStatus
	// Output is where the provider wrote the batch results.
	Output string
	Error  error
}
