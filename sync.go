package llmadapter

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
)

type AsyncResponse[T any] struct {
	Response *Response[T]
	Error    error
}

// All sends all requests concurrently and waits for every one of them.
// Responses are returned in the order of the requests.
func All[T any](ctx context.Context, llm *LlmAdapter, reqs ...Request[T]) []AsyncResponse[T] {
	var wg sync.WaitGroup

	responses := make([]AsyncResponse[T], len(reqs))

	for idx, req := range reqs {
		wg.Add(1)

		go func() {
			defer wg.Done()

			resp, err := req.Do(ctx, llm)
			if err != nil {
				responses[idx] = AsyncResponse[T]{Error: err}
				return
			}

			responses[idx] = AsyncResponse[T]{Response: resp}
		}()
	}

	wg.Wait()

	return responses
}

// Race sends all requests concurrently and returns the first successful
// response. The other requests are cancelled.
func Race[T any](ctx context.Context, llm *LlmAdapter, reqs ...Request[T]) (*Response[T], error) {
	if len(reqs) == 0 {
		return nil, errors.New("no request to race")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c := make(chan AsyncResponse[T], len(reqs))

	for _, req := range reqs {
		go func() {
			resp, err := req.Do(ctx, llm)
			if err != nil {
				c <- AsyncResponse[T]{Error: err}
				return
			}

			c <- AsyncResponse[T]{Response: resp}
		}()
	}

	var errs error

	for range reqs {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case value := <-c:
			if value.Error == nil {
				return value.Response, nil
			}

			errs = errors.CombineErrors(errs, value.Error)
		}
	}

	return nil, errors.Wrap(errs, "all requests failed")
}
