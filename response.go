package llmadapter

import (
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
)

type FinishReason int

const (
	FinishReasonUnknown FinishReason = iota
	FinishReasonStop
	FinishReasonMaxTokens
	FinishReasonToolCalls
	FinishReasonContentFilter
	FinishReasonOther
)

func (f FinishReason) String() string {
	switch f {
	case FinishReasonStop:
		return "stop"
	case FinishReasonMaxTokens:
		return "max_tokens"
	case FinishReasonToolCalls:
		return "tool_calls"
	case FinishReasonContentFilter:
		return "content_filter"
	case FinishReasonOther:
		return "other"
	default:
		return "unknown"
	}
}

// Candidater represents a type that can have several candidates.
type Candidater interface {
	NumCandidates() int
	Candidate(int) (*ResponseCandidate, error)
}

// Usage is the token accounting reported by the provider.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// InnerResponse is a response from an LLM provider.
type InnerResponse struct {
	Id         string
	Model      string
	Created    time.Time
	Usage      Usage
	Candidates []ResponseCandidate
}

// ResponseCandidate represent a response from an LLM provider.
type ResponseCandidate struct {
	Text         string
	FinishReason FinishReason
	ToolCalls    []ResponseToolCall

	// SelectCandidate records the candidate in the provider history.
	SelectCandidate func()
}

// ResponseToolCall is a request from an LLM provider to execute a tool.
type ResponseToolCall struct {
	Id         string
	Name       string
	Parameters []byte
}

type Response[T any] struct {
	InnerResponse
}

func (r Response[T]) NumCandidates() int {
	return len(r.Candidates)
}

func (r Response[T]) Candidate(idx int) (*ResponseCandidate, error) {
	if idx < 0 || idx > len(r.Candidates)-1 {
		return nil, errors.Newf("candidate %d does not exist (%d candidates)", idx, len(r.Candidates))
	}

	return &r.Candidates[idx], nil
}

// Get returns the output of a candidate, decoded into T.
func (r Response[T]) Get(idx int) (T, error) {
	candidate, err := r.Candidate(idx)
	if err != nil {
		return *new(T), err
	}

	switch any(*new(T)).(type) {
	case string:
		return any(candidate.Text).(T), nil

	default:
		output := new(T)

		if err := json.Unmarshal([]byte(candidate.Text), output); err != nil {
			return *new(T), errors.Wrap(err, "failed to decode response to schema")
		}

		return *output, nil
	}
}
