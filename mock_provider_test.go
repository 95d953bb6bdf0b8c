package llmadapter

import (
	"context"
	"reflect"

	"github.com/checkmarble/marble-multimodal-adapter/internal"
	"github.com/stretchr/testify/mock"
)

type MockMessage struct {
	Text string
}

type mockOpts struct{}

func (mockOpts) RequestOptionsForProvider() {}

type MockProvider struct {
	mock.Mock

	History History[MockMessage]
}

func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

func (p *MockProvider) Init(llm internal.Adapter) error {
	return p.Called(llm).Error(0)
}

func (p *MockProvider) ResetContext() {
	p.History.Clear()
}

func (*MockProvider) RequestOptionsType() reflect.Type {
	return reflect.TypeFor[mockOpts]()
}

func (p *MockProvider) ChatCompletion(ctx context.Context, llm internal.Adapter, requester Requester) (*InnerResponse, error) {
	args := p.Called(ctx, llm, requester)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	msg := args.Get(0).(MockMessage)

	return &InnerResponse{
		Model: "mockmodel",
		Candidates: []ResponseCandidate{
			{
				Text:         msg.Text,
				FinishReason: FinishReasonStop,
				SelectCandidate: func() {
					if llm.SaveContext() {
						p.History.Save(msg)
					}
				},
			},
		},
	}, args.Error(1)
}

// mockMultiModal is a provider advertising multi-modal capabilities.
type mockMultiModal struct {
	MockProvider
}

func (*mockMultiModal) Metadata() ModelMetadata {
	return ModelMetadata{ModelName: "mockmodel", IsMultiModal: true, IsChatModel: true}
}
