package mistral

type PromptMode string

const (
	PromptModeReasoning PromptMode = "reasoning"
)

// RequestOptions are the Mistral-specific request fields. Zero values are not
// sent.
type RequestOptions struct {
	// SafePrompt injects Mistral's safety prompt before the conversation.
	SafePrompt       bool       `structs:"safe_prompt,omitempty"`
	RandomSeed       *int       `structs:"random_seed,omitempty"`
	PresencePenalty  *float64   `structs:"presence_penalty,omitempty"`
	FrequencyPenalty *float64   `structs:"frequency_penalty,omitempty"`
	PromptMode       PromptMode `structs:"prompt_mode,omitempty"`
}

func (RequestOptions) RequestOptionsForProvider() {}
