package aistudio

// ThinkingConfig controls the reasoning phase of Gemini 2.5 models.
type ThinkingConfig struct {
	// IncludeThoughts returns thought summaries. They are not part of the
	// candidate text.
	IncludeThoughts bool
	// Budget caps the tokens spent thinking, 0 disables it.
	// cf: https://cloud.google.com/vertex-ai/generative-ai/docs/thinking#budget
	Budget *int
}

// RequestOptions are the Gemini-specific request settings.
type RequestOptions struct {
	// GoogleSearch grounds the answer with Google Search results.
	GoogleSearch *bool
	TopK         *float64
	Thinking     *ThinkingConfig
}

func (RequestOptions) RequestOptionsForProvider() {}
