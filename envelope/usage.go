package envelope

import "fmt"

// Usage is the token accounting reported with a response.
// PromptTokens never exceeds TotalTokens.
type Usage struct {
	PromptTokens uint `json:"prompt_tokens"`
	TotalTokens  uint `json:"total_tokens"`
}

// SameUsage reports n tokens for both prompt and total, as embedding
// backends do.
func SameUsage(n uint) Usage {
	return Usage{PromptTokens: n, TotalTokens: n}
}

// NewUsage builds a Usage, rejecting prompt > total.
func NewUsage(prompt, total uint) (Usage, error) {
	if prompt > total {
		return Usage{}, fmt.Errorf("usage: prompt_tokens (%d) exceeds total_tokens (%d)", prompt, total)
	}
	return Usage{PromptTokens: prompt, TotalTokens: total}, nil
}

// Add returns the element-wise sum of u and other.
func (u Usage) Add(other Usage) Usage {
	return Usage{
		PromptTokens: u.PromptTokens + other.PromptTokens,
		TotalTokens:  u.TotalTokens + other.TotalTokens,
	}
}

func (u Usage) String() string {
	return fmt.Sprintf("Usage(prompt_tokens=%d, total_tokens=%d)", u.PromptTokens, u.TotalTokens)
}
