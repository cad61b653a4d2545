package ai

import "strings"

// Token budget parameter names accepted by the chat-completions API
const (
	TokenParamMaxTokens           = "max_tokens"
	TokenParamMaxCompletionTokens = "max_completion_tokens"
)

// reasoningMinTokens is the smallest output budget a reasoning model gets;
// below it the model spends the whole budget thinking and returns nothing.
const reasoningMinTokens = 1500

// ModelProfile describes how requests to a model family must be shaped
type ModelProfile struct {
	Name                string `json:"name"`
	TokenParam          string `json:"token_param"`
	SupportsTemperature bool   `json:"supports_temperature"`
	Reasoning           bool   `json:"reasoning"`
	Tier                string `json:"tier"`
}

var modelProfiles = []ModelProfile{
	{Name: "gpt-5", TokenParam: TokenParamMaxCompletionTokens, Reasoning: true, Tier: "Team/Pro/Enterprise"},
	{Name: "gpt-5-mini", TokenParam: TokenParamMaxCompletionTokens, Reasoning: true, Tier: "Team/Pro/Enterprise"},
	{Name: "gpt-5-nano", TokenParam: TokenParamMaxCompletionTokens, Reasoning: true, Tier: "Team/Pro/Enterprise"},
	{Name: "gpt-5-pro", TokenParam: TokenParamMaxCompletionTokens, Reasoning: true, Tier: "Pro/Enterprise"},
	{Name: "gpt-5-chat-latest", TokenParam: TokenParamMaxCompletionTokens, Reasoning: true, Tier: "Team/Pro/Enterprise"},
	{Name: "gpt-4o", TokenParam: TokenParamMaxTokens, SupportsTemperature: true, Tier: "Standard"},
	{Name: "gpt-4o-mini", TokenParam: TokenParamMaxTokens, SupportsTemperature: true, Tier: "Standard"},
	{Name: "gpt-4o-2024-08-06", TokenParam: TokenParamMaxTokens, SupportsTemperature: true, Tier: "Standard"},
	{Name: "o1-preview", TokenParam: TokenParamMaxCompletionTokens, Reasoning: true, Tier: "Tier 5"},
	{Name: "o1-mini", TokenParam: TokenParamMaxCompletionTokens, Reasoning: true, Tier: "Tier 5"},
}

// familyPrefixes resolve dated or unlisted variants of a known family
var familyPrefixes = []struct {
	prefix  string
	profile string
}{
	{"gpt-5", "gpt-5"},
	{"o1", "o1-preview"},
	{"gpt-4o", "gpt-4o"},
}

// Profile returns the request profile for a model: exact name first, then
// family prefix. Unknown models get max_tokens with temperature.
func Profile(model string) ModelProfile {
	model = strings.TrimSpace(model)
	for _, p := range modelProfiles {
		if p.Name == model {
			return p
		}
	}
	for _, f := range familyPrefixes {
		if strings.HasPrefix(model, f.prefix) {
			for _, p := range modelProfiles {
				if p.Name == f.profile {
					p.Name = model
					return p
				}
			}
		}
	}
	return ModelProfile{Name: model, TokenParam: TokenParamMaxTokens, SupportsTemperature: true, Tier: "Standard"}
}

// SupportedModels lists the models with a known profile
func SupportedModels() []ModelProfile {
	out := make([]ModelProfile, len(modelProfiles))
	copy(out, modelProfiles)
	return out
}

// IsHighCapability reports the gpt-5 family, which falls back to a cheaper
// model when it keeps producing unparseable output.
func IsHighCapability(model string) bool {
	return strings.HasPrefix(strings.TrimSpace(model), "gpt-5")
}

// outputBudget applies the reasoning-model floor to a token budget
func (p ModelProfile) outputBudget(maxTokens int) int {
	if p.Reasoning && maxTokens < reasoningMinTokens {
		return reasoningMinTokens
	}
	return maxTokens
}
