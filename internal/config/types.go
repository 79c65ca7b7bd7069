// Package config implements the Config Registry: a validated-whole-or-not-at-all,
// immutable-after-construction set of provider / base-model / deep-model
// definitions, and the resolution logic that turns a deep-model name into
// the two upstream request descriptors the Orchestrator needs.
package config

import "strings"

// ProviderKind is a closed tagged variant over the three wire protocols this
// gateway understands. Each member implies a distinct request-body shape,
// header set, and SSE event grammar — see internal/wire.
type ProviderKind string

const (
	KindAnthropic        ProviderKind = "anthropic"
	KindOpenRouter       ProviderKind = "openrouter"
	KindOpenAICompatible ProviderKind = "openai-compatible"
)

// IsValid reports whether k is one of the known provider kinds.
func (k ProviderKind) IsValid() bool {
	switch k {
	case KindAnthropic, KindOpenRouter, KindOpenAICompatible:
		return true
	default:
		return false
	}
}

// Provider is an upstream LLM vendor account: a base URL, a credential, and
// the wire kind that determines how requests to it are built and decoded.
// Immutable after Load.
type Provider struct {
	Name     string
	Kind     ProviderKind
	BaseURL  string
	APIKey   string
	UseProxy bool
}

// BaseModel is a single upstream model identifier bound to a Provider.
type BaseModel struct {
	Name           string
	ModelID        string
	ProviderName   string
	ContextWindow  int
	MaxTokens      int
}

// DeepModel composes two BaseModels — one for reasoning, one for the final
// answer — under one user-visible name.
type DeepModel struct {
	Name              string
	ReasonModel       string
	AnswerModel       string
	IsOriginReasoning bool
}

// Descriptor is everything an upstream call needs to know about one leg
// (reason or answer) of a deep-model request.
type Descriptor struct {
	ModelID  string
	BaseURL  string
	APIKey   string
	Kind     ProviderKind
	UseProxy bool
}

// rawConfig is the shape YAML is unmarshaled into, matching the config file
// schema in SPEC_FULL.md §4.H before validation and cross-reference checks.
type rawConfig struct {
	Providers  []rawProvider  `yaml:"providers"`
	BaseModels []rawBaseModel `yaml:"base_models"`
	DeepModels []rawDeepModel `yaml:"deep_models"`
}

type rawProvider struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	BaseURL  string `yaml:"base_url"`
	APIKey   string `yaml:"api_key"`
	UseProxy bool   `yaml:"use_proxy"`
}

type rawBaseModel struct {
	Name      string `yaml:"name"`
	ModelID   string `yaml:"model_id"`
	Provider  string `yaml:"provider"`
	Context   int    `yaml:"context"`
	MaxTokens int    `yaml:"max_tokens"`
}

type rawDeepModel struct {
	Name              string `yaml:"name"`
	ReasonModel       string `yaml:"reason_model"`
	AnswerModel       string `yaml:"answer_model"`
	IsOriginReasoning bool   `yaml:"is_origin_reasoning"`
}

// looksLikeURL reports whether s has an http(s) scheme — used for the
// warn-don't-fail URL well-formedness check in Load.
func looksLikeURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
