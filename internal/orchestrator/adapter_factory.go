package orchestrator

import (
	"github.com/xinyihrsinuo/DeepClaude/internal/apierr"
	"github.com/xinyihrsinuo/DeepClaude/internal/config"
	"github.com/xinyihrsinuo/DeepClaude/internal/wire"
	"github.com/xinyihrsinuo/DeepClaude/internal/wire/anthropic"
	"github.com/xinyihrsinuo/DeepClaude/internal/wire/openaicompat"
	"github.com/xinyihrsinuo/DeepClaude/internal/wire/openrouter"
)

// adapterFor builds the wire.Adapter matching a descriptor's ProviderKind.
// No inheritance, no fallback between kinds, per spec.md §9 "Provider
// polymorphism".
func adapterFor(kind config.ProviderKind, apiKey string) (wire.Adapter, error) {
	switch kind {
	case config.KindAnthropic:
		return anthropic.New(apiKey), nil
	case config.KindOpenRouter:
		return openrouter.New(apiKey), nil
	case config.KindOpenAICompatible:
		return openaicompat.New(apiKey), nil
	default:
		return nil, apierr.Newf(apierr.ConfigError, "unknown provider kind %q", kind)
	}
}
