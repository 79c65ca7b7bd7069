package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/xinyihrsinuo/DeepClaude/internal/apierr"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Config is the fully validated, immutable configuration tree: every
// provider_name/reason_model/answer_model reference has already been
// checked, so callers of Resolve never need to re-validate.
type Config struct {
	providers  map[string]Provider
	baseModels map[string]BaseModel
	deepModels map[string]DeepModel
	order      []string // deep model names in load order, for ListDeepModels
}

// Load parses and validates a raw YAML config tree, returning either a fully
// valid Config or a single aggregated apierr.Error (Code ConfigError) listing
// every problem found. There is no partially-valid Config: construction is
// whole or not at all, per SPEC_FULL.md §9.
func Load(data []byte, logger *zap.Logger) (*Config, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, apierr.New(apierr.ConfigError, "failed to parse config YAML").WithCause(err)
	}

	var problems []string

	providers := make(map[string]Provider, len(raw.Providers))
	for i, rp := range raw.Providers {
		if rp.Name == "" {
			problems = append(problems, fmt.Sprintf("providers[%d]: name is required", i))
			continue
		}
		if _, dup := providers[rp.Name]; dup {
			problems = append(problems, fmt.Sprintf("providers[%d]: duplicate name %q", i, rp.Name))
			continue
		}
		kind := ProviderKind(rp.Type)
		if !kind.IsValid() {
			problems = append(problems, fmt.Sprintf("providers[%d] (%s): unknown type %q", i, rp.Name, rp.Type))
			continue
		}
		if rp.BaseURL == "" {
			problems = append(problems, fmt.Sprintf("providers[%d] (%s): base_url is required", i, rp.Name))
			continue
		}
		if !looksLikeURL(rp.BaseURL) {
			logger.Warn("provider base_url missing scheme", zap.String("provider", rp.Name), zap.String("base_url", rp.BaseURL))
		}
		providers[rp.Name] = Provider{
			Name:     rp.Name,
			Kind:     kind,
			BaseURL:  rp.BaseURL,
			APIKey:   rp.APIKey,
			UseProxy: rp.UseProxy,
		}
	}

	baseModels := make(map[string]BaseModel, len(raw.BaseModels))
	for i, rb := range raw.BaseModels {
		if rb.Name == "" {
			problems = append(problems, fmt.Sprintf("base_models[%d]: name is required", i))
			continue
		}
		if _, dup := baseModels[rb.Name]; dup {
			problems = append(problems, fmt.Sprintf("base_models[%d]: duplicate name %q", i, rb.Name))
			continue
		}
		if _, ok := providers[rb.Provider]; !ok {
			problems = append(problems, fmt.Sprintf("base_models[%d] (%s): unknown provider %q", i, rb.Name, rb.Provider))
			continue
		}
		if rb.Context <= 0 {
			problems = append(problems, fmt.Sprintf("base_models[%d] (%s): context must be positive", i, rb.Name))
			continue
		}
		if rb.MaxTokens <= 0 {
			problems = append(problems, fmt.Sprintf("base_models[%d] (%s): max_tokens must be positive", i, rb.Name))
			continue
		}
		baseModels[rb.Name] = BaseModel{
			Name:          rb.Name,
			ModelID:       rb.ModelID,
			ProviderName:  rb.Provider,
			ContextWindow: rb.Context,
			MaxTokens:     rb.MaxTokens,
		}
	}

	deepModels := make(map[string]DeepModel, len(raw.DeepModels))
	order := make([]string, 0, len(raw.DeepModels))
	for i, rd := range raw.DeepModels {
		if rd.Name == "" {
			problems = append(problems, fmt.Sprintf("deep_models[%d]: name is required", i))
			continue
		}
		if _, dup := deepModels[rd.Name]; dup {
			problems = append(problems, fmt.Sprintf("deep_models[%d]: duplicate name %q", i, rd.Name))
			continue
		}
		if _, ok := baseModels[rd.ReasonModel]; !ok {
			problems = append(problems, fmt.Sprintf("deep_models[%d] (%s): unknown reason_model %q", i, rd.Name, rd.ReasonModel))
			continue
		}
		if _, ok := baseModels[rd.AnswerModel]; !ok {
			problems = append(problems, fmt.Sprintf("deep_models[%d] (%s): unknown answer_model %q", i, rd.Name, rd.AnswerModel))
			continue
		}
		deepModels[rd.Name] = DeepModel{
			Name:              rd.Name,
			ReasonModel:       rd.ReasonModel,
			AnswerModel:       rd.AnswerModel,
			IsOriginReasoning: rd.IsOriginReasoning,
		}
		order = append(order, rd.Name)
	}

	if len(problems) > 0 {
		return nil, apierr.New(apierr.ConfigError, "config validation failed: "+strings.Join(problems, "; "))
	}

	return &Config{
		providers:  providers,
		baseModels: baseModels,
		deepModels: deepModels,
		order:      order,
	}, nil
}

// LoadFile reads path and validates it via Load.
func LoadFile(path string, logger *zap.Logger) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apierr.New(apierr.ConfigError, "failed to read config file").WithCause(err)
	}
	return Load(data, logger)
}

// Resolve returns the reason and answer descriptors for a deep model, plus
// its IsOriginReasoning flag. UnknownModel if the name is not registered.
func (c *Config) Resolve(deepModelName string) (reason, answer Descriptor, isOriginReasoning bool, err error) {
	dm, ok := c.deepModels[deepModelName]
	if !ok {
		return Descriptor{}, Descriptor{}, false, apierr.New(apierr.UnknownModel, fmt.Sprintf("unknown deep model %q", deepModelName))
	}

	reasonDesc, rErr := c.descriptorFor(dm.ReasonModel)
	if rErr != nil {
		return Descriptor{}, Descriptor{}, false, rErr
	}
	answerDesc, aErr := c.descriptorFor(dm.AnswerModel)
	if aErr != nil {
		return Descriptor{}, Descriptor{}, false, aErr
	}
	return reasonDesc, answerDesc, dm.IsOriginReasoning, nil
}

func (c *Config) descriptorFor(baseModelName string) (Descriptor, error) {
	bm, ok := c.baseModels[baseModelName]
	if !ok {
		return Descriptor{}, apierr.New(apierr.UnknownModel, fmt.Sprintf("unknown base model %q", baseModelName))
	}
	p, ok := c.providers[bm.ProviderName]
	if !ok {
		return Descriptor{}, apierr.New(apierr.UnknownModel, fmt.Sprintf("base model %q references unknown provider %q", baseModelName, bm.ProviderName))
	}
	return Descriptor{
		ModelID:  bm.ModelID,
		BaseURL:  p.BaseURL,
		APIKey:   p.APIKey,
		Kind:     p.Kind,
		UseProxy: p.UseProxy,
	}, nil
}

// ListDeepModels returns every configured deep model in load order.
func (c *Config) ListDeepModels() []DeepModel {
	out := make([]DeepModel, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.deepModels[name])
	}
	return out
}

// MaxContextWindow returns the larger of the two component models' context
// windows for a deep model — the "deep model context" of the glossary.
func (c *Config) MaxContextWindow(deepModelName string) (int, error) {
	dm, ok := c.deepModels[deepModelName]
	if !ok {
		return 0, apierr.New(apierr.UnknownModel, fmt.Sprintf("unknown deep model %q", deepModelName))
	}
	reason := c.baseModels[dm.ReasonModel]
	answer := c.baseModels[dm.AnswerModel]
	if reason.ContextWindow > answer.ContextWindow {
		return reason.ContextWindow, nil
	}
	return answer.ContextWindow, nil
}

// Registry is a thin, explicit holder for a *Config — never a package-level
// mutable singleton. It is constructed once in main() and passed by
// reference to every collaborator that needs to resolve a deep model.
type Registry struct {
	cfg *Config
}

// NewRegistry wraps an already-validated Config.
func NewRegistry(cfg *Config) *Registry {
	return &Registry{cfg: cfg}
}

func (r *Registry) Resolve(deepModelName string) (reason, answer Descriptor, isOriginReasoning bool, err error) {
	if r == nil || r.cfg == nil {
		return Descriptor{}, Descriptor{}, false, apierr.New(apierr.ConfigNotLoaded, "config registry not initialized")
	}
	return r.cfg.Resolve(deepModelName)
}

func (r *Registry) ListDeepModels() []DeepModel {
	if r == nil || r.cfg == nil {
		return nil
	}
	return r.cfg.ListDeepModels()
}

func (r *Registry) MaxContextWindow(deepModelName string) (int, error) {
	if r == nil || r.cfg == nil {
		return 0, apierr.New(apierr.ConfigNotLoaded, "config registry not initialized")
	}
	return r.cfg.MaxContextWindow(deepModelName)
}
