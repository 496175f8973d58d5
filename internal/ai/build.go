package ai

import (
	"fmt"

	"github.com/xxxsen/smartnote/internal/config"
)

// EmbedderWrapper decorates a single model embedder, e.g. with caches.
type EmbedderWrapper func(IEmbedder) IEmbedder

// Build creates every configured provider and wires the feature groups.
// A feature without model refs stays nil and reports ErrUnavailable.
func Build(cfg config.AIConfig, wrap EmbedderWrapper) (*Manager, error) {
	providers := make(map[string]IProvider, len(cfg.Providers))
	for _, item := range cfg.Providers {
		p, err := NewProvider(item.Type, item.Data)
		if err != nil {
			return nil, fmt.Errorf("init ai provider %s: %w", item.Name, err)
		}
		providers[item.Name] = p
	}
	generators := func(refs []config.AIModelRef) ([]GeneratorEntry, error) {
		entries := make([]GeneratorEntry, 0, len(refs))
		for _, ref := range refs {
			p, ok := providers[ref.Provider]
			if !ok {
				return nil, fmt.Errorf("unknown ai provider: %s", ref.Provider)
			}
			entries = append(entries, GeneratorEntry{
				Name:      ref.Provider + "/" + ref.Model,
				Generator: NewGenerator(p, ref.Model),
			})
		}
		return entries, nil
	}
	summarizers, err := generators(cfg.Summarizer)
	if err != nil {
		return nil, err
	}
	taggers, err := generators(cfg.Tagger)
	if err != nil {
		return nil, err
	}
	embedders := make([]EmbedderEntry, 0, len(cfg.Embedder))
	for _, ref := range cfg.Embedder {
		p, ok := providers[ref.Provider]
		if !ok {
			return nil, fmt.Errorf("unknown ai provider: %s", ref.Provider)
		}
		var e IEmbedder = NewEmbedder(p, ref.Model)
		if wrap != nil {
			e = wrap(e)
		}
		embedders = append(embedders, EmbedderEntry{Name: e.ModelName(), Embedder: e})
	}
	return NewManager(
		NewGroupGenerator(taggers),
		NewGroupGenerator(summarizers),
		NewGroupEmbedder(embedders),
		ManagerConfig{
			Timeout:        cfg.Timeout,
			MaxInputChars:  cfg.MaxInputChars,
			MaxInputTokens: cfg.MaxInputTokens,
			MaxTags:        cfg.MaxTags,
		},
	), nil
}
