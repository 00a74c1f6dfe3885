package cmd

import (
	"fmt"
	"time"

	"jobinsights/internal/classifier"
	"jobinsights/internal/config"
	"jobinsights/internal/feedback"
	"jobinsights/internal/storage/sqlite"
)

// openStore picks the corrections backend from config. The returned
// close func is a no-op for the file store.
func openStore(cfg config.Config) (feedback.Store, func() error, error) {
	switch cfg.FeedbackStore {
	case "sqlite":
		store, err := sqlite.Open(cfg.FeedbackPath)
		if err != nil {
			return nil, nil, fmt.Errorf("opening sqlite feedback store: %w", err)
		}
		return store, store.Close, nil
	default:
		store, err := feedback.NewFileStore(cfg.FeedbackPath)
		if err != nil {
			return nil, nil, fmt.Errorf("opening feedback store: %w", err)
		}
		return store, func() error { return nil }, nil
	}
}

// newLLMClassifier builds the fallback classifier from config, with
// optional model/URL overrides from flags.
func newLLMClassifier(cfg config.Config, store feedback.Store, modelOverride, urlOverride string) *classifier.LLMClassifier {
	llmCfg := classifier.LLMConfig{
		Provider:   cfg.LLMProvider,
		Model:      cfg.LLMModel,
		BaseURL:    cfg.LLMBaseURL,
		APIKey:     cfg.LLMAPIKey,
		Timeout:    time.Duration(cfg.LLMTimeoutSeconds) * time.Second,
		MaxTokens:  cfg.LLMMaxTokens,
		FewShot:    !cfg.LLMDisableFewShot,
		FewShotMax: cfg.FewShotMax,
	}
	if modelOverride != "" {
		llmCfg.Model = modelOverride
	}
	if urlOverride != "" {
		llmCfg.BaseURL = urlOverride
	}
	return classifier.NewLLMClassifier(llmCfg, store)
}
