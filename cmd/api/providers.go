package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/confhub/recommender/internal/config"
	"github.com/confhub/recommender/internal/googleai"
	"github.com/confhub/recommender/internal/openai"
	"github.com/confhub/recommender/internal/service"
)

var errUnsupportedProvider = errors.New("unsupported provider")

const (
	providerOpenAI = "openai"
	providerGoogle = "google"
)

var supportedProviders = map[string]struct{}{
	providerOpenAI: {},
	providerGoogle: {},
}

const providerHTTPTimeout = 30 * time.Second

// enabledProvider returns name when it is set and supported. Unsupported names disable the
// feature with an info log rather than failing startup.
func enabledProvider(feature, name string) string {
	if name == "" {
		return ""
	}

	if _, ok := supportedProviders[name]; !ok {
		slog.Info(feature+" disabled: unsupported provider", "provider", name)

		return ""
	}

	return name
}

// newProviderHTTPClient returns a bounded-retry client shared by the provider SDKs.
func newProviderHTTPClient(maxRetries int) *http.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = maxRetries
	retryClient.HTTPClient.Timeout = providerHTTPTimeout
	retryClient.Logger = nil

	return retryClient.StandardClient()
}

// newEmbeddingClient builds the embedding client, or returns nil when embeddings are disabled.
func newEmbeddingClient(ctx context.Context, cfg *config.Config, httpClient *http.Client) (service.EmbeddingClient, error) {
	switch enabledProvider("embeddings", cfg.EmbeddingProvider) {
	case "":
		return nil, nil //nolint:nilnil // provider disabled
	case providerOpenAI:
		return openai.NewClient(cfg.EmbeddingProviderAPIKey,
			openai.WithModel(cfg.EmbeddingModel),
			openai.WithDimensions(cfg.EmbeddingDimensions),
			openai.WithHTTPClient(httpClient),
		), nil
	case providerGoogle:
		client, err := googleai.NewClient(ctx, cfg.EmbeddingProviderAPIKey,
			googleai.WithModel(cfg.EmbeddingModel),
			googleai.WithDimensions(cfg.EmbeddingDimensions),
			googleai.WithHTTPClient(httpClient),
		)
		if err != nil {
			return nil, fmt.Errorf("create google embedding client: %w", err)
		}

		return client, nil
	default:
		return nil, fmt.Errorf("%w: %s", errUnsupportedProvider, cfg.EmbeddingProvider)
	}
}

// newTextGenerator builds the explanation generator, or returns nil for templated reasons only.
func newTextGenerator(ctx context.Context, cfg *config.Config, httpClient *http.Client) (service.TextGenerator, error) {
	switch enabledProvider("explanations", cfg.ExplanationProvider) {
	case "":
		return nil, nil //nolint:nilnil // provider disabled
	case providerOpenAI:
		return openai.NewExplainer(cfg.ExplanationProviderAPIKey,
			openai.WithModel(cfg.ExplanationModel),
			openai.WithMaxTokens(cfg.ExplanationMaxTokens),
			openai.WithHTTPClient(httpClient),
		), nil
	case providerGoogle:
		explainer, err := googleai.NewExplainer(ctx, cfg.ExplanationProviderAPIKey,
			googleai.WithModel(cfg.ExplanationModel),
			googleai.WithMaxTokens(cfg.ExplanationMaxTokens),
			googleai.WithHTTPClient(httpClient),
		)
		if err != nil {
			return nil, fmt.Errorf("create google explainer: %w", err)
		}

		return explainer, nil
	default:
		return nil, fmt.Errorf("%w: %s", errUnsupportedProvider, cfg.ExplanationProvider)
	}
}

// embeddingModelForDB names the model stored next to session and profile embeddings; "default" when
// the provider default is used.
func embeddingModelForDB(cfg *config.Config) string {
	if cfg.EmbeddingModel == "" {
		return "default"
	}

	return cfg.EmbeddingModel
}
