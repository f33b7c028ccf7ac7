package fx

import (
	"artist-tracker/internal/api"
	"artist-tracker/internal/auth"
	"artist-tracker/internal/config"
	"artist-tracker/internal/logger"
	"artist-tracker/internal/repository"
	"artist-tracker/internal/service"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func ProvideSecrets(cfg *config.Config, log zerolog.Logger) *auth.SecretsProvider {
	return auth.NewSecretsProvider(auth.DefaultEndpoints().SecretsURL, cfg.UserAgent, cfg.TOTPVersionPin, log)
}

func ProvideTokenManager(secrets *auth.SecretsProvider, cfg *config.Config, log zerolog.Logger) *auth.TokenManager {
	return auth.NewTokenManager(auth.DefaultEndpoints(), secrets, cfg.SpDC, cfg.UserAgent, log)
}

func ProvideAPIClient(tokens *auth.TokenManager, cfg *config.Config, log zerolog.Logger) *api.Client {
	return api.NewClient(api.DefaultEndpoints(), tokens, cfg.UserAgent, log)
}

func ProvideFetcher(client *api.Client, cfg *config.Config, log zerolog.Logger) *service.Fetcher {
	return service.NewFetcher(client, cfg.MaxConcurrent, cfg.MaxAttempts, log)
}

func ProvideRankingStore(cfg *config.Config, log zerolog.Logger) *repository.RankingStore {
	return repository.NewRankingStore(cfg.DataDir, log)
}

func ProvideChartIngest(client *api.Client, fetcher *service.Fetcher, cfg *config.Config, log zerolog.Logger) *service.ChartIngest {
	return service.NewChartIngest(client, fetcher, cfg.DataDir, log)
}

var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	// auth
	fx.Provide(ProvideSecrets),
	fx.Provide(ProvideTokenManager),
	// api client
	fx.Provide(ProvideAPIClient),
	fx.Provide(ProvideFetcher),
	// stores
	fx.Provide(ProvideRankingStore),
	// svc
	fx.Provide(service.NewPipeline),
	fx.Provide(ProvideChartIngest),
)
