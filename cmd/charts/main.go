package main

import (
	"context"
	"errors"

	fxmodules "artist-tracker/internal/fx"
	"artist-tracker/internal/service"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func main() {
	fx.New(
		fxmodules.Module,
		fx.Invoke(runIngest),
	).Run()
}

// runIngest pulls the latest global charts into the tracked artist documents
// and exits. Meant to run right after the daily fetch.
func runIngest(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	ingest *service.ChartIngest,
	logger zerolog.Logger,
) {
	ctx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				err := ingest.Run(ctx)
				if err != nil && !errors.Is(err, context.Canceled) {
					logger.Error().Err(err).Msg("chart ingest failed")
					_ = shutdowner.Shutdown(fx.ExitCode(1))
					return
				}
				_ = shutdowner.Shutdown()
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}
