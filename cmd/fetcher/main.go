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
		fx.Invoke(runPipeline),
	).Run()
}

// runPipeline executes one tracking cycle and shuts the app down when it
// finishes. A failed run exits non-zero so schedulers notice.
func runPipeline(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	pipeline *service.Pipeline,
	logger zerolog.Logger,
) {
	ctx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				err := pipeline.Run(ctx)
				if err != nil && !errors.Is(err, context.Canceled) {
					logger.Error().Err(err).Msg("tracking run failed")
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
