package spanz

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// FXModule provides a *Tracer built from Config and closes it when the app stops.
// A *zap.Logger and a prometheus.Registerer are used when present in the graph.
//
//	app := fx.New(
//	    spanz.FXModule,
//	    fx.Provide(spanz.ConfigFromEnv),
//	)
var FXModule = fx.Module("spanz",
	fx.Provide(NewTracerFX),
	fx.Invoke(RegisterTracerLifecycle),
)

// TracerParams are the dependencies NewTracerFX draws from the fx graph.
type TracerParams struct {
	fx.In

	Config     Config
	Logger     *zap.Logger           `optional:"true"`
	Registerer prometheus.Registerer `optional:"true"`
}

// NewTracerFX adapts NewFromConfig to fx parameter injection.
func NewTracerFX(p TracerParams) (*Tracer, error) {
	return NewFromConfig(p.Config, p.Logger, p.Registerer)
}

// RegisterTracerLifecycle closes the tracer on application stop.
func RegisterTracerLifecycle(lc fx.Lifecycle, tracer *Tracer) {
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			tracer.logger.Info("shutting down tracer")
			tracer.Close()
			return nil
		},
	})
}
