package app

import (
	"context"

	"github.com/MrWong99/halidom/internal/config"
	"github.com/MrWong99/halidom/internal/entity"
)

// DefaultRegistry returns a registry with the built-in source kinds.
func DefaultRegistry() *config.Registry {
	r := config.NewRegistry()
	r.RegisterSource(config.SourceYAML, func(_ context.Context, sc config.SourceConfig) (entity.Source, func(), error) {
		return entity.NewFileSource(sc.Paths...), nil, nil
	})
	r.RegisterSource(config.SourcePostgres, func(ctx context.Context, sc config.SourceConfig) (entity.Source, func(), error) {
		src, pool, err := entity.OpenPostgres(ctx, sc.DSN)
		if err != nil {
			return nil, nil, err
		}
		return src, pool.Close, nil
	})
	return r
}
