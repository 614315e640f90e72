package collector

import (
	"context"

	"stockpipe/internal/model"
)

// Source defines the interface for fetching market data.
type Source interface {
	// FetchIntraday returns the latest trading day at one-minute resolution.
	FetchIntraday(ctx context.Context, symbol string) (*model.Frame, error)
	Name() string
}
