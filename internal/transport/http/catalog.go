package http

import (
	"context"

	"napsidx/internal/index"
	"napsidx/internal/stations"
)

// Catalog is the read side of store.Catalog used by the API
type Catalog interface {
	Ping(ctx context.Context) error
	Counts(ctx context.Context) (entries, nStations int, err error)
	Index(ctx context.Context) (*index.Index, error)
	Station(ctx context.Context, siteID int) (stations.Station, error)
	Stations(ctx context.Context) ([]stations.Station, error)
}
