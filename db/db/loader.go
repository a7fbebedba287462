package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/vikstrous/dataloadgen"
)

type dataLoaderKey string

const (
	DataLoaderKeyTripData dataLoaderKey = "trip_data_loader"
)

// TripDataLoader batches trip reads made while serving one request.
type TripDataLoader struct {
	GetTripList *dataloadgen.Loader[uuid.UUID, *Trip]
}

func NewTripDataLoader(dbWrapper TripDBWrapper) *TripDataLoader {
	return &TripDataLoader{
		GetTripList: dataloadgen.NewMappedLoader(dbWrapper.DataLoaderGetTripList),
	}
}

// WithTripDataLoader attaches loader to ctx.
func WithTripDataLoader(ctx context.Context, loader *TripDataLoader) context.Context {
	return context.WithValue(ctx, DataLoaderKeyTripData, loader)
}

// TripDataLoaderFromContext returns the loader attached to ctx, if any.
func TripDataLoaderFromContext(ctx context.Context) (*TripDataLoader, bool) {
	loader, ok := ctx.Value(DataLoaderKeyTripData).(*TripDataLoader)
	return loader, ok && loader != nil
}
