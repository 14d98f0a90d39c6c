package dataset

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Load reads both datasets concurrently. An empty key leaves that dataset
// empty, which the scorers treat as "no data nearby".
func Load(ctx context.Context, src Source, pedestrianKey, transitKey string, logger *slog.Logger) (*Datasets, error) {
	ds := &Datasets{}
	g, gctx := errgroup.WithContext(ctx)

	if pedestrianKey != "" {
		g.Go(func() error {
			rc, err := src.Open(gctx, pedestrianKey)
			if err != nil {
				return err
			}
			defer rc.Close()
			recs, skipped, err := DecodePedestrianCounts(rc)
			if err != nil {
				return err
			}
			ds.Pedestrian = recs
			logger.Info("pedestrian counts loaded", "key", pedestrianKey, "records", len(recs), "skipped", skipped)
			return nil
		})
	}

	if transitKey != "" {
		g.Go(func() error {
			rc, err := src.Open(gctx, transitKey)
			if err != nil {
				return err
			}
			defer rc.Close()
			stops, skipped, err := DecodeTransitStops(rc)
			if err != nil {
				return err
			}
			ds.Transit = stops
			logger.Info("transit stops loaded", "key", transitKey, "records", len(stops), "skipped", skipped)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ds, nil
}
