package providers

import (
	"fmt"
	"rsd/internal/models"
	"rsd/internal/structures"
)

// NewSourceProvider turns validated source configuration into domain sources.
func NewSourceProvider(conf *structures.Config) ([]models.Source, error) {
	sources := make([]models.Source, 0, len(conf.Sources))
	for _, sc := range conf.Sources {
		region, ok := models.ParseRegion(sc.Region)
		if !ok {
			return nil, fmt.Errorf("source %s: unknown region %q", sc.Provider, sc.Region)
		}
		sources = append(sources, models.Source{
			Provider: sc.Provider,
			Region:   region,
			Interval: sc.Interval,
			URL:      sc.URL,
		})
	}
	return sources, nil
}
