package weather

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/af-corp/wayfinder/internal/store"
	"github.com/af-corp/wayfinder/internal/types"
)

var ErrUnknownDestination = errors.New("weather: coordinates not found for destination")

type Coordinates struct {
	Latitude  float64
	Longitude float64
}

// knownCoordinates covers destinations that may be requested before they are
// stored. Keys are normalized with normalizeDestination.
var knownCoordinates = map[string]Coordinates{
	"tokyo": {Latitude: 35.6762, Longitude: 139.6503},
	"kyoto": {Latitude: 35.0116, Longitude: 135.7681},
}

// normalizeDestination is shared by the coordinate lookup and the cache key so
// that names differing only in case or surrounding space resolve alike.
func normalizeDestination(destination string) string {
	return strings.ToLower(strings.TrimSpace(destination))
}

// DestinationFinder is satisfied by *store.DestinationStore.
type DestinationFinder interface {
	FindByName(ctx context.Context, name string) (*types.Destination, error)
}

func (s *Service) coordinates(ctx context.Context, destination string) (Coordinates, error) {
	if s.finder != nil {
		d, err := s.finder.FindByName(ctx, strings.TrimSpace(destination))
		switch {
		case err == nil:
			return Coordinates{Latitude: d.Latitude, Longitude: d.Longitude}, nil
		case !errors.Is(err, store.ErrNotFound):
			s.logger.Warn("destination lookup failed, using built-in coordinates",
				"destination", destination, "error", err)
		}
	}
	if c, ok := knownCoordinates[normalizeDestination(destination)]; ok {
		return c, nil
	}
	return Coordinates{}, fmt.Errorf("%w: %s", ErrUnknownDestination, destination)
}
