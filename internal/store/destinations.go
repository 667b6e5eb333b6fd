package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/af-corp/wayfinder/internal/types"
)

const destinationColumns = `id, name, country, latitude, longitude, COALESCE(description, ''), created_at`

type DestinationStore struct {
	db DBTX
}

func NewDestinationStore(db DBTX) *DestinationStore {
	return &DestinationStore{db: db}
}

// listDestinationsQuery returns the SQL and arguments for List. An empty
// country lists every destination.
func listDestinationsQuery(country string) (string, []any) {
	q := `SELECT ` + destinationColumns + ` FROM destinations`
	if country == "" {
		return q + ` ORDER BY id`, nil
	}
	return q + ` WHERE country = $1 ORDER BY id`, []any{country}
}

func scanDestination(row pgx.CollectableRow) (types.Destination, error) {
	var d types.Destination
	err := row.Scan(&d.ID, &d.Name, &d.Country, &d.Latitude, &d.Longitude, &d.Description, &d.CreatedAt)
	return d, err
}

func (s *DestinationStore) List(ctx context.Context, country string) ([]types.Destination, error) {
	q, args := listDestinationsQuery(country)
	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query destinations: %w", err)
	}
	out, err := pgx.CollectRows(rows, scanDestination)
	if err != nil {
		return nil, fmt.Errorf("scan destinations: %w", err)
	}
	return out, nil
}

// findByNameQuery matches names case-insensitively and prefers an exact match.
const findByNameQuery = `SELECT ` + destinationColumns + ` FROM destinations
WHERE lower(name) = lower($1)
ORDER BY name = $1 DESC, id
LIMIT 1`

// FindByName returns the destination with this name, ignoring case, or
// ErrNotFound.
func (s *DestinationStore) FindByName(ctx context.Context, name string) (*types.Destination, error) {
	return s.one(ctx, findByNameQuery, name)
}

func (s *DestinationStore) one(ctx context.Context, q string, args ...any) (*types.Destination, error) {
	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query destination: %w", err)
	}
	d, err := pgx.CollectExactlyOneRow(rows, scanDestination)
	if err != nil {
		return nil, notFound(err)
	}
	return &d, nil
}
