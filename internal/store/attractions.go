package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/af-corp/wayfinder/internal/types"
)

const attractionColumns = `id, destination_id, name, type, COALESCE(description, ''), interests, estimated_cost, recommended_duration`

type AttractionStore struct {
	db DBTX
}

func NewAttractionStore(db DBTX) *AttractionStore {
	return &AttractionStore{db: db}
}

// attractionsByDestinationQuery narrows to attractions sharing at least one
// interest when interests is non-empty.
func attractionsByDestinationQuery(destinationID int64, interests []string) (string, []any) {
	q := `SELECT ` + attractionColumns + ` FROM attractions WHERE destination_id = $1`
	args := []any{destinationID}
	if len(interests) > 0 {
		q += ` AND interests && $2`
		args = append(args, interests)
	}
	return q + ` ORDER BY id`, args
}

func scanAttraction(row pgx.CollectableRow) (types.Attraction, error) {
	var a types.Attraction
	err := row.Scan(&a.ID, &a.DestinationID, &a.Name, &a.Type, &a.Description,
		&a.Interests, &a.EstimatedCost, &a.RecommendedDuration)
	if a.Interests == nil {
		a.Interests = []string{}
	}
	return a, err
}

func (s *AttractionStore) FindByDestination(ctx context.Context, destinationID int64, interests []string) ([]types.Attraction, error) {
	q, args := attractionsByDestinationQuery(destinationID, interests)
	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query attractions: %w", err)
	}
	out, err := pgx.CollectRows(rows, scanAttraction)
	if err != nil {
		return nil, fmt.Errorf("scan attractions: %w", err)
	}
	return out, nil
}

func (s *AttractionStore) Get(ctx context.Context, id int64) (*types.Attraction, error) {
	rows, err := s.db.Query(ctx, `SELECT `+attractionColumns+` FROM attractions WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("query attraction: %w", err)
	}
	a, err := pgx.CollectExactlyOneRow(rows, scanAttraction)
	if err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

