package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rentbooks/property_management_app/internal/apperrors"
	"github.com/rentbooks/property_management_app/internal/core/domain"
	portsrepo "github.com/rentbooks/property_management_app/internal/core/ports/repositories"
)

type propertyRepository struct {
	pool *pgxpool.Pool
}

// NewPropertyRepository creates the read-only property lookup used when
// validating candidate assignments.
func NewPropertyRepository(pool *pgxpool.Pool) portsrepo.PropertyRepository {
	return &propertyRepository{pool: pool}
}

var _ portsrepo.PropertyRepository = (*propertyRepository)(nil)

func (r *propertyRepository) FindPropertyByID(ctx context.Context, propertyID string) (*domain.Property, error) {
	query := `
		SELECT property_id, name, address, is_active, created_at, created_by, last_updated_at, last_updated_by
		FROM properties
		WHERE property_id = $1;
	`
	var property domain.Property
	err := r.pool.QueryRow(ctx, query, propertyID).Scan(
		&property.PropertyID,
		&property.Name,
		&property.Address,
		&property.IsActive,
		&property.CreatedAt,
		&property.CreatedBy,
		&property.LastUpdatedAt,
		&property.LastUpdatedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find property %s: %w", propertyID, err)
	}
	return &property, nil
}
