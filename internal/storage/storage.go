// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"

	"github.com/noobyalan/Multi-Platform-Social-Media-Content-Filter/internal/model"
)

// Repository is the interface for the durable material library. Saving is
// append-only: saving under an existing project name adds another row,
// never overwrites one.
type Repository interface {
	Save(ctx context.Context, m *model.Material) error
	List(ctx context.Context) ([]model.MaterialSummary, error)
	Get(ctx context.Context, materialID string) (*model.Material, error)
	Delete(ctx context.Context, materialID string) error
	Close() error
}
