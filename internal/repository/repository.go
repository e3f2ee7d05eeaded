package repository

import (
	"context"
	"errors"

	"intratel/internal/domain"
)

// ErrLabNotFound is returned when no lab has the requested name
var ErrLabNotFound = errors.New("lab not found")

// LabRepository defines the interface for saved lab access
type LabRepository interface {
	// Read operations
	GetLab(ctx context.Context, name string) (*domain.Lab, error)
	ListLabs(ctx context.Context) ([]domain.Lab, error)

	// Write operations
	SaveLab(ctx context.Context, lab *domain.Lab) error
	DeleteLab(ctx context.Context, name string) error

	// Close releases resources
	Close() error
}
