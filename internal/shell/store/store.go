package store

import (
	"context"

	"github.com/artpar/stackd/internal/core/domain"
)

// =============================================================================
// Store Interface
// =============================================================================

// Store defines the persistence interface for stackd entities.
type Store interface {
	// Variant registry. UpsertVariant keys on the slug: the first
	// registration assigns identity, later ones refresh content in place.
	UpsertVariant(ctx context.Context, variant *domain.Variant) error
	GetVariant(ctx context.Context, slug string) (*domain.Variant, error)
	ListVariants(ctx context.Context, opts ListOptions) ([]domain.Variant, error)

	// Stack operations
	CreateStack(ctx context.Context, stack *domain.Stack) error
	GetStack(ctx context.Context, id string) (*domain.Stack, error)
	GetStackByName(ctx context.Context, name string) (*domain.Stack, error)
	UpdateStack(ctx context.Context, stack *domain.Stack) error
	DeleteStack(ctx context.Context, id string) error
	ListStacks(ctx context.Context, opts ListOptions) ([]domain.Stack, error)
	ListStacksByStatus(ctx context.Context, statuses ...domain.StackStatus) ([]domain.Stack, error)
	CountStacksByStatus(ctx context.Context) (map[domain.StackStatus]int, error)

	// Container event operations. Events are append-only; their insertion
	// order is the durable record of what started (and stopped) when.
	CreateEvent(ctx context.Context, event *domain.ContainerEvent) error
	ListEvents(ctx context.Context, stackID string, limit int, eventType *string) ([]domain.ContainerEvent, error)

	// Transaction support
	WithTx(ctx context.Context, fn func(Store) error) error

	// Lifecycle
	Close() error
}

// =============================================================================
// Options
// =============================================================================

// ListOptions defines pagination options.
type ListOptions struct {
	Limit  int
	Offset int
}

// DefaultListOptions returns default list options.
func DefaultListOptions() ListOptions {
	return ListOptions{
		Limit:  100,
		Offset: 0,
	}
}

// Normalize ensures list options have valid values.
func (o ListOptions) Normalize() ListOptions {
	if o.Limit <= 0 {
		o.Limit = 100
	}
	if o.Limit > 1000 {
		o.Limit = 1000
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}
