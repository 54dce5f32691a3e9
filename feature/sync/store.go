package sync

import (
	"context"
	"errors"
	"fmt"

	"membersync/feature/sync/models"

	"gorm.io/gorm"
)

// ErrConflict reports that an insert hit an existing primary key. The
// reconciler recovers by updating in place; it is never surfaced as a run
// failure.
var ErrConflict = errors.New("store: primary key conflict")

// Store is the per-entity-type CRUD surface the reconciler drives. The id is
// the only thing the engine knows about T.
type Store[T models.Entity] interface {
	ListAll(ctx context.Context) ([]T, error)
	Insert(ctx context.Context, item T) error
	Update(ctx context.Context, item T) error
	Delete(ctx context.Context, item T) error
}

// GormStore implements Store on a gorm table. An optional scope narrows every
// statement, which is how per-owner transaction stores are built without a
// table per owner.
type GormStore[T models.Entity] struct {
	db    *gorm.DB
	scope func(*gorm.DB) *gorm.DB
}

// NewStore creates a store over the entity's full table.
func NewStore[T models.Entity](db *gorm.DB) *GormStore[T] {
	return &GormStore[T]{db: db}
}

// NewScopedStore creates a store restricted by the given scope. Deletes and
// lists only see rows inside the scope, so reconciling one owner's
// transactions cannot touch a sibling's.
func NewScopedStore[T models.Entity](db *gorm.DB, scope func(*gorm.DB) *gorm.DB) *GormStore[T] {
	return &GormStore[T]{db: db, scope: scope}
}

func (s *GormStore[T]) session(ctx context.Context) *gorm.DB {
	tx := s.db.WithContext(ctx)
	if s.scope != nil {
		tx = s.scope(tx)
	}
	return tx
}

func (s *GormStore[T]) ListAll(ctx context.Context) ([]T, error) {
	var items []T
	if err := s.session(ctx).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("store list failed: %w", err)
	}
	return items, nil
}

func (s *GormStore[T]) Insert(ctx context.Context, item T) error {
	err := s.session(ctx).Create(&item).Error
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrConflict
	}
	return fmt.Errorf("store insert failed: %w", err)
}

func (s *GormStore[T]) Update(ctx context.Context, item T) error {
	// Save writes every column by primary key, replacing the stored content
	// with the latest fetched content.
	if err := s.session(ctx).Save(&item).Error; err != nil {
		return fmt.Errorf("store update failed: %w", err)
	}
	return nil
}

func (s *GormStore[T]) Delete(ctx context.Context, item T) error {
	if err := s.session(ctx).Delete(&item).Error; err != nil {
		return fmt.Errorf("store delete failed: %w", err)
	}
	return nil
}
