// Package repository provides a generic gorm-backed store for simple
// entity access. Integrity-sensitive writes use hand-written repositories
// instead.
package repository

import (
	"context"

	"github.com/saasbench/saasbench/pkg/db/option"
	"gorm.io/gorm"
)

// Repository is a typed CRUD store over one gorm model.
type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error)
	FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error)
	Create(ctx context.Context, resource *T) error
	Count(ctx context.Context, query *T) (int64, error)
	BatchCreate(ctx context.Context, resources []*T) error
}
