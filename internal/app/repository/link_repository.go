package repository

import (
	"context"
	"errors"

	"github.com/sifan077/PowerHook/internal/app/model"
)

var (
	// ErrLinkNotFound signals that the requested link does not exist.
	ErrLinkNotFound = errors.New("link not found")
	// ErrCodeExhausted signals that no free short code could be generated.
	ErrCodeExhausted = errors.New("no free short code available")
)

// LinkRepository defines the data access contract for capture links.
type LinkRepository interface {
	Create(ctx context.Context) (*model.Link, error)
	GetByCode(ctx context.Context, code string) (*model.Link, error)
	List(ctx context.Context) ([]model.Link, error)
	Delete(ctx context.Context, code string) (bool, error)
	SweepExpired(ctx context.Context) (int, error)
}
