package repository

import (
	"context"

	"github.com/sifan077/PowerHook/internal/app/model"
)

// CaptureRepository defines the data access contract for the per-link request log.
type CaptureRepository interface {
	Append(ctx context.Context, req *model.CapturedRequest) error
	List(ctx context.Context, code string) ([]model.CapturedRequest, error)
	Clear(ctx context.Context, code string) error
	DeleteAll(ctx context.Context, code string) error
}
