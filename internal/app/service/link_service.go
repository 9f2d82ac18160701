package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/sifan077/PowerHook/internal/app/model"
	"github.com/sifan077/PowerHook/internal/app/repository"
	"go.uber.org/zap"
)

var (
	// ErrLinkExpired signals that the link exists but its TTL has elapsed.
	ErrLinkExpired = errors.New("link expired")
	// ErrInvalidCode signals a short code that cannot belong to any link.
	ErrInvalidCode = errors.New("invalid link code")
)

var codePattern = regexp.MustCompile(`^[0-9A-Za-z_-]{1,64}$`)

// ValidateCode rejects short codes with characters or lengths no link can have.
func ValidateCode(code string) error {
	if !codePattern.MatchString(code) {
		return ErrInvalidCode
	}
	return nil
}

// LinkService defines behaviour-level operations on capture links.
type LinkService interface {
	CreateLink(ctx context.Context) (*model.Link, error)
	GetLink(ctx context.Context, code string) (*model.Link, error)
	ListLinks(ctx context.Context) ([]model.Link, error)
	DeleteLink(ctx context.Context, code string) error
	SweepExpired(ctx context.Context) (int, error)
}

type linkService struct {
	repo repository.LinkRepository
	opts options
}

// NewLinkService returns a service implementation backed by the given repository.
func NewLinkService(repo repository.LinkRepository, opts ...Option) LinkService {
	return &linkService{repo: repo, opts: buildOptions(opts)}
}

func (s *linkService) CreateLink(ctx context.Context) (*model.Link, error) {
	link, err := s.repo.Create(ctx)
	if err != nil {
		return nil, fmt.Errorf("create link: %w", err)
	}
	s.opts.recorder.LinkCreated()
	s.opts.logger.Debug("link created",
		zap.String("code", link.Code),
		zap.Time("expires_at", link.ExpiresAt),
	)
	return link, nil
}

// GetLink returns ErrLinkExpired for a link past its expiry even if no sweep
// has removed it yet.
func (s *linkService) GetLink(ctx context.Context, code string) (*model.Link, error) {
	link, err := resolveLink(ctx, s.repo, s.opts.now(), code)
	if err != nil {
		return nil, fmt.Errorf("get link: %w", err)
	}
	return link, nil
}

// ListLinks sweeps expired links before listing so they never show up.
func (s *linkService) ListLinks(ctx context.Context) ([]model.Link, error) {
	if _, err := s.SweepExpired(ctx); err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}

	links, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	return links, nil
}

func (s *linkService) DeleteLink(ctx context.Context, code string) error {
	if err := ValidateCode(code); err != nil {
		return fmt.Errorf("delete link: %w", err)
	}

	deleted, err := s.repo.Delete(ctx, code)
	if err != nil {
		return fmt.Errorf("delete link: %w", err)
	}
	if !deleted {
		return fmt.Errorf("delete link: %w", repository.ErrLinkNotFound)
	}

	s.opts.recorder.LinksRemoved(1)
	s.opts.logger.Debug("link deleted", zap.String("code", code))
	return nil
}

func (s *linkService) SweepExpired(ctx context.Context) (int, error) {
	removed, err := s.repo.SweepExpired(ctx)
	if err != nil {
		return 0, fmt.Errorf("sweep expired links: %w", err)
	}
	if removed > 0 {
		s.opts.recorder.LinksRemoved(removed)
		s.opts.logger.Info("swept expired links", zap.Int("count", removed))
	}
	return removed, nil
}

func resolveLink(ctx context.Context, links repository.LinkRepository, now time.Time, code string) (*model.Link, error) {
	if err := ValidateCode(code); err != nil {
		return nil, err
	}

	link, err := links.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if link.Expired(now) {
		return nil, ErrLinkExpired
	}
	return link, nil
}
