package repository

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sifan077/PowerHook/internal/app/model"
)

// Options configures a MemoryStore.
type Options struct {
	Now                func() time.Time
	CodeLength         int
	CodeFilterCapacity uint
}

// MemoryStore keeps links and their captured requests in process memory. One
// lock covers both maps so that deleting a link and dropping its log happen as
// a single step for every other caller.
type MemoryStore struct {
	mu       sync.RWMutex
	links    map[string]model.Link
	requests map[string][]model.CapturedRequest
	codes    *CodeGenerator
	now      func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore(opts Options) *MemoryStore {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		links:    make(map[string]model.Link),
		requests: make(map[string][]model.CapturedRequest),
		codes:    NewCodeGenerator(opts.CodeLength, opts.CodeFilterCapacity),
		now:      now,
	}
}

// Links returns the LinkRepository view of the store.
func (s *MemoryStore) Links() LinkRepository {
	return &linkRepository{store: s}
}

// Captures returns the CaptureRepository view of the store.
func (s *MemoryStore) Captures() CaptureRepository {
	return &captureRepository{store: s}
}

// deleteLocked removes a link and its log. Callers hold s.mu for writing.
func (s *MemoryStore) deleteLocked(code string) bool {
	_, ok := s.links[code]
	delete(s.links, code)
	delete(s.requests, code)
	return ok
}

type linkRepository struct {
	store *MemoryStore
}

func (r *linkRepository) Create(_ context.Context) (*model.Link, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	code, err := s.codes.Next(func(code string) bool {
		_, exists := s.links[code]
		return exists
	})
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	link := model.Link{
		ID:        uuid.New().String(),
		Code:      code,
		CreatedAt: now,
		ExpiresAt: now.Add(model.LinkTTL),
	}
	s.links[code] = link
	s.requests[code] = []model.CapturedRequest{}

	return &link, nil
}

func (r *linkRepository) GetByCode(_ context.Context, code string) (*model.Link, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	link, ok := s.links[code]
	if !ok {
		return nil, ErrLinkNotFound
	}
	return &link, nil
}

func (r *linkRepository) List(_ context.Context) ([]model.Link, error) {
	s := r.store
	s.mu.RLock()
	result := make([]model.Link, 0, len(s.links))
	for _, link := range s.links {
		result = append(result, link)
	}
	s.mu.RUnlock()

	slices.SortFunc(result, func(a, b model.Link) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.Code, a.Code)
	})
	return result, nil
}

func (r *linkRepository) Delete(_ context.Context, code string) (bool, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.deleteLocked(code), nil
}

func (r *linkRepository) SweepExpired(_ context.Context) (int, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for code, link := range s.links {
		if link.Expired(now) {
			s.deleteLocked(code)
			removed++
		}
	}
	return removed, nil
}

type captureRepository struct {
	store *MemoryStore
}

func (r *captureRepository) Append(_ context.Context, req *model.CapturedRequest) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, ok := s.requests[req.LinkCode]
	if !ok {
		return ErrLinkNotFound
	}
	s.requests[req.LinkCode] = append(entries, *req)
	return nil
}

func (r *captureRepository) List(_ context.Context, code string) ([]model.CapturedRequest, error) {
	s := r.store
	s.mu.RLock()
	entries := s.requests[code]
	result := make([]model.CapturedRequest, len(entries))
	// Newest appended first, so equal timestamps keep a fixed order.
	for i, req := range entries {
		result[len(entries)-1-i] = req
	}
	s.mu.RUnlock()

	slices.SortStableFunc(result, func(a, b model.CapturedRequest) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return result, nil
}

func (r *captureRepository) Clear(_ context.Context, code string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.requests[code]; !ok {
		return ErrLinkNotFound
	}
	s.requests[code] = []model.CapturedRequest{}
	return nil
}

func (r *captureRepository) DeleteAll(_ context.Context, code string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.requests, code)
	return nil
}
