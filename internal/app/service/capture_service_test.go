package service

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/sifan077/PowerHook/internal/app/model"
	"github.com/sifan077/PowerHook/internal/app/repository"
)

type recordingPublisher struct {
	events chan model.CaptureEvent
}

func (p *recordingPublisher) Publish(event model.CaptureEvent) error {
	p.events <- event
	return nil
}

func TestCaptureService_Capture(t *testing.T) {
	clock := newFakeClock()
	links, captures := newStoreServices(clock)
	ctx := context.Background()

	link, err := links.CreateLink(ctx)
	if err != nil {
		t.Fatalf("CreateLink error: %v", err)
	}

	req, err := captures.Capture(ctx, link.Code, CaptureInput{
		Method:    "POST",
		Path:      "/hooks/github",
		Headers:   map[string]string{"content-type": "application/json"},
		Query:     map[string]string{"a": "1"},
		Body:      model.JSONBody([]byte(`{"ok":true}`)),
		IPAddress: "10.0.0.1",
	})
	if err != nil {
		t.Fatalf("Capture error: %v", err)
	}
	if req.ID == "" {
		t.Fatal("expected capture id")
	}
	if req.LinkCode != link.Code || req.Method != "POST" || req.Path != "/hooks/github" {
		t.Fatalf("unexpected capture: %+v", req)
	}
	if !req.Timestamp.Equal(clock.Now()) {
		t.Fatalf("expected timestamp %v, got %v", clock.Now(), req.Timestamp)
	}

	list, err := captures.ListRequests(ctx, link.Code)
	if err != nil {
		t.Fatalf("ListRequests error: %v", err)
	}
	if len(list) != 1 || list[0].ID != req.ID {
		t.Fatalf("expected captured request in log, got %+v", list)
	}
}

func TestCaptureService_CaptureDefaultsEmptyFields(t *testing.T) {
	links, captures := newStoreServices(newFakeClock())
	ctx := context.Background()
	link, _ := links.CreateLink(ctx)

	req, err := captures.Capture(ctx, link.Code, CaptureInput{Method: "GET"})
	if err != nil {
		t.Fatalf("Capture error: %v", err)
	}
	if req.Headers == nil || req.Query == nil {
		t.Fatal("expected non-nil headers and query")
	}
	if req.Body.Kind != model.BodyEmpty {
		t.Fatalf("expected empty body, got %s", req.Body.Kind)
	}
}

func TestCaptureService_CaptureRejectsUnknownAndExpired(t *testing.T) {
	clock := newFakeClock()
	links, captures := newStoreServices(clock)
	ctx := context.Background()

	if _, err := captures.Capture(ctx, "missing1", CaptureInput{Method: "POST"}); !errors.Is(err, repository.ErrLinkNotFound) {
		t.Fatalf("expected ErrLinkNotFound, got %v", err)
	}
	if _, err := captures.Capture(ctx, "bad code!", CaptureInput{Method: "POST"}); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode, got %v", err)
	}

	link, _ := links.CreateLink(ctx)
	clock.Set(link.ExpiresAt)

	if _, err := captures.Capture(ctx, link.Code, CaptureInput{Method: "POST"}); !errors.Is(err, ErrLinkExpired) {
		t.Fatalf("expected ErrLinkExpired, got %v", err)
	}

	// Nothing was recorded for the expired link.
	clock.Set(link.CreatedAt)
	list, err := captures.ListRequests(ctx, link.Code)
	if err != nil {
		t.Fatalf("ListRequests error: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected no captures, got %d", len(list))
	}
}

func TestCaptureService_OrderNewestFirst(t *testing.T) {
	clock := newFakeClock()
	links, captures := newStoreServices(clock)
	ctx := context.Background()
	link, _ := links.CreateLink(ctx)

	var ids []string
	for i := 0; i < 3; i++ {
		clock.Set(clock.Now().Add(time.Second))
		req, err := captures.Capture(ctx, link.Code, CaptureInput{Method: "POST"})
		if err != nil {
			t.Fatalf("Capture error: %v", err)
		}
		ids = append(ids, req.ID)
	}

	list, err := captures.ListRequests(ctx, link.Code)
	if err != nil {
		t.Fatalf("ListRequests error: %v", err)
	}
	if len(list) != 3 || list[0].ID != ids[2] || list[1].ID != ids[1] || list[2].ID != ids[0] {
		t.Fatalf("expected newest first, got %+v", list)
	}
}

func TestCaptureService_ClearVsDelete(t *testing.T) {
	links, captures := newStoreServices(newFakeClock())
	ctx := context.Background()
	link, _ := links.CreateLink(ctx)

	if _, err := captures.Capture(ctx, link.Code, CaptureInput{Method: "POST"}); err != nil {
		t.Fatalf("Capture error: %v", err)
	}
	if err := captures.ClearRequests(ctx, link.Code); err != nil {
		t.Fatalf("ClearRequests error: %v", err)
	}
	list, _ := captures.ListRequests(ctx, link.Code)
	if len(list) != 0 {
		t.Fatalf("expected empty log after clear, got %d", len(list))
	}
	if _, err := captures.Capture(ctx, link.Code, CaptureInput{Method: "PUT"}); err != nil {
		t.Fatalf("expected capture after clear to succeed, got %v", err)
	}

	if err := links.DeleteLink(ctx, link.Code); err != nil {
		t.Fatalf("DeleteLink error: %v", err)
	}
	if _, err := captures.ListRequests(ctx, link.Code); !errors.Is(err, repository.ErrLinkNotFound) {
		t.Fatalf("expected ErrLinkNotFound after delete, got %v", err)
	}
	if err := captures.ClearRequests(ctx, link.Code); !errors.Is(err, repository.ErrLinkNotFound) {
		t.Fatalf("expected ErrLinkNotFound on clear after delete, got %v", err)
	}
	if _, err := captures.Capture(ctx, link.Code, CaptureInput{Method: "POST"}); !errors.Is(err, repository.ErrLinkNotFound) {
		t.Fatalf("expected ErrLinkNotFound on capture after delete, got %v", err)
	}
}

func TestCaptureService_ConcurrentCaptures(t *testing.T) {
	links, captures := newStoreServices(newFakeClock())
	ctx := context.Background()
	link, _ := links.CreateLink(ctx)

	const n = 200
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := captures.Capture(ctx, link.Code, CaptureInput{Method: "POST"}); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("Capture error: %v", err)
	}

	list, err := captures.ListRequests(ctx, link.Code)
	if err != nil {
		t.Fatalf("ListRequests error: %v", err)
	}
	if len(list) != n {
		t.Fatalf("expected %d captures, got %d", n, len(list))
	}
	seen := make(map[string]struct{}, n)
	for _, r := range list {
		seen[r.ID] = struct{}{}
	}
	if len(seen) != n {
		t.Fatalf("expected %d distinct ids, got %d", n, len(seen))
	}
}

func TestCaptureService_PublishesEventAndRecords(t *testing.T) {
	clock := newFakeClock()
	store := repository.NewMemoryStore(repository.Options{Now: clock.Now, CodeFilterCapacity: 100})
	publisher := &recordingPublisher{events: make(chan model.CaptureEvent, 1)}
	recorder := &countingRecorder{}
	captures := NewCaptureService(store.Links(), store.Captures(),
		WithClock(clock.Now),
		WithPublisher(publisher),
		WithRecorder(recorder),
	)

	link, _ := store.Links().Create(context.Background())
	req, err := captures.Capture(context.Background(), link.Code, CaptureInput{
		Method: "PATCH",
		Body:   model.TextBody("hello"),
	})
	if err != nil {
		t.Fatalf("Capture error: %v", err)
	}

	select {
	case event := <-publisher.events:
		if event.ID != req.ID || event.LinkCode != link.Code || event.BodySize != 5 || event.BodyType != model.BodyText {
			t.Fatalf("unexpected event: %+v", event)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("capture event was not published")
	}

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	if recorder.captured["PATCH"] != 1 {
		t.Fatalf("expected PATCH capture recorded, got %v", recorder.captured)
	}
}

type blockingPublisher struct {
	release   chan struct{}
	mu        sync.Mutex
	published int
}

func (p *blockingPublisher) Publish(event model.CaptureEvent) error {
	<-p.release
	p.mu.Lock()
	p.published++
	p.mu.Unlock()
	return nil
}

func (p *blockingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.published
}

func TestCaptureService_StalledPublisherDoesNotBlockOrGrow(t *testing.T) {
	clock := newFakeClock()
	store := repository.NewMemoryStore(repository.Options{Now: clock.Now, CodeFilterCapacity: 100})
	publisher := &blockingPublisher{release: make(chan struct{})}
	const queue = 4
	captures := NewCaptureService(store.Links(), store.Captures(),
		WithClock(clock.Now),
		WithPublisher(publisher),
		WithPublishQueue(queue),
	)

	link, _ := store.Links().Create(context.Background())
	before := runtime.NumGoroutine()

	const n = 500
	done := make(chan error, 1)
	go func() {
		for i := 0; i < n; i++ {
			if _, err := captures.Capture(context.Background(), link.Code, CaptureInput{Method: "POST"}); err != nil {
				done <- err
				return
			}
		}
		done <- nil
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Capture error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("captures blocked on a stalled publisher")
	}

	if grown := runtime.NumGoroutine() - before; grown > 2 {
		t.Fatalf("expected no goroutine growth per capture, grew by %d", grown)
	}

	list, err := captures.ListRequests(context.Background(), link.Code)
	if err != nil {
		t.Fatalf("ListRequests error: %v", err)
	}
	if len(list) != n {
		t.Fatalf("expected %d captures stored, got %d", n, len(list))
	}

	close(publisher.release)
	deadline := time.Now().Add(2 * time.Second)
	for publisher.count() < queue && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	// One event in flight plus a full queue; the rest were dropped.
	if got := publisher.count(); got < queue || got > queue+1 {
		t.Fatalf("expected %d or %d published events, got %d", queue, queue+1, got)
	}
}
