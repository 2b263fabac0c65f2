package journal

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"mercator-hq/relay/pkg/providers"
	"mercator-hq/relay/pkg/providers/stub"
	"mercator-hq/relay/pkg/session"
)

// blockingStore holds every Append until release is closed.
type blockingStore struct {
	*MemoryStore
	release chan struct{}
	started chan struct{}
	once    sync.Once
}

func (b *blockingStore) Append(ctx context.Context, rec Record) error {
	b.once.Do(func() { close(b.started) })
	<-b.release
	return b.MemoryStore.Append(ctx, rec)
}

type failingStore struct{ *MemoryStore }

func (failingStore) Append(context.Context, Record) error { return errors.New("disk full") }

func summaryFor(id string) session.Summary {
	return session.Summary{
		Info:    session.Info{ID: id, Provider: "p", Model: "m", StartedAt: base},
		State:   session.Completed,
		EndedAt: base.Add(time.Second),
	}
}

func TestRecorder_WritesOnClose(t *testing.T) {
	store := NewMemoryStore(10)
	r := NewRecorder(store, 10)

	for _, id := range []string{"a", "b", "c"} {
		r.SessionEnded(summaryFor(id))
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if store.Len() != 3 {
		t.Errorf("stored = %d, want 3", store.Len())
	}
	if r.Dropped() != 0 {
		t.Errorf("Dropped() = %d, want 0", r.Dropped())
	}
}

func TestRecorder_DropsWhenFull(t *testing.T) {
	store := &blockingStore{
		MemoryStore: NewMemoryStore(10),
		release:     make(chan struct{}),
		started:     make(chan struct{}),
	}

	var drops atomic.Int32
	r := NewRecorder(store, 1, WithDropHandler(func() { drops.Add(1) }))

	// First record is taken by the worker, which then blocks in Append.
	r.SessionEnded(summaryFor("a"))
	<-store.started

	r.SessionEnded(summaryFor("b")) // fills the buffer
	r.SessionEnded(summaryFor("c")) // dropped
	r.SessionEnded(summaryFor("d")) // dropped

	if got := r.Dropped(); got != 2 {
		t.Errorf("Dropped() = %d, want 2", got)
	}
	if got := drops.Load(); got != 2 {
		t.Errorf("drop handler calls = %d, want 2", got)
	}

	close(store.release)
	r.Close()

	if store.Len() != 2 {
		t.Errorf("stored = %d, want 2", store.Len())
	}
}

func TestRecorder_AfterClose(t *testing.T) {
	r := NewRecorder(NewMemoryStore(1), 1)
	r.Close()
	r.Close()

	r.SessionEnded(summaryFor("late"))
	if r.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", r.Dropped())
	}
}

func TestRecorder_StoreErrorIsNotFatal(t *testing.T) {
	r := NewRecorder(failingStore{NewMemoryStore(1)}, 4)
	r.SessionEnded(summaryFor("a"))
	r.SessionEnded(summaryFor("b"))
	if err := r.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestRecorder_ObservesSession(t *testing.T) {
	store := NewMemoryStore(10)
	r := NewRecorder(store, 4)

	adapter, err := stub.New(providers.ProviderConfig{Name: "test-fail-mid", Type: stub.TypeFail})
	if err != nil {
		t.Fatal(err)
	}

	sess, err := session.Open(context.Background(), adapter, session.Request{
		RequestID: "req-1",
		Provider:  "test-fail-mid",
		Model:     "m",
		Messages:  []providers.Message{{Role: providers.RoleUser, Content: "hi"}},
	}, session.Options{Observer: r})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	for {
		if _, err := sess.Next(); err != nil {
			break
		}
	}
	sess.Close()
	r.Close()

	got, _ := store.List(context.Background(), Filter{})
	if len(got) != 1 {
		t.Fatalf("records = %d, want 1", len(got))
	}
	rec := got[0]
	if rec.State != "failed" || rec.Chunks != 1 || rec.RequestID != "req-1" {
		t.Errorf("record = %+v", rec)
	}
	if rec.ErrorKind != providers.KindUpstreamStream {
		t.Errorf("ErrorKind = %q, want %q", rec.ErrorKind, providers.KindUpstreamStream)
	}
}
