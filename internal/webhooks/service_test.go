package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ── Stub store ──────────────────────────────────────────────────────────

type stubStore struct {
	mu         sync.Mutex
	subs       []*WebhookSubscription
	deliveries []*WebhookDelivery
}

func (s *stubStore) Create(_ context.Context, sub *WebhookSubscription) error {
	sub.ID = uuid.New()
	sub.Active = true
	s.subs = append(s.subs, sub)
	return nil
}

func (s *stubStore) GetByID(_ context.Context, id uuid.UUID) (*WebhookSubscription, error) {
	for _, sub := range s.subs {
		if sub.ID == id {
			return sub, nil
		}
	}
	return nil, ErrNotFound
}

func (s *stubStore) Delete(_ context.Context, id uuid.UUID) error {
	for i, sub := range s.subs {
		if sub.ID == id {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (s *stubStore) ListByOwner(_ context.Context, owner string) ([]*WebhookSubscription, error) {
	var out []*WebhookSubscription
	for _, sub := range s.subs {
		if sub.Owner == owner {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (s *stubStore) ListByEvent(_ context.Context, eventType string) ([]*WebhookSubscription, error) {
	var out []*WebhookSubscription
	for _, sub := range s.subs {
		for _, ev := range sub.Events {
			if ev == eventType && sub.Active {
				out = append(out, sub)
			}
		}
	}
	return out, nil
}

func (s *stubStore) RecordDelivery(_ context.Context, d *WebhookDelivery) error {
	s.mu.Lock()
	s.deliveries = append(s.deliveries, d)
	s.mu.Unlock()
	return nil
}

func newTestService(store *stubStore) *Service {
	return &Service{
		repo:       store,
		httpClient: &http.Client{Timeout: 2 * time.Second},
		logger:     zap.NewNop(),
	}
}

// ── Tests ───────────────────────────────────────────────────────────────

func TestDispatch_outlivesCallerContext(t *testing.T) {
	delivered := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		delivered <- string(body)
	}))
	defer srv.Close()

	store := &stubStore{subs: []*WebhookSubscription{{
		ID:     uuid.New(),
		URL:    srv.URL,
		Events: []string{EventTransactionAccepted},
		Secret: "topsecret",
		Active: true,
	}}}
	svc := newTestService(store)

	// Dispatch happens at the tail of a verify request; its context is
	// canceled as soon as the handler writes the response.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc.Dispatch(ctx, EventTransactionAccepted, map[string]string{"tx_digest": "deadbeef"})

	select {
	case body := <-delivered:
		if body == "" {
			t.Error("expected a non-empty event body")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("delivery never arrived after the caller's context was canceled")
	}
}

func TestDispatch_signsPayload(t *testing.T) {
	type received struct {
		signature string
		body      []byte
	}
	got := make(chan received, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got <- received{signature: r.Header.Get("X-Indenture-Signature"), body: body}
	}))
	defer srv.Close()

	secret := "topsecret"
	store := &stubStore{subs: []*WebhookSubscription{{
		ID:     uuid.New(),
		URL:    srv.URL,
		Events: []string{EventTransactionRejected},
		Secret: secret,
		Active: true,
	}}}
	svc := newTestService(store)

	svc.Dispatch(context.Background(), EventTransactionRejected, map[string]string{"violation_code": "signer"})

	var r received
	select {
	case r = <-got:
	case <-time.After(2 * time.Second):
		t.Fatal("delivery never arrived")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(r.body)
	want := "sha256=" + hex.EncodeToString(mac.Sum(nil))
	if r.signature != want {
		t.Errorf("signature: got %q, want %q", r.signature, want)
	}
}

func TestDispatch_recordsDelivery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	store := &stubStore{subs: []*WebhookSubscription{{
		ID:     uuid.New(),
		URL:    srv.URL,
		Events: []string{EventTransactionAccepted},
		Secret: "s",
		Active: true,
	}}}
	svc := newTestService(store)

	var success bool
	done := make(chan struct{}, 1)
	svc.SetMetricsRecorder(func(ok bool) {
		success = ok
		done <- struct{}{}
	})

	svc.Dispatch(context.Background(), EventTransactionAccepted, map[string]string{"tx_digest": "d"})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("delivery never completed")
	}
	if !success {
		t.Error("expected a successful delivery")
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.deliveries) != 1 {
		t.Fatalf("expected 1 recorded delivery, got %d", len(store.deliveries))
	}
	if d := store.deliveries[0]; !d.Success || d.Attempt != 1 {
		t.Errorf("delivery record: success=%v attempt=%d", d.Success, d.Attempt)
	}
}

func TestSubscribe_rejectsUnknownEvent(t *testing.T) {
	svc := newTestService(&stubStore{})

	_, err := svc.Subscribe(context.Background(), "ops@example.com", &CreateSubscriptionRequest{
		URL:    "https://example.com/hook",
		Events: []string{"transaction.settled"},
	})
	if err == nil {
		t.Fatal("expected error for unknown event type")
	}
}

func TestUnsubscribe_checksOwnership(t *testing.T) {
	store := &stubStore{}
	svc := newTestService(store)

	sub, err := svc.Subscribe(context.Background(), "alice", &CreateSubscriptionRequest{
		URL:    "https://example.com/hook",
		Events: []string{EventTransactionAccepted},
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.Unsubscribe(context.Background(), "mallory", sub.ID); err == nil {
		t.Error("expected ownership error for foreign subscription")
	}
	if err := svc.Unsubscribe(context.Background(), "alice", sub.ID); err != nil {
		t.Errorf("owner delete failed: %v", err)
	}
}
