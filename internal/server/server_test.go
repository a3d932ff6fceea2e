package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/user/ytlive-tracker-go/internal/model"
)

// mockStore implements store.Store for handler tests.
type mockStore struct {
	pingErr error
	count   int64
}

func (m *mockStore) ApplySave(ctx context.Context, videos []*model.Video) ([]string, error) {
	return nil, nil
}

func (m *mockStore) ApplyUpdate(ctx context.Context, videos []*model.Video) (int, error) {
	return 0, nil
}

func (m *mockStore) ApplyChannelUpdate(ctx context.Context, channels []*model.Channel) (int, error) {
	return 0, nil
}

func (m *mockStore) SeedChannels(ctx context.Context, channels []*model.Channel) (int, error) {
	return 0, nil
}

func (m *mockStore) RefreshCandidates(ctx context.Context, now time.Time) ([]string, error) {
	return nil, nil
}

func (m *mockStore) ArchiveCandidates(ctx context.Context, limit int) ([]*model.Video, error) {
	return nil, nil
}

func (m *mockStore) MarkArchived(ctx context.Context, id string) error { return nil }

func (m *mockStore) UncrawledChannels(ctx context.Context) ([]*model.Channel, error) {
	return nil, nil
}

func (m *mockStore) AllChannels(ctx context.Context) ([]*model.Channel, error) {
	return nil, nil
}

func (m *mockStore) CountVideos(ctx context.Context) (int64, error) { return m.count, nil }

func (m *mockStore) Ping(ctx context.Context) error { return m.pingErr }

func (m *mockStore) Close() error { return nil }

func TestHandleHealth_OK(t *testing.T) {
	s := NewServer(&mockStore{count: 42})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("Status = %v, want ok", resp.Status)
	}
	if resp.Database != "ok" {
		t.Errorf("Database = %v, want ok", resp.Database)
	}
}

func TestHandleHealth_DatabaseUnreachable(t *testing.T) {
	s := NewServer(&mockStore{pingErr: errors.New("connection refused")})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}

	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "degraded" {
		t.Errorf("Status = %v, want degraded", resp.Status)
	}
	if resp.Database != "unreachable" {
		t.Errorf("Database = %v, want unreachable", resp.Database)
	}
}

func TestMetricsEndpointRegistered(t *testing.T) {
	s := NewServer(&mockStore{})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
