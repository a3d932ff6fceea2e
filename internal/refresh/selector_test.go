package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/user/ytlive-tracker-go/internal/model"
	"google.golang.org/api/youtube/v3"
)

type mockCandidateStore struct {
	ids []string
	err error
}

func (m *mockCandidateStore) RefreshCandidates(ctx context.Context, now time.Time) ([]string, error) {
	return m.ids, m.err
}

// mockDetailsAPI answers every id except those in drop, simulating videos the
// platform stopped serving. Batches listed in failAt error out entirely.
type mockDetailsAPI struct {
	mu     sync.Mutex
	drop   map[string]bool
	failAt map[string]bool // keyed by the first id of the batch

	batchSizes []int
}

func (m *mockDetailsAPI) VideoDetails(ctx context.Context, ids []string) ([]*youtube.Video, error) {
	m.mu.Lock()
	m.batchSizes = append(m.batchSizes, len(ids))
	m.mu.Unlock()

	if len(ids) > 0 && m.failAt[ids[0]] {
		return nil, errors.New("backend error")
	}

	items := make([]*youtube.Video, 0, len(ids))
	for _, id := range ids {
		if m.drop[id] {
			continue
		}
		items = append(items, &youtube.Video{
			Id:      id,
			Snippet: &youtube.VideoSnippet{Title: "Video " + id, PublishedAt: "2024-03-01T10:00:00Z"},
			LiveStreamingDetails: &youtube.VideoLiveStreamingDetails{
				ScheduledStartTime: "2024-03-01T12:00:00Z",
				ActualStartTime:    "2024-03-01T12:01:00Z",
			},
		})
	}
	return items, nil
}

type mockUpdatePublisher struct {
	mu      sync.Mutex
	batches [][]*model.Video
}

func (m *mockUpdatePublisher) PublishUpdateVideos(videos []*model.Video) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, videos)
}

func makeIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("vid-%03d", i)
	}
	return ids
}

func TestSelector_Run_BatchesByUpstreamLimit(t *testing.T) {
	store := &mockCandidateStore{ids: makeIDs(120)}
	api := &mockDetailsAPI{}
	bus := &mockUpdatePublisher{}
	s := NewSelector(store, api, bus, nil)

	count, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if count != 120 {
		t.Errorf("count = %d, want 120", count)
	}

	sizes := map[int]int{}
	for _, n := range api.batchSizes {
		sizes[n]++
	}
	if len(api.batchSizes) != 3 || sizes[50] != 2 || sizes[20] != 1 {
		t.Errorf("batch sizes = %v, want two of 50 and one of 20", api.batchSizes)
	}

	// One update event for the whole run.
	if len(bus.batches) != 1 {
		t.Fatalf("published %d batches, want 1", len(bus.batches))
	}
	if len(bus.batches[0]) != 120 {
		t.Errorf("batch size = %d, want 120", len(bus.batches[0]))
	}
}

func TestSelector_Run_SynthesizesMissingRecords(t *testing.T) {
	store := &mockCandidateStore{ids: []string{"a", "b", "c"}}
	api := &mockDetailsAPI{drop: map[string]bool{"b": true}}
	bus := &mockUpdatePublisher{}
	s := NewSelector(store, api, bus, nil)

	count, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}

	if len(bus.batches) != 1 {
		t.Fatalf("published %d batches, want 1", len(bus.batches))
	}

	byID := map[string]*model.Video{}
	for _, v := range bus.batches[0] {
		byID[v.ID] = v
	}

	if byID["a"].Status != model.StatusLive {
		t.Errorf("a: Status = %v, want live", byID["a"].Status)
	}
	if byID["b"].Status != model.StatusMissing {
		t.Errorf("b: Status = %v, want missing", byID["b"].Status)
	}
	if byID["b"].Title != "" {
		t.Errorf("b: missing record must stay minimal, got title %q", byID["b"].Title)
	}
	if byID["c"].Status != model.StatusLive {
		t.Errorf("c: Status = %v, want live", byID["c"].Status)
	}
}

func TestSelector_Run_FailedBatchSkippedWithoutMissing(t *testing.T) {
	ids := makeIDs(60)
	store := &mockCandidateStore{ids: ids}
	// The second batch (starting at vid-050) fails outright.
	api := &mockDetailsAPI{failAt: map[string]bool{"vid-050": true}}
	bus := &mockUpdatePublisher{}
	s := NewSelector(store, api, bus, nil)

	count, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if count != 50 {
		t.Errorf("count = %d, want 50 from the surviving batch", count)
	}

	if len(bus.batches) != 1 {
		t.Fatalf("published %d batches, want 1", len(bus.batches))
	}
	// Absence is only concluded from a successful response: no record from
	// the failed batch may appear, missing or otherwise.
	for _, v := range bus.batches[0] {
		if v.ID >= "vid-050" {
			t.Fatalf("video %s from the failed batch leaked into the update", v.ID)
		}
	}
}

func TestSelector_Run_NoCandidates(t *testing.T) {
	s := NewSelector(&mockCandidateStore{}, &mockDetailsAPI{}, &mockUpdatePublisher{}, nil)

	count, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
}

func TestSelector_Run_StoreErrorPropagates(t *testing.T) {
	store := &mockCandidateStore{err: errors.New("connection lost")}
	bus := &mockUpdatePublisher{}
	s := NewSelector(store, &mockDetailsAPI{}, bus, nil)

	if _, err := s.Run(context.Background()); err == nil {
		t.Fatal("Run() expected error from store")
	}
	if len(bus.batches) != 0 {
		t.Errorf("published %d batches, want none", len(bus.batches))
	}
}

func TestChunk(t *testing.T) {
	tests := []struct {
		n    int
		want []int
	}{
		{0, nil},
		{1, []int{1}},
		{50, []int{50}},
		{51, []int{50, 1}},
		{120, []int{50, 50, 20}},
	}

	for _, tt := range tests {
		batches := chunk(makeIDs(tt.n), 50)
		if len(batches) != len(tt.want) {
			t.Errorf("chunk(%d): %d batches, want %d", tt.n, len(batches), len(tt.want))
			continue
		}
		for i, batch := range batches {
			if len(batch) != tt.want[i] {
				t.Errorf("chunk(%d): batch %d size %d, want %d", tt.n, i, len(batch), tt.want[i])
			}
		}
	}
}
