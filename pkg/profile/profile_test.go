package profile

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestRecordMatchRunningAverage(t *testing.T) {
	now := time.Now()
	p := &Profile{
		ID:            uuid.New(),
		MeetingCount:  1,
		AvgConfidence: 0.9,
	}

	p.RecordMatch(0.8, now)

	if p.MeetingCount != 2 {
		t.Errorf("meeting count %d, want 2", p.MeetingCount)
	}
	if math.Abs(p.AvgConfidence-0.85) > 1e-9 {
		t.Errorf("avg confidence %v, want 0.85", p.AvgConfidence)
	}
	if !p.LastSeenAt.Equal(now) {
		t.Errorf("last seen %v, want %v", p.LastSeenAt, now)
	}
}

func TestRecordMatchSeedsAverage(t *testing.T) {
	p := New([]float32{0.1, 0.2}, time.Now())
	if p.MeetingCount != 1 || p.AvgConfidence != 0 {
		t.Fatalf("fresh profile: count=%d avg=%v", p.MeetingCount, p.AvgConfidence)
	}

	p.RecordMatch(0.82, time.Now())
	if p.AvgConfidence != 0.82 {
		t.Errorf("first match should seed average, got %v", p.AvgConfidence)
	}
	if p.MeetingCount != 2 {
		t.Errorf("meeting count %d, want 2", p.MeetingCount)
	}
}

func TestCloneDoesNotAlias(t *testing.T) {
	p := New([]float32{1, 2, 3}, time.Now())
	cp := p.Clone()
	cp.Embedding[0] = 99
	if p.Embedding[0] == 99 {
		t.Error("clone shares embedding storage with original")
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	p := New([]float32{0.5, 0.5}, time.Now())
	if err := s.SaveProfile(ctx, p); err != nil {
		t.Fatal(err)
	}

	// Mutating the saved pointer must not leak into the store.
	p.MeetingCount = 99
	got, err := s.Get(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.MeetingCount != 1 {
		t.Errorf("store state mutated through caller pointer: count=%d", got.MeetingCount)
	}

	all, err := s.ActiveProfiles(ctx)
	if err != nil || len(all) != 1 {
		t.Fatalf("ActiveProfiles: %v, %d profiles", err, len(all))
	}
}

func TestMemoryStoreLinks(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	meeting := uuid.New()

	l := &Link{MeetingID: meeting, ProfileID: uuid.New(), MeetingSpeakerID: "SPEAKER_00", Confidence: 0.8}
	if err := s.SaveLink(ctx, l); err != nil {
		t.Fatal(err)
	}
	// Same (meeting, speaker) pair overwrites, never duplicates.
	l2 := *l
	l2.Confidence = 0.9
	if err := s.SaveLink(ctx, &l2); err != nil {
		t.Fatal(err)
	}

	links, err := s.Links(ctx, meeting)
	if err != nil {
		t.Fatal(err)
	}
	if len(links) != 1 {
		t.Fatalf("got %d links, want 1", len(links))
	}
	if links[0].Confidence != 0.9 {
		t.Errorf("confidence %v, want overwritten 0.9", links[0].Confidence)
	}
}

func TestBadgerStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewBadger(BadgerOptions{InMemory: true})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	p := New([]float32{0.1, 0.9, -0.3}, time.Now().UTC().Truncate(time.Second))
	p.AvgConfidence = 0.77
	if err := s.SaveProfile(ctx, p); err != nil {
		t.Fatal(err)
	}

	got, err := s.Get(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != p.ID || got.MeetingCount != p.MeetingCount || got.AvgConfidence != p.AvgConfidence {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, p)
	}
	if len(got.Embedding) != 3 || got.Embedding[1] != 0.9 {
		t.Errorf("embedding round trip mismatch: %v", got.Embedding)
	}

	if _, err := s.Get(ctx, uuid.New()); err != ErrNotFound {
		t.Errorf("missing profile: got %v, want ErrNotFound", err)
	}
}

func TestBadgerStoreLinksByMeeting(t *testing.T) {
	ctx := context.Background()
	s, err := NewBadger(BadgerOptions{InMemory: true})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	m1, m2 := uuid.New(), uuid.New()
	for _, l := range []*Link{
		{MeetingID: m1, ProfileID: uuid.New(), MeetingSpeakerID: "SPEAKER_00", Confidence: 1.0},
		{MeetingID: m1, ProfileID: uuid.New(), MeetingSpeakerID: "SPEAKER_01", Confidence: 0.81},
		{MeetingID: m2, ProfileID: uuid.New(), MeetingSpeakerID: "SPEAKER_00", Confidence: 0.93},
	} {
		if err := s.SaveLink(ctx, l); err != nil {
			t.Fatal(err)
		}
	}

	links, err := s.Links(ctx, m1)
	if err != nil {
		t.Fatal(err)
	}
	if len(links) != 2 {
		t.Errorf("meeting 1: got %d links, want 2", len(links))
	}
}

func TestLockerSerializesPerProfile(t *testing.T) {
	locker := NewLocker()
	id := uuid.New()

	var mu sync.Mutex
	counter := 0
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locker.Lock(id)
			defer unlock()
			// Read-modify-write that would race without the lock.
			mu.Lock()
			c := counter
			mu.Unlock()
			mu.Lock()
			counter = c + 1
			mu.Unlock()
		}()
	}
	wg.Wait()
	if counter != 50 {
		t.Errorf("lost updates: counter=%d, want 50", counter)
	}
}
