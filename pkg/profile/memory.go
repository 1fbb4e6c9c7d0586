package profile

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Memory is an in-memory Store. Data is lost on restart; suitable for
// testing or ephemeral use.
type Memory struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]*Profile
	links    map[uuid.UUID]map[string]*Link // meeting → meeting speaker → link
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		profiles: make(map[uuid.UUID]*Profile),
		links:    make(map[uuid.UUID]map[string]*Link),
	}
}

var _ Store = (*Memory)(nil)

func (m *Memory) ActiveProfiles(_ context.Context) ([]*Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Profile, 0, len(m.profiles))
	for _, p := range m.profiles {
		out = append(out, p.Clone())
	}
	return out, nil
}

func (m *Memory) SaveProfile(_ context.Context, p *Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.ID] = p.Clone()
	return nil
}

func (m *Memory) SaveLink(_ context.Context, l *Link) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	byMeeting := m.links[l.MeetingID]
	if byMeeting == nil {
		byMeeting = make(map[string]*Link)
		m.links[l.MeetingID] = byMeeting
	}
	cp := *l
	byMeeting[l.MeetingSpeakerID] = &cp
	return nil
}

func (m *Memory) Links(_ context.Context, meetingID uuid.UUID) ([]*Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Link, 0, len(m.links[meetingID]))
	for _, l := range m.links[meetingID] {
		cp := *l
		out = append(out, &cp)
	}
	return out, nil
}

func (m *Memory) Get(_ context.Context, id uuid.UUID) (*Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p.Clone(), nil
}

func (m *Memory) Close() error { return nil }
