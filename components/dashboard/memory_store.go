package dashboard

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory DashboardStore used in tests and demos. It
// enforces the same invariants as persistent stores: at most one default per
// user and unique share tokens.
type MemoryStore struct {
	mu         sync.RWMutex
	dashboards map[string]Dashboard
	now        func() time.Time
}

// MemoryStoreOption customizes store construction.
type MemoryStoreOption func(*MemoryStore)

// WithMemoryClock overrides the timestamp source.
func WithMemoryClock(now func() time.Time) MemoryStoreOption {
	return func(s *MemoryStore) {
		s.now = now
	}
}

// NewMemoryStore builds an empty in-memory store.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	s := &MemoryStore{
		dashboards: make(map[string]Dashboard),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create implements DashboardStore.
func (s *MemoryStore) Create(ctx context.Context, d Dashboard) (Dashboard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	now := s.now()
	d.CreatedAt = now
	d.UpdatedAt = now
	if d.IsDefault {
		s.clearDefaultLocked(d.UserID)
	}
	s.dashboards[d.ID] = cloneDashboard(d)
	return d, nil
}

// Update implements DashboardStore.
func (s *MemoryStore) Update(ctx context.Context, d Dashboard) (Dashboard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.dashboards[d.ID]
	if !ok {
		return Dashboard{}, ErrDashboardNotFound
	}
	d.CreatedAt = existing.CreatedAt
	d.UpdatedAt = s.now()
	if d.IsDefault && !existing.IsDefault {
		s.clearDefaultLocked(d.UserID)
	}
	s.dashboards[d.ID] = cloneDashboard(d)
	return d, nil
}

// Get implements DashboardStore.
func (s *MemoryStore) Get(ctx context.Context, id string) (Dashboard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.dashboards[id]
	if !ok {
		return Dashboard{}, ErrDashboardNotFound
	}
	return cloneDashboard(d), nil
}

// List implements DashboardStore. Results are ordered newest first.
func (s *MemoryStore) List(ctx context.Context, userID string) ([]Dashboard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Dashboard
	for _, d := range s.dashboards {
		if userID == "" || d.UserID == userID {
			out = append(out, cloneDashboard(d))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Delete implements DashboardStore.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.dashboards[id]; !ok {
		return ErrDashboardNotFound
	}
	delete(s.dashboards, id)
	return nil
}

// Default implements DashboardStore.
func (s *MemoryStore) Default(ctx context.Context, userID string) (Dashboard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.dashboards {
		if d.IsDefault && (userID == "" || d.UserID == userID) {
			return cloneDashboard(d), nil
		}
	}
	return Dashboard{}, ErrNoDefaultDashboard
}

// SetDefault implements DashboardStore. Clearing old defaults and setting the
// new one happens under one lock so no interleaving can observe two defaults.
func (s *MemoryStore) SetDefault(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.dashboards[id]
	if !ok {
		return ErrDashboardNotFound
	}
	s.clearDefaultLocked(userID)
	d.IsDefault = true
	d.UpdatedAt = s.now()
	s.dashboards[id] = d
	return nil
}

// SetShareToken implements DashboardStore. An empty token disables sharing.
func (s *MemoryStore) SetShareToken(ctx context.Context, id, token string) (Dashboard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.dashboards[id]
	if !ok {
		return Dashboard{}, ErrDashboardNotFound
	}
	d.ShareToken = token
	d.IsShared = token != ""
	d.UpdatedAt = s.now()
	s.dashboards[id] = d
	return cloneDashboard(d), nil
}

// ByShareToken implements DashboardStore.
func (s *MemoryStore) ByShareToken(ctx context.Context, token string) (Dashboard, error) {
	if token == "" {
		return Dashboard{}, ErrNotShared
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.dashboards {
		if d.IsShared && d.ShareToken == token {
			return cloneDashboard(d), nil
		}
	}
	return Dashboard{}, ErrNotShared
}

func (s *MemoryStore) clearDefaultLocked(userID string) {
	for id, d := range s.dashboards {
		if d.IsDefault && (userID == "" || d.UserID == userID) {
			d.IsDefault = false
			s.dashboards[id] = d
		}
	}
}

func cloneDashboard(d Dashboard) Dashboard {
	widgets := make([]Widget, len(d.Config.Widgets))
	copy(widgets, d.Config.Widgets)
	for i := range widgets {
		if widgets[i].Config == nil {
			continue
		}
		cfg := make(map[string]any, len(widgets[i].Config))
		for k, v := range widgets[i].Config {
			cfg[k] = v
		}
		widgets[i].Config = cfg
	}
	d.Config.Widgets = widgets
	return d
}
