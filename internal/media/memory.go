package media

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/goldmafia/clubhouse/internal/domain"
)

// MemoryCatalog is a Catalog kept in process memory. It backs development
// runs without a database and tests.
type MemoryCatalog struct {
	mu    sync.RWMutex
	files []*domain.PinnedFile
}

func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{}
}

func (c *MemoryCatalog) Create(_ context.Context, f *domain.PinnedFile) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *f
	c.files = append(c.files, &cp)
	return nil
}

// GetByCID returns the newest record for cid
func (c *MemoryCatalog) GetByCID(_ context.Context, cid string) (*domain.PinnedFile, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for i := len(c.files) - 1; i >= 0; i-- {
		if c.files[i].CID == cid {
			cp := *c.files[i]
			return &cp, nil
		}
	}
	return nil, domain.ErrPinnedFileNotFound
}

func (c *MemoryCatalog) ListByScope(_ context.Context, kind domain.PinKind, scopeID string, limit int) ([]*domain.PinnedFile, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := []*domain.PinnedFile{}
	for i := len(c.files) - 1; i >= 0; i-- {
		f := c.files[i]
		if f.Kind != kind || f.ScopeID != scopeID {
			continue
		}
		cp := *f
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (c *MemoryCatalog) MarkMirrored(_ context.Context, id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, f := range c.files {
		if f.ID == id {
			f.Mirrored = true
			return nil
		}
	}
	return domain.ErrPinnedFileNotFound
}

// MemoryProfiles is a ProfileStore kept in process memory
type MemoryProfiles struct {
	mu       sync.RWMutex
	profiles map[uuid.UUID]domain.Profile
}

func NewMemoryProfiles() *MemoryProfiles {
	return &MemoryProfiles{profiles: make(map[uuid.UUID]domain.Profile)}
}

func (p *MemoryProfiles) GetByID(_ context.Context, id uuid.UUID) (*domain.Profile, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	profile, ok := p.profiles[id]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	return &profile, nil
}

func (p *MemoryProfiles) SetAvatar(_ context.Context, id uuid.UUID, displayName, cid string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	profile := p.profiles[id]
	profile.ID = id
	if displayName != "" {
		profile.DisplayName = displayName
	}
	profile.AvatarCID = &cid
	profile.UpdatedAt = time.Now().UTC()
	p.profiles[id] = profile
	return nil
}
