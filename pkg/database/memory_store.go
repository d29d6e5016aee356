package database

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/PancyStudios/HelperBot/pkg/models"
)

var (
	_ UserStore      = (*MemoryUserStore)(nil)
	_ TagStore       = (*MemoryTagStore)(nil)
	_ BlacklistStore = (*MemoryBlacklistStore)(nil)
)

// MemoryUserStore is a UserStore kept in process memory, used when STORAGE=memory
type MemoryUserStore struct {
	mu   sync.Mutex
	rows map[string]*models.GuildUser
}

// NewMemoryUserStore creates an empty store
func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{rows: make(map[string]*models.GuildUser)}
}

func (m *MemoryUserStore) key(g, u string) string { return g + "/" + u }

// Get returns a copy of the row, or nil when there is none
func (m *MemoryUserStore) Get(g, u string) (*models.GuildUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rows[m.key(g, u)]; ok {
		c := *r
		return &c, nil
	}
	return nil, nil
}

// Create stores a copy of u unless the row exists, and returns the stored row
func (m *MemoryUserStore) Create(u *models.GuildUser) (*models.GuildUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := m.key(u.GuildID, u.UserID)
	r, ok := m.rows[k]
	if !ok {
		c := *u
		r = &c
		m.rows[k] = r
	}
	out := *r
	return &out, nil
}

// SetUsername renames the row in place, leaving its counters alone
func (m *MemoryUserStore) SetUsername(g, u, username string) (*models.GuildUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[m.key(g, u)]
	if !ok {
		return nil, nil
	}
	r.Username = username
	c := *r
	return &c, nil
}

// Delete removes one row
func (m *MemoryUserStore) Delete(g, u string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, m.key(g, u))
	return nil
}

// DeleteGuild removes every row of guild g and returns how many there were
func (m *MemoryUserStore) DeleteGuild(g string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k, r := range m.rows {
		if r.GuildID == g {
			delete(m.rows, k)
			n++
		}
	}
	return n, nil
}

// ListGuild returns copies of the rows of guild g in no particular order
func (m *MemoryUserStore) ListGuild(g string) ([]*models.GuildUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.GuildUser
	for _, r := range m.rows {
		if r.GuildID == g {
			c := *r
			out = append(out, &c)
		}
	}
	return out, nil
}

// IncrementCommands bumps the usage counter, or returns nil when the row is missing
func (m *MemoryUserStore) IncrementCommands(g, u string, at time.Time) (*models.GuildUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[m.key(g, u)]
	if !ok {
		return nil, nil
	}
	r.CommandsUsed++
	r.LastCommandAt = at
	c := *r
	return &c, nil
}

// Top returns the limit most active rows, oldest members first on ties
func (m *MemoryUserStore) Top(g string, limit int) ([]*models.GuildUser, error) {
	rows, _ := m.ListGuild(g)
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].CommandsUsed != rows[j].CommandsUsed {
			return rows[i].CommandsUsed > rows[j].CommandsUsed
		}
		return rows[i].JoinedAt.Before(rows[j].JoinedAt)
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

// MemoryTagStore is a TagStore kept in process memory
type MemoryTagStore struct {
	mu   sync.Mutex
	tags map[string]*models.Tag
}

// NewMemoryTagStore creates an empty store
func NewMemoryTagStore() *MemoryTagStore {
	return &MemoryTagStore{tags: make(map[string]*models.Tag)}
}

// Insert stores a copy of t, failing with ErrDuplicate when the name is taken
func (m *MemoryTagStore) Insert(t *models.Tag) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := t.GuildID + "/" + t.Name
	if _, ok := m.tags[k]; ok {
		return ErrDuplicate
	}
	c := *t
	m.tags[k] = &c
	return nil
}

// FindByName returns a copy of the tag, or nil when there is none
func (m *MemoryTagStore) FindByName(g, name string) (*models.Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tags[g+"/"+name]; ok {
		c := *t
		return &c, nil
	}
	return nil, nil
}

// SetContent replaces the content of a tag
func (m *MemoryTagStore) SetContent(g, name, content string, at time.Time) (*models.Tag, error) {
	return m.modify(g, name, func(t *models.Tag) {
		t.Content = content
		t.UpdatedAt = at
	})
}

// SetOwner hands a tag to ownerID
func (m *MemoryTagStore) SetOwner(g, name, ownerID string, at time.Time) (*models.Tag, error) {
	return m.modify(g, name, func(t *models.Tag) {
		t.OwnerID = ownerID
		t.UpdatedAt = at
	})
}

// IncrementUses counts one use of a tag
func (m *MemoryTagStore) IncrementUses(g, name string) (*models.Tag, error) {
	return m.modify(g, name, func(t *models.Tag) { t.Uses++ })
}

// modify applies fn to the stored tag under the lock and returns a copy
func (m *MemoryTagStore) modify(g, name string, fn func(t *models.Tag)) (*models.Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tags[g+"/"+name]
	if !ok {
		return nil, nil
	}
	fn(t)
	c := *t
	return &c, nil
}

// Delete removes a tag
func (m *MemoryTagStore) Delete(g, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tags, g+"/"+name)
	return nil
}

// List returns every tag of guild g sorted by name
func (m *MemoryTagStore) List(g string) ([]*models.Tag, error) {
	return m.Search(g, "", 0)
}

// Search returns up to limit tags whose name starts with prefix; limit 0 means all
func (m *MemoryTagStore) Search(g, prefix string, limit int) ([]*models.Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Tag
	for _, t := range m.tags {
		if t.GuildID == g && strings.HasPrefix(t.Name, prefix) {
			c := *t
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// MemoryBlacklistStore is a BlacklistStore kept in process memory
type MemoryBlacklistStore struct {
	mu      sync.Mutex
	entries map[string]*models.BlacklistEntry
}

// NewMemoryBlacklistStore creates a store holding entries
func NewMemoryBlacklistStore(entries ...*models.BlacklistEntry) *MemoryBlacklistStore {
	m := &MemoryBlacklistStore{entries: make(map[string]*models.BlacklistEntry, len(entries))}
	for _, e := range entries {
		c := *e
		m.entries[e.ID] = &c
	}
	return m
}

// All returns copies of every entry
func (m *MemoryBlacklistStore) All() ([]*models.BlacklistEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.BlacklistEntry, 0, len(m.entries))
	for _, e := range m.entries {
		c := *e
		out = append(out, &c)
	}
	return out, nil
}

// Save stores a copy of e, replacing any entry with the same id
func (m *MemoryBlacklistStore) Save(e *models.BlacklistEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *e
	m.entries[e.ID] = &c
	return nil
}

// Delete removes the entry with id
func (m *MemoryBlacklistStore) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
	return nil
}
