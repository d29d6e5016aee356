package database

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/PancyStudios/HelperBot/pkg/logger"
	"github.com/PancyStudios/HelperBot/pkg/models"
	"go.mongodb.org/mongo-driver/bson"
)

// BlacklistCollection is the collection holding blacklist entries
const BlacklistCollection = "blacklist"

var (
	ErrBlacklistEntryNotFound = errors.New("entrada de blacklist no encontrada")
	ErrBlacklistEntryExists   = errors.New("la entrada ya existe en la blacklist")
	ErrBlacklistInvalidType   = errors.New("tipo de blacklist inválido")
)

// BlacklistStore persists blacklist entries
type BlacklistStore interface {
	All() ([]*models.BlacklistEntry, error)
	Save(entry *models.BlacklistEntry) error
	Delete(id string) error
}

// BlacklistService keeps every blacklist entry in memory so the command gate never waits on the DB
type BlacklistService struct {
	store    BlacklistStore
	entries  map[string]*models.BlacklistEntry
	mu       sync.RWMutex
	done     chan struct{}
	stopOnce sync.Once
	now      func() time.Time
}

// NewBlacklistService creates the service; call Refresh to load the entries
func NewBlacklistService(store BlacklistStore) *BlacklistService {
	return &BlacklistService{
		store:   store,
		entries: make(map[string]*models.BlacklistEntry),
		done:    make(chan struct{}),
		now:     time.Now,
	}
}

// Refresh reloads all blacklist entries from the store
func (s *BlacklistService) Refresh() error {
	entries, err := s.store.All()
	if err != nil {
		return err
	}

	fresh := make(map[string]*models.BlacklistEntry, len(entries))
	for _, entry := range entries {
		fresh[entry.ID] = entry
	}

	s.mu.Lock()
	s.entries = fresh
	s.mu.Unlock()

	logger.Info(fmt.Sprintf("Caché de blacklist cargada: %d entradas", len(fresh)), "BlacklistCache")
	return nil
}

// StartAutoRefresh refreshes the cache every interval until Stop is called
func (s *BlacklistService) StartAutoRefresh(interval time.Duration) {
	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-s.done:
				return
			case <-ticker.C:
				if err := s.Refresh(); err != nil {
					logger.Error("Error refrescando caché de blacklist: "+err.Error(), "BlacklistCache")
				}
			}
		}
	}()

	logger.System(fmt.Sprintf("Sistema de caché de blacklist iniciado (refresco cada %s)", interval), "BlacklistCache")
}

// Stop stops the refresh goroutine
func (s *BlacklistService) Stop() {
	s.stopOnce.Do(func() { close(s.done) })
}

// Add blacklists a user or guild
func (s *BlacklistService) Add(id string, blacklistType models.BlacklistType, reason, createdBy string) (*models.BlacklistEntry, error) {
	if !blacklistType.Valid() {
		return nil, ErrBlacklistInvalidType
	}
	if _, exists := s.Get(id); exists {
		return nil, ErrBlacklistEntryExists
	}

	entry := &models.BlacklistEntry{
		ID:        id,
		Type:      blacklistType,
		Reason:    reason,
		CreatedAt: s.now(),
		CreatedBy: createdBy,
	}
	if err := s.store.Save(entry); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.entries[id] = entry
	s.mu.Unlock()
	return entry, nil
}

// Remove lifts a blacklist entry
func (s *BlacklistService) Remove(id string) error {
	if _, exists := s.Get(id); !exists {
		return ErrBlacklistEntryNotFound
	}
	if err := s.store.Delete(id); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.entries, id)
	s.mu.Unlock()
	return nil
}

// Get returns the cached entry for id
func (s *BlacklistService) Get(id string) (*models.BlacklistEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[id]
	return entry, ok
}

// IsUserBlacklisted reports whether a user is blacklisted
func (s *BlacklistService) IsUserBlacklisted(userID string) (bool, *models.BlacklistEntry) {
	return s.isType(userID, models.BlacklistTypeUser)
}

// IsGuildBlacklisted reports whether a guild is blacklisted
func (s *BlacklistService) IsGuildBlacklisted(guildID string) (bool, *models.BlacklistEntry) {
	return s.isType(guildID, models.BlacklistTypeGuild)
}

func (s *BlacklistService) isType(id string, t models.BlacklistType) (bool, *models.BlacklistEntry) {
	if id == "" {
		return false, nil
	}
	entry, ok := s.Get(id)
	if !ok || entry.Type != t {
		return false, nil
	}
	return true, entry
}

// List returns the entries of a type (or all when t is empty), newest first
func (s *BlacklistService) List(t models.BlacklistType) []*models.BlacklistEntry {
	s.mu.RLock()
	result := make([]*models.BlacklistEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		if t == "" || entry.Type == t {
			result = append(result, entry)
		}
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

// Size returns the number of cached entries
func (s *BlacklistService) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// MongoBlacklistStore is the BlacklistStore backed by the blacklist collection
type MongoBlacklistStore struct {
	dm *DataManager[models.BlacklistEntry]
}

// NewMongoBlacklistStore creates the Mongo backed blacklist store
func NewMongoBlacklistStore(db *Database) *MongoBlacklistStore {
	return &MongoBlacklistStore{dm: NewDataManager[models.BlacklistEntry](BlacklistCollection, db)}
}

// All implements BlacklistStore
func (s *MongoBlacklistStore) All() ([]*models.BlacklistEntry, error) {
	return s.dm.GetAll(bson.M{})
}

// Save implements BlacklistStore
func (s *MongoBlacklistStore) Save(entry *models.BlacklistEntry) error {
	_, err := s.dm.Set(bson.M{"_id": entry.ID}, entry)
	return err
}

// Delete implements BlacklistStore
func (s *MongoBlacklistStore) Delete(id string) error {
	return s.dm.Delete(bson.M{"_id": id})
}
