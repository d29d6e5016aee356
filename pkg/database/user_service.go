package database

import (
	"errors"
	"fmt"
	"time"

	"github.com/PancyStudios/HelperBot/pkg/logger"
	"github.com/PancyStudios/HelperBot/pkg/models"
)

// ErrBotMember is returned when trying to keep a row for a bot account
var ErrBotMember = errors.New("bots do not get user rows")

// UserStore persists guild user rows. Writes touch only the fields they name,
// so a username refresh never clobbers a concurrent counter bump.
type UserStore interface {
	Get(guildID, userID string) (*models.GuildUser, error)
	// Create stores u unless a row already exists and returns the stored row
	Create(u *models.GuildUser) (*models.GuildUser, error)
	// SetUsername returns (nil, nil) when the row does not exist
	SetUsername(guildID, userID, username string) (*models.GuildUser, error)
	Delete(guildID, userID string) error
	DeleteGuild(guildID string) (int64, error)
	ListGuild(guildID string) ([]*models.GuildUser, error)
	IncrementCommands(guildID, userID string, at time.Time) (*models.GuildUser, error)
	Top(guildID string, limit int) ([]*models.GuildUser, error)
}

// SyncResult summarizes a guild member sync
type SyncResult struct {
	Added   int
	Removed int
	Kept    int
}

// UserService keeps one row per (guild, user) for as long as the user is a member
type UserService struct {
	store UserStore
	now   func() time.Time
}

// NewUserService creates a UserService over store
func NewUserService(store UserStore) *UserService {
	return &UserService{store: store, now: time.Now}
}

// EnsureMember creates the row for a member if it is missing and keeps the username fresh
func (s *UserService) EnsureMember(guildID string, m models.Member) (*models.GuildUser, error) {
	if m.Bot {
		return nil, ErrBotMember
	}

	existing, err := s.store.Get(guildID, m.UserID)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		if m.Username == "" || existing.Username == m.Username {
			return existing, nil
		}
		updated, err := s.store.SetUsername(guildID, m.UserID, m.Username)
		if err != nil {
			return nil, err
		}
		if updated != nil {
			return updated, nil
		}
		// removed in the meantime; recreate below
	}

	joined := m.JoinedAt
	if joined.IsZero() {
		joined = s.now()
	}
	row := &models.GuildUser{
		GuildID:  guildID,
		UserID:   m.UserID,
		Username: m.Username,
		JoinedAt: joined,
	}
	return s.store.Create(row)
}

// RemoveMember deletes the row of a member that left the guild
func (s *UserService) RemoveMember(guildID, userID string) error {
	return s.store.Delete(guildID, userID)
}

// RemoveGuild deletes every row of a guild the bot is no longer in
func (s *UserService) RemoveGuild(guildID string) (int64, error) {
	return s.store.DeleteGuild(guildID)
}

// SyncGuild makes the stored rows match the current member list:
// missing members get a row and rows of non-members are removed.
func (s *UserService) SyncGuild(guildID string, members []models.Member) (SyncResult, error) {
	var result SyncResult

	rows, err := s.store.ListGuild(guildID)
	if err != nil {
		return result, err
	}

	stored := make(map[string]*models.GuildUser, len(rows))
	for _, r := range rows {
		stored[r.UserID] = r
	}

	current := make(map[string]struct{}, len(members))
	for _, m := range members {
		if m.Bot {
			continue
		}
		current[m.UserID] = struct{}{}

		if _, ok := stored[m.UserID]; ok {
			result.Kept++
			continue
		}
		if _, err := s.EnsureMember(guildID, m); err != nil {
			return result, fmt.Errorf("adding member %s: %w", m.UserID, err)
		}
		result.Added++
	}

	for userID := range stored {
		if _, ok := current[userID]; ok {
			continue
		}
		if err := s.store.Delete(guildID, userID); err != nil {
			return result, fmt.Errorf("removing member %s: %w", userID, err)
		}
		result.Removed++
	}

	logger.Debug(fmt.Sprintf("Servidor %s sincronizado: +%d -%d =%d", guildID, result.Added, result.Removed, result.Kept), "Users")
	return result, nil
}

// Get returns the row for a member, or nil when there is none
func (s *UserService) Get(guildID, userID string) (*models.GuildUser, error) {
	return s.store.Get(guildID, userID)
}

// RecordCommand bumps the usage counter of the caller. Invocations outside a guild are ignored.
func (s *UserService) RecordCommand(guildID string, m models.Member) error {
	if guildID == "" || m.Bot {
		return nil
	}

	row, err := s.store.IncrementCommands(guildID, m.UserID, s.now())
	if err != nil {
		return err
	}
	if row != nil {
		return nil
	}

	// Invoking a command in a guild proves membership, so a missing row is repaired.
	row, err = s.EnsureMember(guildID, m)
	if err != nil {
		return err
	}
	_, err = s.store.IncrementCommands(guildID, row.UserID, s.now())
	return err
}

// Leaderboard returns the most active members of a guild
func (s *UserService) Leaderboard(guildID string, limit int) ([]*models.GuildUser, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.store.Top(guildID, limit)
}
