package database

import (
	"errors"
	"testing"
	"time"

	"github.com/PancyStudios/HelperBot/pkg/models"
)

func TestBlacklistService(t *testing.T) {
	store := NewMemoryBlacklistStore(
		&models.BlacklistEntry{ID: "g9", Type: models.BlacklistTypeGuild, CreatedAt: time.Unix(1, 0)},
	)
	s := NewBlacklistService(store)
	if err := s.Refresh(); err != nil {
		t.Fatal(err)
	}

	if ok, _ := s.IsGuildBlacklisted("g9"); !ok {
		t.Error("g9 should be blacklisted after Refresh")
	}
	if ok, _ := s.IsUserBlacklisted("g9"); ok {
		t.Error("guild entries must not match users")
	}

	if _, err := s.Add("u1", models.BlacklistTypeUser, "spam", "dev"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Add("u1", models.BlacklistTypeUser, "spam", "dev"); !errors.Is(err, ErrBlacklistEntryExists) {
		t.Errorf("duplicate Add error = %v", err)
	}
	if _, err := s.Add("x", "channel", "", "dev"); !errors.Is(err, ErrBlacklistInvalidType) {
		t.Errorf("invalid type error = %v", err)
	}

	if ok, entry := s.IsUserBlacklisted("u1"); !ok || entry.Reason != "spam" {
		t.Errorf("IsUserBlacklisted(u1) = %v, %+v", ok, entry)
	}
	if len(s.List(models.BlacklistTypeUser)) != 1 || s.Size() != 2 {
		t.Errorf("List/Size mismatch: %d users, %d total", len(s.List(models.BlacklistTypeUser)), s.Size())
	}

	if err := s.Remove("u1"); err != nil {
		t.Fatal(err)
	}
	if err := s.Remove("u1"); !errors.Is(err, ErrBlacklistEntryNotFound) {
		t.Errorf("second Remove error = %v", err)
	}
	if _, ok := store.entries["u1"]; ok {
		t.Error("store entry should be deleted")
	}
}
