package models

import "time"

// BlacklistType represents the type of blacklist entry
type BlacklistType string

const (
	BlacklistTypeUser  BlacklistType = "user"
	BlacklistTypeGuild BlacklistType = "guild"
)

// Valid reports whether t is a known blacklist type
func (t BlacklistType) Valid() bool {
	return t == BlacklistTypeUser || t == BlacklistTypeGuild
}

// BlacklistEntry represents a blacklisted user or guild
type BlacklistEntry struct {
	ID        string        `bson:"_id" json:"id"`               // ID de usuario o servidor
	Type      BlacklistType `bson:"type" json:"type"`            // "user" o "guild"
	Reason    string        `bson:"reason" json:"reason"`        // Razón del bloqueo
	CreatedAt time.Time     `bson:"created_at" json:"createdAt"` // Cuándo se creó
	CreatedBy string        `bson:"created_by" json:"createdBy"` // ID del desarrollador que lo bloqueó
}
