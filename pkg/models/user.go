package models

import "time"

// GuildUser is the row kept for every (non-bot) member of a guild the bot is in.
// It is created when the member joins or the guild is synced and removed when they leave.
type GuildUser struct {
	GuildID       string    `bson:"guildId" json:"guildId"`
	UserID        string    `bson:"userId" json:"userId"`
	Username      string    `bson:"username" json:"username"`
	JoinedAt      time.Time `bson:"joinedAt" json:"joinedAt"`
	CommandsUsed  int64     `bson:"commandsUsed" json:"commandsUsed"`
	LastCommandAt time.Time `bson:"lastCommandAt,omitempty" json:"lastCommandAt,omitempty"`
}

// Member is the subset of a guild member needed to keep user rows in sync
type Member struct {
	UserID   string
	Username string
	Bot      bool
	JoinedAt time.Time
}
