package models

import "time"

// Tag is a named snippet of text stored per guild
type Tag struct {
	ID        string    `bson:"_id" json:"id"`
	GuildID   string    `bson:"guildId" json:"guildId"`
	Name      string    `bson:"name" json:"name"`
	Content   string    `bson:"content" json:"content"`
	OwnerID   string    `bson:"ownerId" json:"ownerId"`
	Uses      int64     `bson:"uses" json:"uses"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}
