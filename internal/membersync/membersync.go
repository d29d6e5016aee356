// Package membersync keeps the stored user rows of a guild in line with its member list.
package membersync

import (
	"fmt"

	"github.com/PancyStudios/HelperBot/pkg/database"
	"github.com/PancyStudios/HelperBot/pkg/models"
	"github.com/bwmarrin/discordgo"
)

// pageSize is the largest member page the REST API returns
const pageSize = 1000

// Syncer is the part of the user service a guild sync needs
type Syncer interface {
	SyncGuild(guildID string, members []models.Member) (database.SyncResult, error)
}

// MemberFetcher pages through the members of a guild over REST
type MemberFetcher interface {
	GuildMembers(guildID string, after string, limit int, options ...discordgo.RequestOption) ([]*discordgo.Member, error)
}

// FromDiscord converts a discordgo member
func FromDiscord(m *discordgo.Member) (models.Member, bool) {
	if m == nil || m.User == nil {
		return models.Member{}, false
	}
	return models.Member{
		UserID:   m.User.ID,
		Username: m.User.Username,
		Bot:      m.User.Bot,
		JoinedAt: m.JoinedAt,
	}, true
}

// Members returns every member of a guild. The state cache is used when it holds
// the full list; otherwise the list is fetched over REST.
func Members(state *discordgo.State, rest MemberFetcher, guildID string) ([]models.Member, error) {
	if state != nil {
		if guild, err := state.Guild(guildID); err == nil && len(guild.Members) > 0 && len(guild.Members) >= guild.MemberCount {
			return convert(guild.Members), nil
		}
	}
	if rest == nil {
		return nil, fmt.Errorf("guild %s: member list not cached", guildID)
	}

	var (
		all   []*discordgo.Member
		after string
	)
	for {
		page, err := rest.GuildMembers(guildID, after, pageSize)
		if err != nil {
			return nil, fmt.Errorf("fetching members of %s: %w", guildID, err)
		}
		all = append(all, page...)
		if len(page) < pageSize {
			break
		}
		after = page[len(page)-1].User.ID
	}
	return convert(all), nil
}

func convert(members []*discordgo.Member) []models.Member {
	out := make([]models.Member, 0, len(members))
	for _, m := range members {
		if member, ok := FromDiscord(m); ok {
			out = append(out, member)
		}
	}
	return out
}

// Guild syncs the user rows of one guild
func Guild(users Syncer, state *discordgo.State, rest MemberFetcher, guildID string) (database.SyncResult, error) {
	members, err := Members(state, rest, guildID)
	if err != nil {
		return database.SyncResult{}, err
	}
	return users.SyncGuild(guildID, members)
}
