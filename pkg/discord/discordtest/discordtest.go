// Package discordtest provides a recording REST session and event builders
// for testing commands and listeners without a Discord connection.
package discordtest

import (
	"strings"
	"time"

	"github.com/PancyStudios/HelperBot/pkg/discord"
	"github.com/PancyStudios/HelperBot/pkg/discord/resttest"
	"github.com/bwmarrin/discordgo"
)

// BotID is the user id of the bot in sessions built by NewSession
const BotID = "100000000000000001"

// Recorder is a discord.RestSession that records every call
type Recorder = resttest.Recorder

var _ discord.RestSession = (*Recorder)(nil)

// NewRecorder creates an empty recorder
func NewRecorder() *Recorder {
	return resttest.NewRecorder()
}

// Factory returns a rest factory that always answers with r
func Factory(r *Recorder) func(*discordgo.Session) discord.RestSession {
	return func(*discordgo.Session) discord.RestSession { return r }
}

// NewSession returns a session with state and the bot user set
func NewSession() *discordgo.Session {
	s := &discordgo.Session{State: discordgo.NewState()}
	s.State.User = &discordgo.User{ID: BotID, Username: "HelperBot", Bot: true}
	return s
}

// AddGuild puts a guild with members into the session state
func AddGuild(s *discordgo.Session, guildID string, members ...*discordgo.Member) *discordgo.Guild {
	g := &discordgo.Guild{ID: guildID, Name: "guild-" + guildID, Members: members, MemberCount: len(members)}
	for _, m := range members {
		m.GuildID = guildID
	}
	_ = s.State.GuildAdd(g)
	return g
}

// Member builds a guild member
func Member(userID string, bot bool) *discordgo.Member {
	return &discordgo.Member{
		User:     &discordgo.User{ID: userID, Username: "user-" + userID, Bot: bot},
		JoinedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// Option builds an interaction option, inferring its type from value
func Option(name string, value interface{}) *discordgo.ApplicationCommandInteractionDataOption {
	opt := &discordgo.ApplicationCommandInteractionDataOption{Name: name, Value: value}
	switch v := value.(type) {
	case bool:
		opt.Type = discordgo.ApplicationCommandOptionBoolean
	case int:
		opt.Type = discordgo.ApplicationCommandOptionInteger
		opt.Value = float64(v)
	case int64:
		opt.Type = discordgo.ApplicationCommandOptionInteger
		opt.Value = float64(v)
	case float64:
		opt.Type = discordgo.ApplicationCommandOptionNumber
	default:
		opt.Type = discordgo.ApplicationCommandOptionString
	}
	return opt
}

// Focused marks an option as the one being autocompleted
func Focused(opt *discordgo.ApplicationCommandInteractionDataOption) *discordgo.ApplicationCommandInteractionDataOption {
	opt.Focused = true
	return opt
}

// Slash builds a slash command interaction. path is the space separated
// command path ("tag create"); opts belong to the leaf.
func Slash(path, userID, guildID string, opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionCreate {
	return interaction(discordgo.InteractionApplicationCommand, path, userID, guildID, opts)
}

// Autocomplete builds an autocomplete interaction
func Autocomplete(path, userID, guildID string, opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionCreate {
	return interaction(discordgo.InteractionApplicationCommandAutocomplete, path, userID, guildID, opts)
}

func interaction(t discordgo.InteractionType, path, userID, guildID string, opts []*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionCreate {
	names := strings.Fields(path)

	leafOpts := opts
	for i := len(names) - 1; i >= 1; i-- {
		optType := discordgo.ApplicationCommandOptionSubCommand
		if i < len(names)-1 {
			optType = discordgo.ApplicationCommandOptionSubCommandGroup
		}
		leafOpts = []*discordgo.ApplicationCommandInteractionDataOption{{
			Name:    names[i],
			Type:    optType,
			Options: leafOpts,
		}}
	}

	i := &discordgo.Interaction{
		ID:        "i-" + userID,
		Type:      t,
		GuildID:   guildID,
		ChannelID: "c1",
		Data: discordgo.ApplicationCommandInteractionData{
			Name:    names[0],
			Options: leafOpts,
		},
	}
	user := &discordgo.User{ID: userID, Username: "user-" + userID}
	if guildID != "" {
		i.Member = &discordgo.Member{User: user, GuildID: guildID}
	} else {
		i.User = user
	}
	return &discordgo.InteractionCreate{Interaction: i}
}

// Text builds a message create event
func Text(content, userID, guildID string) *discordgo.MessageCreate {
	return &discordgo.MessageCreate{Message: &discordgo.Message{
		ID:        "msg-" + userID,
		ChannelID: "c1",
		GuildID:   guildID,
		Content:   content,
		Author:    &discordgo.User{ID: userID, Username: "user-" + userID},
	}}
}

// NewClient builds a client around a fresh session whose replies go to the returned
// recorder. The gateway is never opened.
func NewClient(opts discord.Options, cmds ...*discord.Command) (*discord.ExtendedClient, *Recorder, error) {
	rec := NewRecorder()
	session := NewSession()

	c := discord.NewClientFromSession(session, opts)
	c.StartTime = time.Now()
	c.Dispatcher.LeaveDelay = 0
	c.Dispatcher.SetRestFactory(Factory(rec))
	c.Paginators.SetRestFactory(Factory(rec))

	if err := c.RegisterCommands(cmds...); err != nil {
		return nil, nil, err
	}
	return c, rec, nil
}
