package discord

import (
	"github.com/PancyStudios/HelperBot/pkg/models"
	"github.com/bwmarrin/discordgo"
)

// CommandContext provides context for command execution. It wraps either a slash
// interaction or a text message and offers one reply API for both.
type CommandContext struct {
	Session     *discordgo.Session
	Interaction *discordgo.InteractionCreate
	Message     *discordgo.MessageCreate
	Client      *ExtendedClient
	Command     *Command
	// Args holds the raw text arguments after the command path (text invocations only)
	Args []string

	rest      RestSession
	options   []*discordgo.ApplicationCommandInteractionDataOption
	argTokens []token
	deferred  bool
	replied   bool
	lastReply *discordgo.Message
}

// IsText reports whether the command was invoked through a text message
func (ctx *CommandContext) IsText() bool {
	return ctx.Message != nil
}

// Rest returns the REST session replies go through
func (ctx *CommandContext) Rest() RestSession {
	if ctx.rest == nil {
		return ctx.Session
	}
	return ctx.rest
}

// Replied reports whether a response was already sent or deferred
func (ctx *CommandContext) Replied() bool {
	return ctx.replied || ctx.deferred
}

// GuildID returns the guild of the invocation, empty in direct messages
func (ctx *CommandContext) GuildID() string {
	if ctx.Interaction != nil {
		return ctx.Interaction.GuildID
	}
	if ctx.Message != nil {
		return ctx.Message.GuildID
	}
	return ""
}

// ChannelID returns the channel of the invocation
func (ctx *CommandContext) ChannelID() string {
	if ctx.Interaction != nil {
		return ctx.Interaction.ChannelID
	}
	if ctx.Message != nil {
		return ctx.Message.ChannelID
	}
	return ""
}

// User returns the user who invoked the command
func (ctx *CommandContext) User() *discordgo.User {
	if ctx.Interaction != nil {
		if ctx.Interaction.Member != nil && ctx.Interaction.Member.User != nil {
			return ctx.Interaction.Member.User
		}
		return ctx.Interaction.User
	}
	if ctx.Message != nil {
		return ctx.Message.Author
	}
	return nil
}

// Member returns the guild member who invoked the command, nil in direct messages
func (ctx *CommandContext) Member() *discordgo.Member {
	if ctx.Interaction != nil {
		return ctx.Interaction.Member
	}
	if ctx.Message != nil && ctx.Message.Member != nil {
		member := *ctx.Message.Member
		if member.User == nil {
			member.User = ctx.Message.Author
		}
		return &member
	}
	return nil
}

// Caller returns the invoker as a models.Member
func (ctx *CommandContext) Caller() models.Member {
	u := ctx.User()
	if u == nil {
		return models.Member{}
	}
	return models.Member{UserID: u.ID, Username: u.Username, Bot: u.Bot}
}

// Guild returns the guild where the command was invoked
func (ctx *CommandContext) Guild() *discordgo.Guild {
	guildID := ctx.GuildID()
	if guildID == "" || ctx.Session == nil || ctx.Session.State == nil {
		return nil
	}
	guild, _ := ctx.Session.State.Guild(guildID)
	return guild
}

// Channel returns the channel where the command was invoked
func (ctx *CommandContext) Channel() *discordgo.Channel {
	if ctx.Session == nil || ctx.Session.State == nil {
		return nil
	}
	channel, _ := ctx.Session.State.Channel(ctx.ChannelID())
	return channel
}

// messageReference makes text replies quote the invoking message
func (ctx *CommandContext) messageReference() *discordgo.MessageReference {
	if ctx.Message == nil {
		return nil
	}
	return ctx.Message.Reference()
}

// Send delivers a message as the response to the invocation and returns it.
// Slash invocations answer the interaction (or follow up if already answered);
// text invocations reply in the channel.
func (ctx *CommandContext) Send(msg *discordgo.MessageSend) (*discordgo.Message, error) {
	return ctx.send(msg, false)
}

func (ctx *CommandContext) send(msg *discordgo.MessageSend, ephemeral bool) (*discordgo.Message, error) {
	rest := ctx.Rest()

	if ctx.Interaction == nil {
		msg.Reference = ctx.messageReference()
		if msg.AllowedMentions == nil {
			msg.AllowedMentions = &discordgo.MessageAllowedMentions{
				Parse: []discordgo.AllowedMentionType{discordgo.AllowedMentionTypeUsers},
			}
		}
		m, err := rest.ChannelMessageSendComplex(ctx.ChannelID(), msg)
		if err != nil {
			return nil, err
		}
		ctx.replied = true
		ctx.lastReply = m
		return m, nil
	}

	var flags discordgo.MessageFlags
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}

	switch {
	case ctx.deferred && !ctx.replied:
		edit := &discordgo.WebhookEdit{Content: &msg.Content}
		if msg.Embeds != nil {
			edit.Embeds = &msg.Embeds
		}
		if msg.Components != nil {
			edit.Components = &msg.Components
		}
		m, err := rest.InteractionResponseEdit(ctx.Interaction.Interaction, edit)
		if err != nil {
			return nil, err
		}
		ctx.replied = true
		ctx.lastReply = m
		return m, nil

	case ctx.replied:
		m, err := rest.FollowupMessageCreate(ctx.Interaction.Interaction, true, &discordgo.WebhookParams{
			Content:    msg.Content,
			Embeds:     msg.Embeds,
			Components: msg.Components,
			Flags:      flags,
		})
		if err != nil {
			return nil, err
		}
		ctx.lastReply = m
		return m, nil
	}

	err := rest.InteractionRespond(ctx.Interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content:    msg.Content,
			Embeds:     msg.Embeds,
			Components: msg.Components,
			Flags:      flags,
		},
	})
	if err != nil {
		return nil, err
	}
	ctx.replied = true

	if ephemeral {
		return nil, nil
	}
	m, err := rest.InteractionResponse(ctx.Interaction.Interaction)
	if err != nil {
		return nil, err
	}
	ctx.lastReply = m
	return m, nil
}

// Reply sends a reply to the invocation
func (ctx *CommandContext) Reply(content string) error {
	_, err := ctx.send(&discordgo.MessageSend{Content: content}, false)
	return err
}

// ReplyEmbed sends an embed reply to the invocation
func (ctx *CommandContext) ReplyEmbed(embed *discordgo.MessageEmbed) error {
	_, err := ctx.send(&discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{embed}}, false)
	return err
}

// ReplyEphemeral sends a reply visible only to the user.
// Text invocations cannot hide messages, so they get a normal reply.
func (ctx *CommandContext) ReplyEphemeral(content string) error {
	_, err := ctx.send(&discordgo.MessageSend{Content: content}, true)
	return err
}

// ReplyEphemeralEmbed sends an ephemeral embed reply visible only to the user
func (ctx *CommandContext) ReplyEphemeralEmbed(embed *discordgo.MessageEmbed) error {
	_, err := ctx.send(&discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{embed}}, true)
	return err
}

// Defer acknowledges the invocation so the handler can take longer than three seconds.
// Text invocations show the typing indicator instead.
func (ctx *CommandContext) Defer() error {
	if ctx.Interaction == nil {
		return ctx.Rest().ChannelTyping(ctx.ChannelID())
	}
	if ctx.Replied() {
		return nil
	}
	err := ctx.Rest().InteractionRespond(ctx.Interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
	if err == nil {
		ctx.deferred = true
	}
	return err
}

// EditReply edits the previous response
func (ctx *CommandContext) EditReply(content string) error {
	return ctx.edit(&content, nil)
}

// EditReplyEmbed edits the previous response with an embed
func (ctx *CommandContext) EditReplyEmbed(embed *discordgo.MessageEmbed) error {
	return ctx.edit(nil, []*discordgo.MessageEmbed{embed})
}

func (ctx *CommandContext) edit(content *string, embeds []*discordgo.MessageEmbed) error {
	if ctx.Interaction != nil {
		edit := &discordgo.WebhookEdit{Content: content}
		if embeds != nil {
			edit.Embeds = &embeds
		}
		m, err := ctx.Rest().InteractionResponseEdit(ctx.Interaction.Interaction, edit)
		if err == nil {
			ctx.replied = true
			ctx.lastReply = m
		}
		return err
	}

	if ctx.lastReply == nil {
		msg := &discordgo.MessageSend{Embeds: embeds}
		if content != nil {
			msg.Content = *content
		}
		_, err := ctx.send(msg, false)
		return err
	}

	edit := discordgo.NewMessageEdit(ctx.lastReply.ChannelID, ctx.lastReply.ID)
	edit.Content = content
	if embeds != nil {
		edit.Embeds = &embeds
	}
	m, err := ctx.Rest().ChannelMessageEditComplex(edit)
	if err == nil {
		ctx.lastReply = m
	}
	return err
}

// FocusedOption returns the option being autocompleted
func (ctx *CommandContext) FocusedOption() *discordgo.ApplicationCommandInteractionDataOption {
	return findFocused(ctx.options)
}

func findFocused(options []*discordgo.ApplicationCommandInteractionDataOption) *discordgo.ApplicationCommandInteractionDataOption {
	for _, opt := range options {
		if opt.Focused {
			return opt
		}
		if found := findFocused(opt.Options); found != nil {
			return found
		}
	}
	return nil
}

// GetOption retrieves an option value by name
func (ctx *CommandContext) GetOption(name string) *discordgo.ApplicationCommandInteractionDataOption {
	return findOption(ctx.options, name)
}

// HasOption reports whether the option was given
func (ctx *CommandContext) HasOption(name string) bool {
	return ctx.GetOption(name) != nil
}

// findOption recursively finds an option by name
func findOption(options []*discordgo.ApplicationCommandInteractionDataOption, name string) *discordgo.ApplicationCommandInteractionDataOption {
	for _, opt := range options {
		if opt.Name == name {
			return opt
		}
		if len(opt.Options) > 0 {
			if found := findOption(opt.Options, name); found != nil {
				return found
			}
		}
	}
	return nil
}

// GetStringOption retrieves a string option value
func (ctx *CommandContext) GetStringOption(name string) string {
	opt := ctx.GetOption(name)
	if opt == nil {
		return ""
	}
	s, _ := opt.Value.(string)
	return s
}

// GetIntOption retrieves an integer option value
func (ctx *CommandContext) GetIntOption(name string) int64 {
	opt := ctx.GetOption(name)
	if opt == nil {
		return 0
	}
	f, _ := opt.Value.(float64)
	return int64(f)
}

// GetBoolOption retrieves a boolean option value
func (ctx *CommandContext) GetBoolOption(name string) bool {
	opt := ctx.GetOption(name)
	if opt == nil {
		return false
	}
	b, _ := opt.Value.(bool)
	return b
}

// resolved returns the resolved entities sent with a slash interaction
func (ctx *CommandContext) resolved() *discordgo.ApplicationCommandInteractionDataResolved {
	if ctx.Interaction == nil || ctx.Interaction.Type != discordgo.InteractionApplicationCommand {
		return nil
	}
	return ctx.Interaction.ApplicationCommandData().Resolved
}

// GetUserOption retrieves a user option value
func (ctx *CommandContext) GetUserOption(name string) *discordgo.User {
	id := ctx.GetStringOption(name)
	if id == "" {
		return nil
	}
	if res := ctx.resolved(); res != nil {
		if u, ok := res.Users[id]; ok {
			return u
		}
	}
	if ctx.Session != nil && ctx.Session.State != nil {
		if m, err := ctx.Session.State.Member(ctx.GuildID(), id); err == nil && m.User != nil {
			return m.User
		}
	}
	if ctx.Session != nil && ctx.rest == nil {
		if u, err := ctx.Session.User(id); err == nil {
			return u
		}
	}
	return &discordgo.User{ID: id}
}

// GetChannelOption retrieves a channel option value
func (ctx *CommandContext) GetChannelOption(name string) *discordgo.Channel {
	id := ctx.GetStringOption(name)
	if id == "" {
		return nil
	}
	if res := ctx.resolved(); res != nil {
		if c, ok := res.Channels[id]; ok {
			return c
		}
	}
	if ctx.Session != nil && ctx.Session.State != nil {
		if c, err := ctx.Session.State.Channel(id); err == nil {
			return c
		}
	}
	return &discordgo.Channel{ID: id}
}

// GetRoleOption retrieves a role option value
func (ctx *CommandContext) GetRoleOption(name string) *discordgo.Role {
	id := ctx.GetStringOption(name)
	if id == "" {
		return nil
	}
	if res := ctx.resolved(); res != nil {
		if r, ok := res.Roles[id]; ok {
			return r
		}
	}
	if ctx.Session != nil && ctx.Session.State != nil {
		if r, err := ctx.Session.State.Role(ctx.GuildID(), id); err == nil {
			return r
		}
	}
	return &discordgo.Role{ID: id}
}
