// Package resttest provides a recorder for the Discord REST calls the bot makes.
// It depends on discordgo only, so pkg/discord's own tests can use it.
package resttest

import (
	"fmt"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// Recorder is a REST session that records every call
type Recorder struct {
	mu sync.Mutex

	Responds         []*discordgo.InteractionResponse
	WebhookEdits     []*discordgo.WebhookEdit
	Followups        []*discordgo.WebhookParams
	Sent             []*discordgo.MessageSend
	ChannelEdits     []*discordgo.MessageEdit
	Typing           int
	ReactionsAdded   []string
	ReactionsRemoved []string
	RemovedAll       int
	Left             []string

	// Perms answers UserChannelPermissions by user id; PermErr fails it
	Perms   map[string]int64
	PermErr error
	nextID  int
}

// NewRecorder creates an empty recorder
func NewRecorder() *Recorder {
	return &Recorder{Perms: make(map[string]int64)}
}

func (r *Recorder) message(channelID string) *discordgo.Message {
	r.nextID++
	if channelID == "" {
		channelID = "c1"
	}
	return &discordgo.Message{ID: fmt.Sprintf("m%d", r.nextID), ChannelID: channelID}
}

func (r *Recorder) InteractionRespond(i *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Responds = append(r.Responds, resp)
	return nil
}

func (r *Recorder) InteractionResponse(i *discordgo.Interaction, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.message(i.ChannelID), nil
}

func (r *Recorder) InteractionResponseEdit(i *discordgo.Interaction, edit *discordgo.WebhookEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.WebhookEdits = append(r.WebhookEdits, edit)
	return r.message(i.ChannelID), nil
}

func (r *Recorder) FollowupMessageCreate(i *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Followups = append(r.Followups, data)
	return r.message(i.ChannelID), nil
}

func (r *Recorder) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Sent = append(r.Sent, data)
	return r.message(channelID), nil
}

func (r *Recorder) ChannelMessageEditComplex(m *discordgo.MessageEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ChannelEdits = append(r.ChannelEdits, m)
	return &discordgo.Message{ID: m.ID, ChannelID: m.Channel}, nil
}

func (r *Recorder) ChannelTyping(channelID string, _ ...discordgo.RequestOption) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Typing++
	return nil
}

func (r *Recorder) MessageReactionAdd(channelID, messageID, emojiID string, _ ...discordgo.RequestOption) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ReactionsAdded = append(r.ReactionsAdded, emojiID)
	return nil
}

func (r *Recorder) MessageReactionRemove(channelID, messageID, emojiID, userID string, _ ...discordgo.RequestOption) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ReactionsRemoved = append(r.ReactionsRemoved, emojiID+"/"+userID)
	return nil
}

func (r *Recorder) MessageReactionsRemoveAll(channelID, messageID string, _ ...discordgo.RequestOption) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.RemovedAll++
	return nil
}

func (r *Recorder) UserChannelPermissions(userID, channelID string, _ ...discordgo.RequestOption) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.PermErr != nil {
		return 0, r.PermErr
	}
	return r.Perms[userID], nil
}

func (r *Recorder) GuildLeave(guildID string, _ ...discordgo.RequestOption) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Left = append(r.Left, guildID)
	return nil
}

// Last returns the content and embeds of the most recent reply of any kind
func (r *Recorder) Last() (string, []*discordgo.MessageEmbed) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		content string
		embeds  []*discordgo.MessageEmbed
	)
	if n := len(r.Responds); n > 0 && r.Responds[n-1].Data != nil {
		content, embeds = r.Responds[n-1].Data.Content, r.Responds[n-1].Data.Embeds
	}
	if n := len(r.WebhookEdits); n > 0 {
		e := r.WebhookEdits[n-1]
		if e.Content != nil {
			content = *e.Content
		}
		if e.Embeds != nil {
			embeds = *e.Embeds
		}
	}
	if n := len(r.Followups); n > 0 {
		content, embeds = r.Followups[n-1].Content, r.Followups[n-1].Embeds
	}
	if n := len(r.Sent); n > 0 {
		content, embeds = r.Sent[n-1].Content, r.Sent[n-1].Embeds
	}
	return content, embeds
}

// LastText flattens the most recent reply into one string: content, then
// title, description and fields of every embed
func (r *Recorder) LastText() string {
	content, embeds := r.Last()
	parts := []string{content}
	for _, e := range embeds {
		parts = append(parts, e.Title, e.Description)
		for _, f := range e.Fields {
			parts = append(parts, f.Name, f.Value)
		}
		if e.Footer != nil {
			parts = append(parts, e.Footer.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// Replies counts the replies sent through any path
func (r *Recorder) Replies() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Responds) + len(r.Followups) + len(r.Sent) + len(r.WebhookEdits)
}
