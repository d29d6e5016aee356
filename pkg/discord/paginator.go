package discord

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
)

var (
	ErrNotOwner        = errors.New("only the paginator owner can use it")
	ErrPaginatorClosed = errors.New("paginator is no longer active")
	ErrUnknownAction   = errors.New("unknown paginator action")
	ErrNoPages         = errors.New("paginator needs at least one page")
)

// PaginatorState is the lifecycle state of a paginator
type PaginatorState int

const (
	PaginatorActive PaginatorState = iota
	PaginatorStopped
	PaginatorExpired
)

// String returns the state name
func (s PaginatorState) String() string {
	switch s {
	case PaginatorActive:
		return "active"
	case PaginatorStopped:
		return "stopped"
	case PaginatorExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// PageAction is an input accepted by a paginator
type PageAction string

const (
	ActionFirst PageAction = "first"
	ActionPrev  PageAction = "prev"
	ActionNext  PageAction = "next"
	ActionLast  PageAction = "last"
	ActionStop  PageAction = "stop"
)

// pageControls lists the controls in display order
var pageControls = []struct {
	action PageAction
	emoji  string
}{
	{ActionFirst, "⏮"},
	{ActionPrev, "◀"},
	{ActionStop, "⏹"},
	{ActionNext, "▶"},
	{ActionLast, "⏭"},
}

const customIDPrefix = "pg"

// Paginator walks a fixed list of embeds. Only its owner may move it, every
// accepted action pushes the deadline forward and Stopped/Expired are final.
type Paginator struct {
	ID        string
	OwnerID   string
	ChannelID string
	MessageID string

	pages    []*discordgo.MessageEmbed
	index    int
	state    PaginatorState
	timeout  time.Duration
	deadline time.Time

	createdAt   time.Time
	interaction *discordgo.Interaction
	rest        RestSession
}

// NewPaginator creates an active paginator on its first page
func NewPaginator(ownerID string, pages []*discordgo.MessageEmbed, timeout time.Duration, now time.Time) (*Paginator, error) {
	if len(pages) == 0 {
		return nil, ErrNoPages
	}
	return &Paginator{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		pages:     pages,
		timeout:   timeout,
		deadline:  now.Add(timeout),
		createdAt: now,
	}, nil
}

// Apply performs an action for userID
func (p *Paginator) Apply(userID string, action PageAction, now time.Time) error {
	if p.Expire(now) || p.state != PaginatorActive {
		return ErrPaginatorClosed
	}
	if userID != p.OwnerID {
		return ErrNotOwner
	}

	last := len(p.pages) - 1
	switch action {
	case ActionFirst:
		p.index = 0
	case ActionPrev:
		if p.index > 0 {
			p.index--
		}
	case ActionNext:
		if p.index < last {
			p.index++
		}
	case ActionLast:
		p.index = last
	case ActionStop:
		p.state = PaginatorStopped
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}

	p.deadline = now.Add(p.timeout)
	return nil
}

// Expire moves an idle active paginator to Expired. It reports whether it did.
func (p *Paginator) Expire(now time.Time) bool {
	if p.state != PaginatorActive || now.Before(p.deadline) {
		return false
	}
	p.state = PaginatorExpired
	return true
}

// State returns the current state
func (p *Paginator) State() PaginatorState { return p.state }

// Index returns the zero based current page
func (p *Paginator) Index() int { return p.index }

// Len returns the number of pages
func (p *Paginator) Len() int { return len(p.pages) }

// Deadline returns when the paginator expires without input
func (p *Paginator) Deadline() time.Time { return p.deadline }

// Current renders the current page with the page counter in its footer
func (p *Paginator) Current() *discordgo.MessageEmbed {
	embed := *p.pages[p.index]
	counter := fmt.Sprintf("Página %d/%d", p.index+1, len(p.pages))

	footer := &discordgo.MessageEmbedFooter{Text: counter}
	if embed.Footer != nil {
		footer.IconURL = embed.Footer.IconURL
		if embed.Footer.Text != "" {
			footer.Text = embed.Footer.Text + " • " + counter
		}
	}
	embed.Footer = footer
	return &embed
}

// Components renders the button row. Closed paginators render no controls.
func (p *Paginator) Components() []discordgo.MessageComponent {
	if p.state != PaginatorActive || len(p.pages) <= 1 {
		return []discordgo.MessageComponent{}
	}

	last := len(p.pages) - 1
	buttons := make([]discordgo.MessageComponent, 0, len(pageControls))
	for _, c := range pageControls {
		style := discordgo.SecondaryButton
		disabled := false
		switch c.action {
		case ActionFirst, ActionPrev:
			disabled = p.index == 0
		case ActionNext, ActionLast:
			disabled = p.index == last
		case ActionStop:
			style = discordgo.DangerButton
		}
		buttons = append(buttons, discordgo.Button{
			Label:    c.emoji,
			Style:    style,
			Disabled: disabled,
			CustomID: p.customID(c.action),
		})
	}
	return []discordgo.MessageComponent{discordgo.ActionsRow{Components: buttons}}
}

func (p *Paginator) customID(action PageAction) string {
	return customIDPrefix + ":" + p.ID + ":" + string(action)
}

// ParseCustomID splits a paginator button id "pg:<id>:<action>"
func ParseCustomID(customID string) (string, PageAction, bool) {
	parts := strings.Split(customID, ":")
	if len(parts) != 3 || parts[0] != customIDPrefix || parts[1] == "" || parts[2] == "" {
		return "", "", false
	}
	return parts[1], PageAction(parts[2]), true
}

// ReactionAction maps a reaction emoji to its action
func ReactionAction(emoji string) (PageAction, bool) {
	emoji = strings.TrimSuffix(emoji, "\ufe0f")
	for _, c := range pageControls {
		if c.emoji == emoji {
			return c.action, true
		}
	}
	return "", false
}
