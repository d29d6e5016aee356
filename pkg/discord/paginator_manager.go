package discord

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/PancyStudios/HelperBot/pkg/logger"
	"github.com/PancyStudios/HelperBot/pkg/metrics"
	"github.com/bwmarrin/discordgo"
)

// PaginatorMode selects how users drive paginators
type PaginatorMode string

const (
	ModeButtons   PaginatorMode = "buttons"
	ModeReactions PaginatorMode = "reactions"
)

// interactionEditWindow is how long an interaction token stays usable for edits
const interactionEditWindow = 14 * time.Minute

// ParsePaginatorMode maps a config value to a mode, defaulting to buttons
func ParsePaginatorMode(s string) PaginatorMode {
	if PaginatorMode(s) == ModeReactions {
		return ModeReactions
	}
	return ModeButtons
}

// PaginatorManager owns the active paginators and routes user input to them
type PaginatorManager struct {
	Mode    PaginatorMode
	Timeout time.Duration

	metrics   *metrics.Metrics
	mu        sync.Mutex
	byID      map[string]*Paginator
	byMessage map[string]*Paginator
	restFor   func(s *discordgo.Session) RestSession
	now       func() time.Time
	stop      chan struct{}
	stopOnce  sync.Once
}

// NewPaginatorManager creates a manager
func NewPaginatorManager(mode PaginatorMode, timeout time.Duration, m *metrics.Metrics) *PaginatorManager {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &PaginatorManager{
		Mode:      ParsePaginatorMode(string(mode)),
		Timeout:   timeout,
		metrics:   m,
		byID:      make(map[string]*Paginator),
		byMessage: make(map[string]*Paginator),
		restFor:   restFromSession,
		now:       time.Now,
		stop:      make(chan struct{}),
	}
}

// SetRestFactory replaces the REST session used for component and reaction input
func (pm *PaginatorManager) SetRestFactory(fn func(s *discordgo.Session) RestSession) {
	if fn == nil {
		fn = restFromSession
	}
	pm.restFor = fn
}

// Start replies to ctx with the first page and registers the paginator.
// A single page is sent as a plain reply and nothing is registered.
func (pm *PaginatorManager) Start(ctx *CommandContext, pages []*discordgo.MessageEmbed) (*Paginator, error) {
	user := ctx.User()
	if user == nil {
		return nil, ErrNotOwner
	}
	p, err := NewPaginator(user.ID, pages, pm.Timeout, pm.now())
	if err != nil {
		return nil, err
	}

	if len(pages) == 1 {
		return p, ctx.ReplyEmbed(pages[0])
	}

	msg := &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{p.Current()}}
	if pm.Mode == ModeButtons {
		msg.Components = p.Components()
	}

	original := ctx.Interaction != nil && !ctx.replied
	sent, err := ctx.Send(msg)
	if err != nil {
		return nil, err
	}
	if sent == nil {
		return nil, errors.New("paginator message was not returned")
	}

	p.ChannelID = sent.ChannelID
	p.MessageID = sent.ID
	p.rest = ctx.Rest()
	if original {
		p.interaction = ctx.Interaction.Interaction
	}

	if pm.Mode == ModeReactions {
		for _, c := range pageControls {
			if err := p.rest.MessageReactionAdd(p.ChannelID, p.MessageID, c.emoji); err != nil {
				logger.Warn("No se pudo añadir la reacción del paginador: "+err.Error(), "Paginator")
				break
			}
		}
	}

	pm.mu.Lock()
	pm.byID[p.ID] = p
	pm.byMessage[p.MessageID] = p
	active := len(pm.byID)
	pm.mu.Unlock()

	pm.metrics.SetPaginatorsActive(active)
	return p, nil
}

// pageUpdate is what an action leaves on screen. Closed is set when the action
// itself ended the paginator, so the caller owns removing its controls.
type pageUpdate struct {
	embed      *discordgo.MessageEmbed
	components []discordgo.MessageComponent
	state      PaginatorState
	closed     bool
}

// apply runs an action under the manager lock and renders the result
func (pm *PaginatorManager) apply(p *Paginator, userID string, action PageAction) (pageUpdate, error) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	err := p.Apply(userID, action, pm.now())
	u := pageUpdate{embed: p.Current(), components: p.Components(), state: p.State()}
	if u.state != PaginatorActive {
		_, registered := pm.byID[p.ID]
		u.closed = registered
		pm.unregisterLocked(p)
	}
	return u, err
}

func (pm *PaginatorManager) unregisterLocked(p *Paginator) {
	delete(pm.byID, p.ID)
	delete(pm.byMessage, p.MessageID)
	pm.metrics.SetPaginatorsActive(len(pm.byID))
}

// HandleInteraction handles paginator button presses. It returns false for other interactions.
func (pm *PaginatorManager) HandleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) bool {
	if i.Type != discordgo.InteractionMessageComponent {
		return false
	}
	id, action, ok := ParseCustomID(i.MessageComponentData().CustomID)
	if !ok {
		return false
	}

	rest := pm.restFor(s)

	pm.mu.Lock()
	p := pm.byID[id]
	pm.mu.Unlock()
	if p == nil {
		pm.metrics.ObservePaginatorAction(string(action), "closed")
		pm.respondEphemeral(rest, i.Interaction, "⌛ Este paginador ha expirado.")
		return true
	}

	userID := ""
	if i.Member != nil && i.Member.User != nil {
		userID = i.Member.User.ID
	} else if i.User != nil {
		userID = i.User.ID
	}

	update, err := pm.apply(p, userID, action)
	switch {
	case errors.Is(err, ErrNotOwner):
		pm.metrics.ObservePaginatorAction(string(action), "not_owner")
		pm.respondEphemeral(rest, i.Interaction, "🔒 Solo quien ejecutó el comando puede usar estos botones.")
		return true
	case errors.Is(err, ErrPaginatorClosed) && update.closed:
		// expired on this press, before any sweep saw it: drop the buttons now
		pm.metrics.ObservePaginatorAction(string(action), "closed")
		pm.respondUpdate(rest, i.Interaction, update)
		return true
	case errors.Is(err, ErrPaginatorClosed):
		pm.metrics.ObservePaginatorAction(string(action), "closed")
		pm.respondEphemeral(rest, i.Interaction, "⌛ Este paginador ha expirado.")
		return true
	case err != nil:
		pm.metrics.ObservePaginatorAction(string(action), "invalid")
		pm.respondEphemeral(rest, i.Interaction, "❌ Acción no reconocida.")
		return true
	}

	pm.metrics.ObservePaginatorAction(string(action), "ok")
	pm.respondUpdate(rest, i.Interaction, update)
	return true
}

// respondUpdate edits the paginated message in place as the interaction response
func (pm *PaginatorManager) respondUpdate(rest RestSession, i *discordgo.Interaction, update pageUpdate) {
	err := rest.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{update.embed},
			Components: update.components,
		},
	})
	if err != nil {
		logger.Warn("Error actualizando el paginador: "+err.Error(), "Paginator")
	}
}

func (pm *PaginatorManager) respondEphemeral(rest RestSession, i *discordgo.Interaction, content string) {
	err := rest.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		logger.Warn("Error respondiendo al paginador: "+err.Error(), "Paginator")
	}
}

// HandleReaction handles reactions on paginated messages. It returns false
// when the reaction does not belong to a paginator.
func (pm *PaginatorManager) HandleReaction(s *discordgo.Session, r *discordgo.MessageReactionAdd) bool {
	if r.UserID == botUserID(s) {
		return false
	}

	pm.mu.Lock()
	p := pm.byMessage[r.MessageID]
	pm.mu.Unlock()
	if p == nil {
		return false
	}

	action, ok := ReactionAction(r.Emoji.Name)
	if !ok {
		return false
	}

	rest := pm.restFor(s)
	if err := rest.MessageReactionRemove(r.ChannelID, r.MessageID, r.Emoji.APIName(), r.UserID); err != nil {
		logger.Debug("No se pudo quitar la reacción: "+err.Error(), "Paginator")
	}

	update, err := pm.apply(p, r.UserID, action)
	if err != nil {
		result := "closed"
		if errors.Is(err, ErrNotOwner) {
			result = "not_owner"
		}
		pm.metrics.ObservePaginatorAction(string(action), result)
		if update.closed {
			if err := rest.MessageReactionsRemoveAll(r.ChannelID, r.MessageID); err != nil {
				logger.Debug("No se pudieron quitar las reacciones: "+err.Error(), "Paginator")
			}
		}
		return true
	}
	pm.metrics.ObservePaginatorAction(string(action), "ok")

	edit := discordgo.NewMessageEdit(r.ChannelID, r.MessageID)
	edit.Embeds = &[]*discordgo.MessageEmbed{update.embed}
	if _, err := rest.ChannelMessageEditComplex(edit); err != nil {
		logger.Warn("Error actualizando el paginador: "+err.Error(), "Paginator")
	}
	if update.state != PaginatorActive {
		if err := rest.MessageReactionsRemoveAll(r.ChannelID, r.MessageID); err != nil {
			logger.Debug("No se pudieron quitar las reacciones: "+err.Error(), "Paginator")
		}
	}
	return true
}

// Sweep expires idle paginators and strips their controls. It returns how many expired.
func (pm *PaginatorManager) Sweep(now time.Time) int {
	pm.mu.Lock()
	var expired []*Paginator
	for _, p := range pm.byID {
		if p.Expire(now) {
			expired = append(expired, p)
		}
	}
	for _, p := range expired {
		pm.unregisterLocked(p)
	}
	pm.mu.Unlock()

	for _, p := range expired {
		pm.removeControls(p, now)
	}
	if len(expired) > 0 {
		logger.Debug(fmt.Sprintf("%d paginadores expirados", len(expired)), "Paginator")
	}
	return len(expired)
}

func (pm *PaginatorManager) removeControls(p *Paginator, now time.Time) {
	if p.rest == nil {
		return
	}

	var err error
	switch {
	case pm.Mode == ModeReactions:
		err = p.rest.MessageReactionsRemoveAll(p.ChannelID, p.MessageID)
	case p.interaction != nil && now.Sub(p.createdAt) < interactionEditWindow:
		empty := []discordgo.MessageComponent{}
		_, err = p.rest.InteractionResponseEdit(p.interaction, &discordgo.WebhookEdit{Components: &empty})
	default:
		empty := []discordgo.MessageComponent{}
		edit := discordgo.NewMessageEdit(p.ChannelID, p.MessageID)
		edit.Components = &empty
		_, err = p.rest.ChannelMessageEditComplex(edit)
	}
	if err != nil {
		logger.Debug("No se pudieron quitar los controles del paginador: "+err.Error(), "Paginator")
	}
}

// Run sweeps expired paginators every interval until Stop
func (pm *PaginatorManager) Run(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				pm.Sweep(pm.now())
			case <-pm.stop:
				return
			}
		}
	}()
}

// Active returns the number of registered paginators
func (pm *PaginatorManager) Active() int {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return len(pm.byID)
}

// Stop ends the sweep loop
func (pm *PaginatorManager) Stop() {
	pm.stopOnce.Do(func() { close(pm.stop) })
}
