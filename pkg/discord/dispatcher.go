package discord

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PancyStudios/HelperBot/pkg/anticrash"
	"github.com/PancyStudios/HelperBot/pkg/logger"
	"github.com/PancyStudios/HelperBot/pkg/metrics"
	"github.com/PancyStudios/HelperBot/pkg/models"
	"github.com/bwmarrin/discordgo"
)

// Invocation sources
const (
	SourceSlash        = "slash"
	SourceText         = "text"
	SourceAutocomplete = "autocomplete"
)

// maxAutocompleteChoices is the most choices Discord accepts in one response
const maxAutocompleteChoices = 25

// BlacklistChecker answers the blacklist gate
type BlacklistChecker interface {
	IsUserBlacklisted(userID string) (bool, *models.BlacklistEntry)
	IsGuildBlacklisted(guildID string) (bool, *models.BlacklistEntry)
}

// UsageRecorder bumps the usage counter of the invoking member
type UsageRecorder interface {
	RecordCommand(guildID string, m models.Member) error
}

// CommandEvent describes one finished or denied invocation
type CommandEvent struct {
	Command   string        `json:"command"`
	Source    string        `json:"source"`
	UserID    string        `json:"userId"`
	GuildID   string        `json:"guildId,omitempty"`
	ChannelID string        `json:"channelId"`
	Outcome   string        `json:"outcome"`
	Reason    string        `json:"reason,omitempty"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
	At        time.Time     `json:"at"`
}

// CommandObserver receives every CommandEvent, e.g. for auditing
type CommandObserver interface {
	CommandExecuted(ev CommandEvent)
}

// CommandObserverFunc adapts a function to CommandObserver
type CommandObserverFunc func(ev CommandEvent)

// CommandExecuted implements CommandObserver
func (f CommandObserverFunc) CommandExecuted(ev CommandEvent) {
	f(ev)
}

// Dispatcher is the single entry point for slash, autocomplete and text invocations
type Dispatcher struct {
	Registry        *Registry
	Client          *ExtendedClient
	Prefix          string
	IsDeveloper     func(userID string) bool
	Blacklist       BlacklistChecker
	Usage           UsageRecorder
	Metrics         *metrics.Metrics
	DefaultCooldown time.Duration
	// LeaveDelay is how long the bot waits before leaving a blacklisted guild
	LeaveDelay time.Duration

	cooldowns *Cooldowns
	observers []CommandObserver
	leaving   sync.Map // guild id -> time.Time the leave was scheduled
	mu        sync.RWMutex
	restFor   func(s *discordgo.Session) RestSession
	now       func() time.Time
}

// NewDispatcher creates a dispatcher over a registry
func NewDispatcher(registry *Registry, prefix string) *Dispatcher {
	return &Dispatcher{
		Registry:   registry,
		Prefix:     prefix,
		LeaveDelay: 2 * time.Second,
		cooldowns:  NewCooldowns(),
		restFor:    restFromSession,
		now:        time.Now,
	}
}

// SetRestFactory replaces how replies reach Discord; nil restores the session itself
func (d *Dispatcher) SetRestFactory(fn func(s *discordgo.Session) RestSession) {
	if fn == nil {
		fn = restFromSession
	}
	d.restFor = fn
}

// AddObserver registers an observer notified after every invocation
func (d *Dispatcher) AddObserver(o CommandObserver) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.observers = append(d.observers, o)
}

// Cooldowns exposes the cooldown table, swept periodically by the client
func (d *Dispatcher) Cooldowns() *Cooldowns {
	return d.cooldowns
}

func (d *Dispatcher) notify(ev CommandEvent) {
	d.mu.RLock()
	observers := make([]CommandObserver, len(d.observers))
	copy(observers, d.observers)
	d.mu.RUnlock()

	for _, o := range observers {
		func() {
			defer anticrash.RecoverMiddleware()()
			o.CommandExecuted(ev)
		}()
	}
}

// HandleInteraction dispatches slash commands and autocomplete requests.
// It returns false for interaction types it does not handle.
func (d *Dispatcher) HandleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) bool {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		d.handleSlash(s, i)
		return true
	case discordgo.InteractionApplicationCommandAutocomplete:
		d.handleAutocomplete(s, i)
		return true
	}
	return false
}

func (d *Dispatcher) handleSlash(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := &CommandContext{Session: s, Interaction: i, Client: d.Client, rest: d.restFor(s)}

	data := i.ApplicationCommandData()
	res, err := d.Registry.ResolveInteraction(data)
	if err != nil {
		logger.Warn(fmt.Sprintf("Comando no encontrado: %s (%v)", data.Name, err), "Dispatcher")
		_ = ctx.ReplyEphemeral("❌ Este comando ya no existe o no está disponible.")
		return
	}

	ctx.Command = res.Command
	ctx.options = res.Options
	d.execute(ctx, SourceSlash)
}

func (d *Dispatcher) handleAutocomplete(s *discordgo.Session, i *discordgo.InteractionCreate) {
	defer anticrash.RecoverMiddleware()()

	res, err := d.Registry.ResolveInteraction(i.ApplicationCommandData())
	if err != nil || res.Command.AutoComplete == nil {
		return
	}

	ctx := &CommandContext{
		Session:     s,
		Interaction: i,
		Client:      d.Client,
		Command:     res.Command,
		options:     res.Options,
		rest:        d.restFor(s),
	}

	choices := res.Command.AutoComplete(ctx)
	if len(choices) > maxAutocompleteChoices {
		choices = choices[:maxAutocompleteChoices]
	}
	if choices == nil {
		choices = []*discordgo.ApplicationCommandOptionChoice{}
	}

	err = ctx.Rest().InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{Choices: choices},
	})
	if err != nil {
		logger.Warn("Error respondiendo autocompletado de "+res.Command.FullName()+": "+err.Error(), "Dispatcher")
	}
	d.Metrics.ObserveCommand(res.Command.FullName(), SourceAutocomplete, metrics.OutcomeOK, 0)
}

// HandleMessage dispatches text commands invoked with the prefix or a bot mention.
// It returns false when the message is not a command invocation.
func (d *Dispatcher) HandleMessage(s *discordgo.Session, m *discordgo.MessageCreate) bool {
	if m.Author == nil || m.Author.Bot || m.WebhookID != "" {
		return false
	}

	body, ok := d.stripPrefix(m.Content, botUserID(s))
	if !ok {
		return false
	}
	tokens := tokenize(body)
	if len(tokens) == 0 {
		return false
	}

	ctx := &CommandContext{Session: s, Message: m, Client: d.Client, rest: d.restFor(s)}

	res, err := d.Registry.resolveTokens(tokens)
	if err != nil {
		var unknown *UnknownSubcommandError
		if errors.As(err, &unknown) {
			_ = ctx.Reply(subcommandHint(unknown))
			return true
		}
		return false
	}

	ctx.Command = res.Command
	ctx.Args = res.Args
	ctx.argTokens = res.tokens
	d.execute(ctx, SourceText)
	return true
}

// stripPrefix removes the command prefix or a leading bot mention from content
func (d *Dispatcher) stripPrefix(content, botID string) (string, bool) {
	content = strings.TrimSpace(content)
	if d.Prefix != "" && strings.HasPrefix(content, d.Prefix) {
		return content[len(d.Prefix):], true
	}
	if botID == "" {
		return "", false
	}
	for _, mention := range []string{"<@" + botID + ">", "<@!" + botID + ">"} {
		if strings.HasPrefix(content, mention) {
			return content[len(mention):], true
		}
	}
	return "", false
}

// subcommandHint lists the subcommands of a group that was invoked without a valid one
func subcommandHint(e *UnknownSubcommandError) string {
	var names []string
	for _, sub := range e.Command.Subcommands {
		if sub.AllowsText() {
			names = append(names, "`"+sub.Name+"`")
		}
	}
	msg := fmt.Sprintf("❓ `%s` necesita un subcomando: %s", e.Command.DisplayName(), strings.Join(names, ", "))
	if e.Token != "" {
		msg = fmt.Sprintf("❓ Subcomando desconocido `%s`. Disponibles: %s", e.Token, strings.Join(names, ", "))
	}
	return msg
}

// execute runs the gates and the handler of a resolved command
func (d *Dispatcher) execute(ctx *CommandContext, source string) {
	cmd := ctx.Command
	user := ctx.User()
	if user == nil {
		return
	}

	ev := CommandEvent{
		Command:   cmd.FullName(),
		Source:    source,
		UserID:    user.ID,
		GuildID:   ctx.GuildID(),
		ChannelID: ctx.ChannelID(),
		At:        d.now(),
	}

	if reason, msg := d.checkGates(ctx, source); reason != "" {
		if msg != nil {
			d.deny(ctx, msg)
		}
		ev.Outcome = metrics.OutcomeDenied
		ev.Reason = reason
		d.Metrics.ObserveCommand(ev.Command, source, ev.Outcome, 0)
		d.notify(ev)
		logger.Debug(fmt.Sprintf("Comando %s denegado a %s: %s", ev.Command, user.ID, reason), "Dispatcher")
		return
	}

	if ctx.IsText() {
		opts, err := parseTextOptions(cmd.Options, ctx.argTokens)
		if err != nil {
			_ = ctx.Reply(argumentError(cmd, err))
			ev.Outcome = metrics.OutcomeDenied
			ev.Reason = "invalid_args"
			d.Metrics.ObserveCommand(ev.Command, source, ev.Outcome, 0)
			d.notify(ev)
			return
		}
		ctx.options = opts
	}

	start := d.now()
	outcome, err := d.run(ctx)
	ev.Duration = d.now().Sub(start)
	ev.Outcome = outcome
	if err != nil {
		ev.Error = err.Error()
	}

	d.Metrics.ObserveCommand(ev.Command, source, outcome, ev.Duration)
	d.notify(ev)

	if d.Usage != nil && ev.GuildID != "" {
		if err := d.Usage.RecordCommand(ev.GuildID, ctx.Caller()); err != nil {
			logger.Warn("Error registrando uso de comando: "+err.Error(), "Dispatcher")
		}
	}
}

// checkGates returns the reason of the first failing gate and the message shown to the user
func (d *Dispatcher) checkGates(ctx *CommandContext, source string) (string, *discordgo.MessageEmbed) {
	user := ctx.User()
	guildID := ctx.GuildID()
	req := requirementsOf(ctx.Command)

	if d.Blacklist != nil {
		if listed, entry := d.Blacklist.IsUserBlacklisted(user.ID); listed {
			logger.Warn(fmt.Sprintf("Usuario blacklisted intentó usar comando: %s", user.ID), "Dispatcher")
			return "blacklist_user", blacklistEmbed("🚫 Acceso Denegado",
				"Tu cuenta ha sido añadida a la blacklist y no puedes usar este bot.", entry)
		}
		if guildID != "" {
			if listed, entry := d.Blacklist.IsGuildBlacklisted(guildID); listed {
				logger.Warn(fmt.Sprintf("Servidor blacklisted detectado: %s. Saliendo...", guildID), "Dispatcher")
				d.leaveGuild(ctx.Rest(), guildID)
				return "blacklist_guild", blacklistEmbed("🚫 Servidor en Blacklist",
					"Este servidor ha sido añadido a la blacklist. El bot se retirará automáticamente.", entry)
			}
		}
	}

	isDev := d.IsDeveloper != nil && d.IsDeveloper(user.ID)
	if req.dev && !isDev {
		return "dev_only", denyEmbed("⛔ Este comando es solo para desarrolladores.")
	}

	if req.guildOnly && guildID == "" {
		return "guild_only", denyEmbed("🏠 Este comando solo puede usarse dentro de un servidor.")
	}

	if guildID != "" && req.userPerms != 0 {
		have, err := d.userPermissions(ctx, user.ID)
		if err != nil {
			logger.Warn("No se pudieron obtener los permisos del usuario: "+err.Error(), "Dispatcher")
			return "permissions_unknown", denyEmbed("⚠️ No pude comprobar tus permisos, inténtalo de nuevo.")
		}
		if missing := missingPermissions(have, req.userPerms); missing != 0 {
			return "user_permissions", denyEmbed("🔒 Te faltan permisos para usar este comando: " + joinPermissionNames(missing))
		}
	}

	if guildID != "" && req.botPerms != 0 {
		have, err := d.botPermissions(ctx)
		if err != nil {
			logger.Warn("No se pudieron obtener los permisos del bot: "+err.Error(), "Dispatcher")
			return "permissions_unknown", denyEmbed("⚠️ No pude comprobar mis permisos en este canal.")
		}
		if missing := missingPermissions(have, req.botPerms); missing != 0 {
			return "bot_permissions", denyEmbed("🤖 Me faltan permisos para ejecutar este comando: " + joinPermissionNames(missing))
		}
	}

	if !isDev {
		every := req.cooldown
		if every == 0 {
			every = d.DefaultCooldown
		}
		if every > 0 && d.cooldowns != nil {
			if wait, ok := d.cooldowns.Allow(cooldownKey(ctx.Command, user.ID), every, d.now()); !ok {
				return "cooldown", denyEmbed(fmt.Sprintf("⏳ Espera %.1f segundos antes de volver a usar `%s`.",
					wait.Seconds(), ctx.Command.DisplayName()))
			}
		}
	}

	return "", nil
}

func (d *Dispatcher) userPermissions(ctx *CommandContext, userID string) (int64, error) {
	if ctx.Interaction != nil && ctx.Interaction.Member != nil {
		return ctx.Interaction.Member.Permissions, nil
	}
	return ctx.Rest().UserChannelPermissions(userID, ctx.ChannelID())
}

func (d *Dispatcher) botPermissions(ctx *CommandContext) (int64, error) {
	if ctx.Interaction != nil {
		return ctx.Interaction.AppPermissions, nil
	}
	return ctx.Rest().UserChannelPermissions(botUserID(ctx.Session), ctx.ChannelID())
}

// leaveRetry is how long a scheduled leave blocks new ones for the same guild
const leaveRetry = time.Minute

// leaveGuild leaves a blacklisted guild after LeaveDelay. Invocations arriving
// while a leave is pending do not schedule another one.
func (d *Dispatcher) leaveGuild(rest RestSession, guildID string) {
	now := d.now()
	if prev, loaded := d.leaving.LoadOrStore(guildID, now); loaded {
		if now.Sub(prev.(time.Time)) < leaveRetry || !d.leaving.CompareAndSwap(guildID, prev, now) {
			return
		}
	}

	leave := func() {
		if err := rest.GuildLeave(guildID); err != nil {
			logger.Error(fmt.Sprintf("Error saliendo del servidor blacklisted %s: %v", guildID, err), "Dispatcher")
			d.leaving.Delete(guildID)
		}
	}
	if d.LeaveDelay <= 0 {
		leave()
		return
	}
	time.AfterFunc(d.LeaveDelay, leave)
}

// run calls the handler, turning panics into an error outcome
func (d *Dispatcher) run(ctx *CommandContext) (outcome string, err error) {
	defer func() {
		if r := recover(); r != nil {
			anticrash.Recover(r)
			outcome = metrics.OutcomePanic
			err = fmt.Errorf("panic: %v", r)
			d.replyFailure(ctx)
		}
	}()

	if err := ctx.Command.Run(ctx); err != nil {
		logger.Error("Error ejecutando el comando "+ctx.Command.FullName()+": "+err.Error(), "Dispatcher")
		d.replyFailure(ctx)
		return metrics.OutcomeError, err
	}
	return metrics.OutcomeOK, nil
}

func (d *Dispatcher) replyFailure(ctx *CommandContext) {
	if err := ctx.ReplyEphemeralEmbed(denyEmbed("❌ Ocurrió un error al ejecutar el comando.")); err != nil {
		logger.Warn("No se pudo notificar el error al usuario: "+err.Error(), "Dispatcher")
	}
}

func (d *Dispatcher) deny(ctx *CommandContext, embed *discordgo.MessageEmbed) {
	if err := ctx.ReplyEphemeralEmbed(embed); err != nil {
		logger.Warn("No se pudo enviar la denegación: "+err.Error(), "Dispatcher")
	}
}

func denyEmbed(description string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{Description: description, Color: 0xFF0000}
}

func blacklistEmbed(title, description string, entry *models.BlacklistEntry) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       0xFF0000,
		Timestamp:   time.Now().Format(time.RFC3339),
	}
	if entry != nil && entry.Reason != "" {
		embed.Fields = []*discordgo.MessageEmbedField{{Name: "Razón", Value: entry.Reason}}
	}
	return embed
}

// argumentError explains a text argument problem together with the usage line
func argumentError(cmd *Command, err error) string {
	var optErr *OptionError
	msg := "❌ Argumentos inválidos."
	if errors.As(err, &optErr) {
		switch {
		case errors.Is(err, ErrMissingOption):
			msg = fmt.Sprintf("❌ Falta el argumento `%s`.", optErr.Option.Name)
		default:
			msg = fmt.Sprintf("❌ Valor inválido para `%s`: `%s`.", optErr.Option.Name, optErr.Value)
		}
	}
	return msg + "\nUso: `" + Usage(cmd) + "`"
}

// Usage returns the text synopsis of a command, e.g. "tag create <nombre> <contenido>"
func Usage(cmd *Command) string {
	if cmd.Usage != "" {
		return cmd.DisplayName() + " " + cmd.Usage
	}
	parts := []string{cmd.DisplayName()}
	for _, opt := range cmd.Options {
		if opt.Required {
			parts = append(parts, "<"+opt.Name+">")
		} else {
			parts = append(parts, "["+opt.Name+"]")
		}
	}
	return strings.Join(parts, " ")
}
