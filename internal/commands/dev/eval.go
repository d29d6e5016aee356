package dev

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PancyStudios/HelperBot/pkg/discord"
	"github.com/PancyStudios/HelperBot/pkg/logger"
	"github.com/bwmarrin/discordgo"
	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

const (
	evalExportPath = "github.com/PancyStudios/HelperBot/internal/commands/dev"
	maxEvalOutput  = 1900
)

// evalTimeout bounds a single evaluation
var evalTimeout = 10 * time.Second

// evalCommand crea el comando /dev eval
func (h *handlers) evalCommand() *discord.Command {
	return discord.NewCommand(
		"eval",
		"Evalúa código Go y muestra estructuras internas (Peligroso)",
		"dev",
		h.eval,
	).WithOptions(
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "codigo",
			Description: "Código o expresión Go a evaluar",
			Required:    true,
		},
	)
}

func (h *handlers) eval(ctx *discord.CommandContext) error {
	start := time.Now()
	if err := ctx.Defer(); err != nil {
		return err
	}

	res, err := h.evaluate(ctx, cleanCode(ctx.GetStringOption("codigo")))

	var output string
	if err != nil {
		output = fmt.Sprintf("❌ **Error de Ejecución:**\n```go\n%v\n```", err)
	} else {
		output = fmt.Sprintf("✅ **Resultado:**\n```go\n%s\n```", formatResult(res))
	}

	logger.Debug(fmt.Sprintf("Eval de %s completado en %s", getUserName(ctx), time.Since(start)), "DevEval")
	return ctx.EditReply(output)
}

// cleanCode strips markdown code fences
func cleanCode(code string) string {
	code = strings.TrimSpace(code)
	code = strings.TrimPrefix(code, "```go")
	code = strings.TrimPrefix(code, "```")
	code = strings.TrimSuffix(code, "```")
	return strings.TrimSpace(code)
}

// evaluate runs code in a fresh interpreter with the bot objects in scope
func (h *handlers) evaluate(ctx *discord.CommandContext, code string) (reflect.Value, error) {
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return reflect.Value{}, fmt.Errorf("cargando stdlib: %w", err)
	}

	exports := map[string]reflect.Value{
		"Ctx":       reflect.ValueOf(ctx),
		"Bot":       reflect.ValueOf(ctx.Client),
		"Session":   reflect.ValueOf(ctx.Session),
		"Users":     reflect.ValueOf(h.deps.Users),
		"Blacklist": reflect.ValueOf(h.deps.Blacklist),
		"Config":    reflect.ValueOf(h.deps.Config),
	}
	if err := i.Use(interp.Exports{evalExportPath + "/dev": exports}); err != nil {
		return reflect.Value{}, fmt.Errorf("registrando variables: %w", err)
	}
	if _, err := i.Eval(`import . "` + evalExportPath + `"`); err != nil {
		return reflect.Value{}, fmt.Errorf("importando variables: %w", err)
	}

	evalCtx, cancel := context.WithTimeout(context.Background(), evalTimeout)
	defer cancel()

	res, err := i.EvalWithContext(evalCtx, code)
	if errors.Is(err, context.DeadlineExceeded) {
		return reflect.Value{}, fmt.Errorf("tiempo agotado tras %s", evalTimeout)
	}
	return res, err
}

func formatResult(res reflect.Value) string {
	out := "nil"
	if res.IsValid() && res.CanInterface() {
		out = fmt.Sprintf("%#v", res.Interface())
	}
	if len(out) > maxEvalOutput {
		cut := maxEvalOutput
		for cut > 0 && !utf8.RuneStart(out[cut]) {
			cut--
		}
		out = out[:cut] + "... (truncado)"
	}
	return out
}
