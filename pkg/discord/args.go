package discord

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
)

var (
	ErrMissingOption = errors.New("missing required option")
	ErrInvalidOption = errors.New("invalid option value")
)

// OptionError tells which option could not be filled from text arguments
type OptionError struct {
	Option *discordgo.ApplicationCommandOption
	Value  string
	Err    error
}

func (e *OptionError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %s", e.Err, e.Option.Name)
	}
	return fmt.Sprintf("%s: %s=%q", e.Err, e.Option.Name, e.Value)
}

func (e *OptionError) Unwrap() error {
	return e.Err
}

// token is one argument of a text invocation; start/end are byte offsets in the raw input
type token struct {
	value      string
	start, end int
	raw        string
}

// Tokenize splits a text invocation into arguments. Double quotes group words
// and code blocks fenced with ``` are kept whole.
func Tokenize(input string) []string {
	toks := tokenize(input)
	out := make([]string, len(toks))
	for i, t := range toks {
		out[i] = t.value
	}
	return out
}

func tokenize(s string) []token {
	var out []token
	n := len(s)
	i := 0

	for i < n {
		r, size := utf8.DecodeRuneInString(s[i:])
		if unicode.IsSpace(r) {
			i += size
			continue
		}

		start := i
		var b strings.Builder
	word:
		for i < n {
			if strings.HasPrefix(s[i:], "```") {
				end := strings.Index(s[i+3:], "```")
				if end < 0 {
					b.WriteString(s[i:])
					i = n
					break word
				}
				stop := i + 3 + end + 3
				b.WriteString(s[i:stop])
				i = stop
				continue
			}

			r, size := utf8.DecodeRuneInString(s[i:])
			switch {
			case unicode.IsSpace(r):
				break word
			case r == '"':
				end := strings.IndexByte(s[i+1:], '"')
				if end < 0 {
					b.WriteString(s[i+1:])
					i = n
					break word
				}
				b.WriteString(s[i+1 : i+1+end])
				i += end + 2
			default:
				b.WriteString(s[i : i+size])
				i += size
			}
		}

		out = append(out, token{value: b.String(), start: start, end: i, raw: s})
	}
	return out
}

// parseTextOptions maps positional tokens onto the command options. A trailing
// string option takes the rest of the input verbatim.
func parseTextOptions(defs []*discordgo.ApplicationCommandOption, tokens []token) ([]*discordgo.ApplicationCommandInteractionDataOption, error) {
	var parsed []*discordgo.ApplicationCommandInteractionDataOption

	for idx, def := range defs {
		if def.Type == discordgo.ApplicationCommandOptionSubCommand || def.Type == discordgo.ApplicationCommandOptionSubCommandGroup {
			continue
		}
		if idx >= len(tokens) {
			if def.Required {
				return nil, &OptionError{Option: def, Err: ErrMissingOption}
			}
			continue
		}

		tok := tokens[idx]
		raw := tok.value
		if def.Type == discordgo.ApplicationCommandOptionString && idx == len(defs)-1 && len(tokens) > idx+1 {
			raw = strings.TrimSpace(tok.raw[tok.start:tokens[len(tokens)-1].end])
		}

		value, err := convertOption(def, raw)
		if err != nil {
			return nil, &OptionError{Option: def, Value: raw, Err: err}
		}
		parsed = append(parsed, &discordgo.ApplicationCommandInteractionDataOption{
			Name:  def.Name,
			Type:  def.Type,
			Value: value,
		})
	}
	return parsed, nil
}

var (
	userMention    = regexp.MustCompile(`^<@!?(\d+)>$`)
	channelMention = regexp.MustCompile(`^<#(\d+)>$`)
	roleMention    = regexp.MustCompile(`^<@&(\d+)>$`)
	snowflake      = regexp.MustCompile(`^\d{15,21}$`)
)

// convertOption converts raw text into the value type discordgo decodes for the option type
func convertOption(def *discordgo.ApplicationCommandOption, raw string) (interface{}, error) {
	var value interface{}

	switch def.Type {
	case discordgo.ApplicationCommandOptionString:
		if def.MinLength != nil && utf8.RuneCountInString(raw) < *def.MinLength {
			return nil, ErrInvalidOption
		}
		if def.MaxLength > 0 && utf8.RuneCountInString(raw) > def.MaxLength {
			return nil, ErrInvalidOption
		}
		value = raw
	case discordgo.ApplicationCommandOptionInteger:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, ErrInvalidOption
		}
		if !inRange(def, float64(n)) {
			return nil, ErrInvalidOption
		}
		value = float64(n)
	case discordgo.ApplicationCommandOptionNumber:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil || !inRange(def, f) {
			return nil, ErrInvalidOption
		}
		value = f
	case discordgo.ApplicationCommandOptionBoolean:
		b, ok := parseBool(raw)
		if !ok {
			return nil, ErrInvalidOption
		}
		value = b
	case discordgo.ApplicationCommandOptionUser:
		id, ok := parseID(raw, userMention)
		if !ok {
			return nil, ErrInvalidOption
		}
		value = id
	case discordgo.ApplicationCommandOptionChannel:
		id, ok := parseID(raw, channelMention)
		if !ok {
			return nil, ErrInvalidOption
		}
		value = id
	case discordgo.ApplicationCommandOptionRole:
		id, ok := parseID(raw, roleMention)
		if !ok {
			return nil, ErrInvalidOption
		}
		value = id
	case discordgo.ApplicationCommandOptionMentionable:
		id, ok := parseID(raw, userMention)
		if !ok {
			id, ok = parseID(raw, roleMention)
		}
		if !ok {
			return nil, ErrInvalidOption
		}
		value = id
	default:
		return nil, ErrInvalidOption
	}

	if len(def.Choices) > 0 {
		return matchChoice(def.Choices, value)
	}
	return value, nil
}

func inRange(def *discordgo.ApplicationCommandOption, v float64) bool {
	if def.MinValue != nil && v < *def.MinValue {
		return false
	}
	if def.MaxValue != 0 && v > def.MaxValue {
		return false
	}
	return true
}

// matchChoice accepts either the choice name or its value, case-insensitively
func matchChoice(choices []*discordgo.ApplicationCommandOptionChoice, value interface{}) (interface{}, error) {
	given := fmt.Sprint(value)
	for _, c := range choices {
		if strings.EqualFold(c.Name, given) || strings.EqualFold(fmt.Sprint(c.Value), given) {
			switch v := c.Value.(type) {
			case int:
				return float64(v), nil
			case int64:
				return float64(v), nil
			default:
				return v, nil
			}
		}
	}
	return nil, ErrInvalidOption
}

func parseBool(raw string) (bool, bool) {
	switch strings.ToLower(raw) {
	case "true", "si", "sí", "yes", "1", "on":
		return true, true
	case "false", "no", "0", "off":
		return false, true
	}
	return false, false
}

func parseID(raw string, mention *regexp.Regexp) (string, bool) {
	if m := mention.FindStringSubmatch(raw); m != nil {
		return m[1], true
	}
	if snowflake.MatchString(raw) {
		return raw, true
	}
	return "", false
}
