package dispatch

import (
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/bwmarrin/discordgo"
)

// token is one whitespace-delimited word plus its byte offset in the raw
// argument string, so remainder parameters can recover original spacing.
type token struct {
	text   string
	offset int
}

// tokenize splits raw into whitespace-delimited tokens with offsets.
func tokenize(raw string) []token {
	var tokens []token
	start := -1
	for i, r := range raw {
		if unicode.IsSpace(r) {
			if start >= 0 {
				tokens = append(tokens, token{text: raw[start:i], offset: start})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		tokens = append(tokens, token{text: raw[start:], offset: start})
	}
	return tokens
}

// bindArgs converts tokens into typed values following the command's Param
// schema, greedy left to right. Conversion failure yields BadArgument.
func bindArgs(guild *discordgo.Guild, params []Param, raw string) ([]any, error) {
	tokens := tokenize(raw)
	args := make([]any, 0, len(params))
	pos := 0

	for _, p := range params {
		if p.Kind == KindRemainder {
			if pos >= len(tokens) {
				if p.Optional {
					args = append(args, nil)
					continue
				}
				return nil, &BadArgument{Param: p.Name, Reason: "missing required argument"}
			}
			args = append(args, raw[tokens[pos].offset:])
			pos = len(tokens)
			continue
		}

		if p.Greedy {
			var got []any
			for pos < len(tokens) {
				v, err := convertOne(guild, p.Kind, tokens[pos].text)
				if err != nil {
					break
				}
				got = append(got, v)
				pos++
			}
			args = append(args, materializeGreedy(p.Kind, got))
			continue
		}

		if pos >= len(tokens) {
			if p.Optional {
				args = append(args, nil)
				continue
			}
			return nil, &BadArgument{Param: p.Name, Reason: "missing required argument"}
		}

		v, err := convertOne(guild, p.Kind, tokens[pos].text)
		if err != nil {
			if p.Optional {
				args = append(args, nil)
				continue
			}
			return nil, err
		}
		args = append(args, v)
		pos++
	}

	return args, nil
}

// materializeGreedy gives greedy results a stable concrete type so handlers
// can type-assert without reflection.
func materializeGreedy(kind ArgKind, got []any) any {
	switch kind {
	case KindMember:
		members := make([]*discordgo.Member, len(got))
		for i, v := range got {
			members[i] = v.(*discordgo.Member)
		}
		return members
	case KindRole:
		roles := make([]*discordgo.Role, len(got))
		for i, v := range got {
			roles[i] = v.(*discordgo.Role)
		}
		return roles
	case KindChannel:
		channels := make([]*discordgo.Channel, len(got))
		for i, v := range got {
			channels[i] = v.(*discordgo.Channel)
		}
		return channels
	case KindInt:
		ints := make([]int64, len(got))
		for i, v := range got {
			ints[i] = v.(int64)
		}
		return ints
	default:
		strs := make([]string, len(got))
		for i, v := range got {
			strs[i] = v.(string)
		}
		return strs
	}
}

func convertOne(guild *discordgo.Guild, kind ArgKind, tok string) (any, error) {
	switch kind {
	case KindString:
		return tok, nil
	case KindInt:
		n, err := strconv.ParseInt(tok, 10, 64)
		if err != nil {
			return nil, &BadArgument{Param: "integer", Value: tok, Reason: "not a whole number"}
		}
		return n, nil
	case KindAmount:
		return convertAmount(tok)
	case KindDuration:
		return ParseDuration(tok)
	case KindMember:
		return convertMember(guild, tok)
	case KindRole:
		return convertRole(guild, tok)
	case KindChannel:
		return convertChannel(guild, tok)
	default:
		return tok, nil
	}
}

func convertAmount(tok string) (any, error) {
	switch strings.ToLower(tok) {
	case "all":
		return Amount{All: true}, nil
	case "half":
		return Amount{Half: true}, nil
	}
	n, err := strconv.ParseInt(tok, 10, 64)
	if err != nil {
		return nil, &BadArgument{Param: "amount", Value: tok, Reason: "expected a number, \"all\" or \"half\""}
	}
	return Amount{Value: n}, nil
}

// ParseDuration parses the (integer unit)+ grammar with units s, m, h, d, w.
func ParseDuration(tok string) (time.Duration, error) {
	var total time.Duration
	rest := tok
	matched := false
	for len(rest) > 0 {
		i := 0
		for i < len(rest) && rest[i] >= '0' && rest[i] <= '9' {
			i++
		}
		if i == 0 || i >= len(rest) {
			return 0, &BadArgument{Param: "duration", Value: tok, Reason: "expected forms like 30s, 10m, 2h, 1d or 1w"}
		}
		n, err := strconv.ParseInt(rest[:i], 10, 64)
		if err != nil {
			return 0, &BadArgument{Param: "duration", Value: tok, Reason: "number too large"}
		}
		var unit time.Duration
		switch rest[i] {
		case 's':
			unit = time.Second
		case 'm':
			unit = time.Minute
		case 'h':
			unit = time.Hour
		case 'd':
			unit = 24 * time.Hour
		case 'w':
			unit = 7 * 24 * time.Hour
		default:
			return 0, &BadArgument{Param: "duration", Value: tok, Reason: "unknown unit, use s/m/h/d/w"}
		}
		total += time.Duration(n) * unit
		rest = rest[i+1:]
		matched = true
	}
	if !matched {
		return 0, &BadArgument{Param: "duration", Value: tok, Reason: "empty duration"}
	}
	return total, nil
}

func stripMention(tok, open string) (string, bool) {
	if strings.HasPrefix(tok, open) && strings.HasSuffix(tok, ">") {
		return tok[len(open) : len(tok)-1], true
	}
	return "", false
}

func isSnowflake(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func convertMember(guild *discordgo.Guild, tok string) (any, error) {
	if guild == nil {
		return nil, &BadArgument{Param: "member", Value: tok, Reason: "not in a server"}
	}

	id := ""
	if v, ok := stripMention(tok, "<@!"); ok {
		id = v
	} else if v, ok := stripMention(tok, "<@"); ok {
		id = v
	} else if isSnowflake(tok) {
		id = tok
	}

	if id != "" {
		for _, m := range guild.Members {
			if m.User != nil && m.User.ID == id {
				return m, nil
			}
		}
		return nil, &BadArgument{Param: "member", Value: tok, Reason: "no member with that id"}
	}

	lowered := strings.ToLower(tok)
	for _, m := range guild.Members {
		if m.User == nil {
			continue
		}
		if strings.ToLower(m.Nick) == lowered ||
			strings.ToLower(m.User.Username) == lowered ||
			strings.ToLower(m.User.GlobalName) == lowered {
			return m, nil
		}
	}
	return nil, &BadArgument{Param: "member", Value: tok, Reason: "no member with that name"}
}

func convertRole(guild *discordgo.Guild, tok string) (any, error) {
	if guild == nil {
		return nil, &BadArgument{Param: "role", Value: tok, Reason: "not in a server"}
	}

	id := ""
	if v, ok := stripMention(tok, "<@&"); ok {
		id = v
	} else if isSnowflake(tok) {
		id = tok
	}

	lowered := strings.ToLower(tok)
	for _, r := range guild.Roles {
		if id != "" && r.ID == id {
			return r, nil
		}
		if id == "" && strings.ToLower(r.Name) == lowered {
			return r, nil
		}
	}
	return nil, &BadArgument{Param: "role", Value: tok, Reason: "no role with that name or id"}
}

func convertChannel(guild *discordgo.Guild, tok string) (any, error) {
	if guild == nil {
		return nil, &BadArgument{Param: "channel", Value: tok, Reason: "not in a server"}
	}

	id := ""
	if v, ok := stripMention(tok, "<#"); ok {
		id = v
	} else if isSnowflake(tok) {
		id = tok
	}

	lowered := strings.ToLower(tok)
	for _, ch := range guild.Channels {
		if ch.Type != discordgo.ChannelTypeGuildText && ch.Type != discordgo.ChannelTypeGuildNews {
			continue
		}
		if id != "" && ch.ID == id {
			return ch, nil
		}
		if id == "" && strings.ToLower(ch.Name) == lowered {
			return ch, nil
		}
	}
	return nil, &BadArgument{Param: "channel", Value: tok, Reason: "no text channel with that name or id"}
}
