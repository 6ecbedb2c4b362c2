package common

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

// Embed accent colors.
const (
	ColorSuccess = 0x2ecc71
	ColorError   = 0xe74c3c
	ColorInfo    = 0x3498db
	ColorGold    = 0xf1c40f
)

// FormatBalance formats a currency amount with thousand separators
func FormatBalance(balance int64) string {
	str := fmt.Sprintf("%d", balance)
	if balance < 0 {
		str = str[1:]
	}

	n := len(str)
	var result strings.Builder
	if balance < 0 {
		result.WriteRune('-')
	}
	for i, digit := range str {
		if i > 0 && (n-i)%3 == 0 {
			result.WriteRune(',')
		}
		result.WriteRune(digit)
	}
	return result.String()
}

// FormatCoins renders an amount with the currency name.
func FormatCoins(amount int64) string {
	return fmt.Sprintf("**%s** coins", FormatBalance(amount))
}

// FormatDiscordTimestamp formats a time as a Discord timestamp that displays
// in the reader's local timezone. Format types: "t" short time, "d" short
// date, "f" date/time, "R" relative.
func FormatDiscordTimestamp(t time.Time, format string) string {
	return fmt.Sprintf("<t:%d:%s>", t.Unix(), format)
}

// FormatDuration renders a duration in the largest two useful units.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)

	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	seconds := (d - minutes*time.Minute) / time.Second

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}

// DisplayName returns the name a member shows in the guild.
func DisplayName(m *discordgo.Member) string {
	if m.Nick != "" {
		return m.Nick
	}
	if m.User.GlobalName != "" {
		return m.User.GlobalName
	}
	return m.User.Username
}

// SuccessEmbed builds a green embed.
func SuccessEmbed(description string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{Description: description, Color: ColorSuccess}
}

// ErrorEmbed builds a red embed.
func ErrorEmbed(description string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{Description: description, Color: ColorError}
}

// InfoEmbed builds a titled informational embed.
func InfoEmbed(title, description string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{Title: title, Description: description, Color: ColorInfo}
}
