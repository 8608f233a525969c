package surface

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/susu3304/nkmzplayer/internal/player"
)

const pagerPrefix = "queue"

// QueueMessage renders page (1-based, clamped) of pages with its navigation row.
func QueueMessage(guildID string, pages []player.Page, page int) (*discordgo.MessageEmbed, []discordgo.MessageComponent) {
	if len(pages) == 0 {
		return &discordgo.MessageEmbed{Title: "Queue", Description: "Nothing is in the queue!", Color: EmbedColor}, nil
	}
	page = clamp(page, 1, len(pages))
	p := pages[page-1]

	embed := &discordgo.MessageEmbed{
		Title:       "Queue",
		Description: p.Description,
		Color:       EmbedColor,
	}
	if p.Total <= 1 {
		return embed, nil
	}

	row := discordgo.ActionsRow{
		Components: []discordgo.MessageComponent{
			discordgo.Button{
				Style:    discordgo.SecondaryButton,
				Label:    "◀",
				CustomID: PagerID(guildID, page-1),
				Disabled: page <= 1,
			},
			discordgo.Button{
				Style:    discordgo.SecondaryButton,
				Label:    fmt.Sprintf("%d/%d", p.Number, p.Total),
				CustomID: pagerPrefix + ":indicator:" + guildID,
				Disabled: true,
			},
			discordgo.Button{
				Style:    discordgo.SecondaryButton,
				Label:    "▶",
				CustomID: PagerID(guildID, page+1),
				Disabled: page >= p.Total,
			},
		},
	}
	return embed, []discordgo.MessageComponent{row}
}

// PagerID encodes a page turn. The page is resolved against the queue as it
// is when the button is pressed.
func PagerID(guildID string, page int) string {
	return fmt.Sprintf("%s:page:%s:%d", pagerPrefix, guildID, page)
}

func ParsePagerID(id string) (guildID string, page int, ok bool) {
	parts := strings.Split(id, ":")
	if len(parts) != 4 || parts[0] != pagerPrefix || parts[1] != "page" || parts[2] == "" {
		return "", 0, false
	}
	page, err := strconv.Atoi(parts[3])
	if err != nil {
		return "", 0, false
	}
	return parts[2], page, true
}

func IsPagerID(id string) bool {
	return strings.HasPrefix(id, pagerPrefix+":")
}

func clamp(v, lo, hi int) int {
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}
