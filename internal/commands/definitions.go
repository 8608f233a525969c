package commands

import "github.com/bwmarrin/discordgo"

func GetCommands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:         "play",
			Description:  "Play a song",
			DMPermission: boolPtr(false),
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "query",
					Description: "Song query or URL",
					Required:    true,
				},
			},
		},
		{
			Name:         "queue",
			Description:  "Displays the queue",
			DMPermission: boolPtr(false),
		},
		{
			Name:         "history",
			Description:  "Shows recently played songs",
			DMPermission: boolPtr(false),
		},
		{
			Name:        "ping",
			Description: "Shows the bot's latency",
		},
	}
}

func boolPtr(b bool) *bool {
	return &b
}
