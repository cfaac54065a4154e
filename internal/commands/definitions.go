package commands

import "github.com/bwmarrin/discordgo"

const (
	CommandName = "mockinterview"

	SubcommandStatus  = "status"
	SubcommandChannel = "channel"
	SubcommandWeb     = "web"
)

func GetCommands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:         CommandName,
			Description:  "Weekly mock interview pairing",
			DMPermission: boolPtr(false),
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        SubcommandStatus,
					Description: "Show this week's registration, teams and schedule",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        SubcommandChannel,
					Description: "Set the channel for mock interview announcements (Manage Server)",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:         discordgo.ApplicationCommandOptionChannel,
							Name:         "channel",
							Description:  "Announcement channel",
							Required:     true,
							ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        SubcommandWeb,
					Description: "Show the web dashboard URL for this server",
				},
			},
		},
	}
}

func boolPtr(b bool) *bool {
	return &b
}
