package commands

import (
	"log"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
)

func ParseGuildID(guildID string) int64 {
	id, err := strconv.ParseInt(guildID, 10, 64)
	if err != nil {
		log.Printf("Failed to parse guild ID '%s': %v", guildID, err)
		return 0
	}
	return id
}

func mention(userID string) string {
	return "<@" + userID + ">"
}

func mentionAll(userIDs []string) string {
	if len(userIDs) == 0 {
		return "nobody yet"
	}
	parts := make([]string, len(userIDs))
	for i, id := range userIDs {
		parts[i] = mention(id)
	}
	return strings.Join(parts, ", ")
}

func canManageGuild(i *discordgo.InteractionCreate) bool {
	if i.Member == nil {
		return false
	}
	perms := i.Member.Permissions
	return perms&discordgo.PermissionAdministrator != 0 || perms&discordgo.PermissionManageServer != 0
}
