package bot

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/susu3304/mockinterviewbot/internal/commands"
	"github.com/susu3304/mockinterviewbot/internal/coordinator"
)

const settingsTimeout = 5 * time.Second

func (b *Bot) onReady(s *discordgo.Session, event *discordgo.Ready) {
	log.Printf("%s is connected!", event.User.Username)
	b.coordinator.SetBotUserID(event.User.ID)
}

// onGuildCreate fires on start-up for every guild and when the bot joins one.
func (b *Bot) onGuildCreate(s *discordgo.Session, event *discordgo.GuildCreate) {
	if event.Unavailable {
		return
	}
	log.Printf("Guild available/joined: %s (id=%s)", event.Name, event.ID)

	if err := b.registerGuildCommands(s, event.ID); err != nil {
		log.Printf("Failed to register commands for guild %s: %v", event.ID, err)
	}

	channelID := b.resolveAnnounceChannel(event.Guild)
	if channelID == "" {
		log.Printf("Guild %s has no announcement channel; use /%s %s", event.ID, commands.CommandName, commands.SubcommandChannel)
		return
	}
	b.coordinator.OnTenantJoined(event.ID, channelID)
}

func (b *Bot) registerGuildCommands(s *discordgo.Session, guildID string) error {
	cmds := commands.GetCommands()
	// Delete existing commands and register new ones
	_, err := s.ApplicationCommandBulkOverwrite(s.State.User.ID, guildID, cmds)
	if err != nil {
		return err
	}

	log.Printf("Registered application commands for guild %s", guildID)
	return nil
}

// resolveAnnounceChannel picks the saved channel, then a text channel with the
// configured name, then the system channel.
func (b *Bot) resolveAnnounceChannel(guild *discordgo.Guild) string {
	if b.settings != nil {
		ctx, cancel := context.WithTimeout(context.Background(), settingsTimeout)
		defer cancel()
		channelID, ok, err := b.settings.GetAnnounceChannel(ctx, commands.ParseGuildID(guild.ID))
		if err != nil {
			log.Printf("Failed to load settings for guild %s: %v", guild.ID, err)
		} else if ok {
			return channelID
		}
	}

	for _, ch := range guild.Channels {
		if ch.Type == discordgo.ChannelTypeGuildText && strings.EqualFold(ch.Name, b.cfg.AnnounceChannelName) {
			return ch.ID
		}
	}
	return guild.SystemChannelID
}

func (b *Bot) onMessageReactionAdd(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
	if r.MessageReaction == nil || r.GuildID == "" {
		return
	}
	if err := b.coordinator.OnReactionAdded(context.Background(), reactionEvent(r.MessageReaction)); err != nil {
		log.Printf("Failed to handle reaction in guild %s: %v", r.GuildID, err)
	}
}

func (b *Bot) onMessageReactionRemove(s *discordgo.Session, r *discordgo.MessageReactionRemove) {
	if r.MessageReaction == nil || r.GuildID == "" {
		return
	}
	if err := b.coordinator.OnReactionRemoved(context.Background(), reactionEvent(r.MessageReaction)); err != nil {
		log.Printf("Failed to handle reaction removal in guild %s: %v", r.GuildID, err)
	}
}

func reactionEvent(r *discordgo.MessageReaction) coordinator.ReactionEvent {
	return coordinator.ReactionEvent{
		GuildID:   r.GuildID,
		ChannelID: r.ChannelID,
		MessageID: r.MessageID,
		UserID:    r.UserID,
		Emoji:     r.Emoji.Name,
	}
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	if i.ApplicationCommandData().Name == commands.CommandName {
		b.commands.HandleMockInterview(s, i)
	}
}
