package commands

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/susu3304/mockinterviewbot/internal/schedule"
	"github.com/susu3304/mockinterviewbot/internal/session"
)

// Responder answers interactions. *discordgo.Session satisfies it.
type Responder interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
}

// Tenants is the coordinator as seen by the admin commands.
type Tenants interface {
	Lookup(guildID string) (session.Snapshot, bool)
	AssignChannel(guildID, channelID string) error
}

type ChannelStore interface {
	SetAnnounceChannel(ctx context.Context, guildID int64, channelID string) error
}

type Schedule interface {
	Upcoming() []schedule.Run
}

// Handler serves /mockinterview.
type Handler struct {
	Tenants      Tenants
	Channels     ChannelStore
	Schedule     Schedule
	WebUIBaseURL string
}

func (h *Handler) HandleMockInterview(s Responder, i *discordgo.InteractionCreate) {
	if i.GuildID == "" {
		respond(s, i, "This command can only be used in a server.", true)
		return
	}

	data := i.ApplicationCommandData()
	if len(data.Options) == 0 {
		respond(s, i, "Unknown subcommand.", true)
		return
	}

	sub := data.Options[0]
	switch sub.Name {
	case SubcommandStatus:
		respond(s, i, h.status(i.GuildID), true)
	case SubcommandChannel:
		h.handleChannel(s, i, sub)
	case SubcommandWeb:
		respond(s, i, fmt.Sprintf("Web dashboard: %s/guilds/%s", h.WebUIBaseURL, i.GuildID), true)
	default:
		respond(s, i, "Unknown subcommand.", true)
	}
}

func (h *Handler) status(guildID string) string {
	snap, ok := h.Tenants.Lookup(guildID)
	if !ok {
		return "Mock interviews are not set up in this server yet. Use `/mockinterview channel` to pick a channel."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**Mock interviews** (%s)\n", describePhase(snap.Phase))
	if snap.ChannelID != "" {
		fmt.Fprintf(&b, "Channel: <#%s>\n", snap.ChannelID)
	} else {
		b.WriteString("Channel: not set\n")
	}

	switch snap.Phase {
	case session.PhaseRegistrationOpen:
		fmt.Fprintf(&b, "Registered (%d): %s\n", len(snap.Participants), mentionAll(snap.Participants))
	case session.PhaseTeamsFormed, session.PhaseAnnounced, session.PhaseLeftoverOpen:
		if snap.Assignment.Insufficient() {
			b.WriteString("Not enough people registered this week.\n")
			break
		}
		b.WriteString("Teams:\n")
		for _, team := range snap.Assignment.Teams {
			fmt.Fprintf(&b, "- %s and %s\n", mention(team.First), mention(team.Second))
		}
		if snap.Rematch != nil {
			fmt.Fprintf(&b, "- %s and %s (rematch)\n", mention(snap.Rematch.First), mention(snap.Rematch.Second))
		}
		if snap.Leftover != "" {
			fmt.Fprintf(&b, "Without a partner: %s\n", mention(snap.Leftover))
		}
	}

	if h.Schedule != nil {
		if runs := h.Schedule.Upcoming(); len(runs) > 0 {
			next := runs[0]
			fmt.Fprintf(&b, "Next: %s at <t:%d:F>\n", next.Name, next.At.Unix())
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (h *Handler) handleChannel(s Responder, i *discordgo.InteractionCreate, sub *discordgo.ApplicationCommandInteractionDataOption) {
	if !canManageGuild(i) {
		respond(s, i, "You need the Manage Server permission to change the channel.", true)
		return
	}

	var channelID string
	for _, opt := range sub.Options {
		if opt.Name == "channel" && opt.Type == discordgo.ApplicationCommandOptionChannel {
			if id, ok := opt.Value.(string); ok {
				channelID = id
			}
		}
	}
	if channelID == "" {
		respond(s, i, "Please pick a text channel.", true)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if h.Channels != nil {
		if err := h.Channels.SetAnnounceChannel(ctx, ParseGuildID(i.GuildID), channelID); err != nil {
			log.Printf("commands: failed to save channel for guild %s: %v", i.GuildID, err)
			respond(s, i, "Failed to save the channel.", true)
			return
		}
	}
	if err := h.Tenants.AssignChannel(i.GuildID, channelID); err != nil {
		log.Printf("commands: failed to apply channel for guild %s: %v", i.GuildID, err)
		respond(s, i, "Failed to apply the channel.", true)
		return
	}

	respond(s, i, fmt.Sprintf("Mock interview announcements will be posted in <#%s>.", channelID), false)
}

func describePhase(p session.Phase) string {
	switch p {
	case session.PhaseRegistrationOpen:
		return "registration is open"
	case session.PhaseTeamsFormed:
		return "teams are formed, announcement pending"
	case session.PhaseAnnounced:
		return "teams announced"
	case session.PhaseLeftoverOpen:
		return "teams announced, looking for a partner"
	default:
		return "waiting for the next registration"
	}
}

func respond(s Responder, i *discordgo.InteractionCreate, content string, ephemeral bool) {
	data := &discordgo.InteractionResponseData{Content: content}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
	if err != nil {
		log.Printf("commands: failed to respond to interaction: %v", err)
	}
}
