package session

import (
	"github.com/google/uuid"
	"github.com/susu3304/mockinterviewbot/internal/pairing"
)

// Phase is where a guild is in the weekly cycle.
type Phase string

const (
	PhaseIdle             Phase = "idle"
	PhaseRegistrationOpen Phase = "registration_open"
	PhaseTeamsFormed      Phase = "teams_formed"
	PhaseAnnounced        Phase = "announced"
	PhaseLeftoverOpen     Phase = "leftover_open"
)

// Prompt points at a bot message that currently accepts reactions.
type Prompt struct {
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
}

func (p Prompt) IsZero() bool {
	return p.MessageID == ""
}

// Matches reports whether messageID refers to this prompt. A zero prompt
// never matches.
func (p Prompt) Matches(messageID string) bool {
	return !p.IsZero() && p.MessageID == messageID
}

type tenant struct {
	guildID   string
	channelID string

	cycleID            uuid.UUID
	phase              Phase
	participants       map[string]struct{}
	registrationPrompt Prompt
	leftoverPrompt     Prompt
	assignment         pairing.Assignment
	leftover           string
	rematch            *pairing.Team
}

func newTenant(guildID, channelID string) *tenant {
	return &tenant{
		guildID:      guildID,
		channelID:    channelID,
		phase:        PhaseIdle,
		participants: make(map[string]struct{}),
	}
}

// Snapshot is a copy of one guild's session state.
type Snapshot struct {
	GuildID            string             `json:"guild_id"`
	ChannelID          string             `json:"channel_id"`
	CycleID            uuid.UUID          `json:"cycle_id"`
	Phase              Phase              `json:"phase"`
	Participants       []string           `json:"participants"`
	RegistrationPrompt Prompt             `json:"registration_prompt"`
	LeftoverPrompt     Prompt             `json:"leftover_prompt"`
	Assignment         pairing.Assignment `json:"assignment"`
	Leftover           string             `json:"leftover,omitempty"`
	Rematch            *pairing.Team      `json:"rematch,omitempty"`
}
