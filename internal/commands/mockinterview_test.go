package commands

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/susu3304/mockinterviewbot/internal/pairing"
	"github.com/susu3304/mockinterviewbot/internal/schedule"
	"github.com/susu3304/mockinterviewbot/internal/session"
)

type mockResponder struct {
	responses []*discordgo.InteractionResponse
}

func (m *mockResponder) InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error {
	m.responses = append(m.responses, resp)
	return nil
}

func (m *mockResponder) last(t *testing.T) *discordgo.InteractionResponseData {
	t.Helper()
	require.NotEmpty(t, m.responses)
	return m.responses[len(m.responses)-1].Data
}

type fakeTenants struct {
	snaps    map[string]session.Snapshot
	assigned map[string]string
}

func (f *fakeTenants) Lookup(guildID string) (session.Snapshot, bool) {
	snap, ok := f.snaps[guildID]
	return snap, ok
}

func (f *fakeTenants) AssignChannel(guildID, channelID string) error {
	f.assigned[guildID] = channelID
	return nil
}

type fakeChannels struct {
	saved map[int64]string
	err   error
}

func (f *fakeChannels) SetAnnounceChannel(ctx context.Context, guildID int64, channelID string) error {
	if f.err != nil {
		return f.err
	}
	f.saved[guildID] = channelID
	return nil
}

type fakeSchedule []schedule.Run

func (f fakeSchedule) Upcoming() []schedule.Run { return f }

func newTestHandler() (*Handler, *fakeTenants, *fakeChannels) {
	tenants := &fakeTenants{snaps: map[string]session.Snapshot{}, assigned: map[string]string{}}
	channels := &fakeChannels{saved: map[int64]string{}}
	h := &Handler{
		Tenants:      tenants,
		Channels:     channels,
		Schedule:     fakeSchedule{{Name: "form teams", At: time.Unix(1741082400, 0)}},
		WebUIBaseURL: "http://localhost:3000",
	}
	return h, tenants, channels
}

func interaction(guildID string, perms int64, sub *discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type:    discordgo.InteractionApplicationCommand,
		GuildID: guildID,
		Member:  &discordgo.Member{Permissions: perms},
		Data: discordgo.ApplicationCommandInteractionData{
			Name:    CommandName,
			Options: []*discordgo.ApplicationCommandInteractionDataOption{sub},
		},
	}}
}

func subcommand(name string, opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{
		Name:    name,
		Type:    discordgo.ApplicationCommandOptionSubCommand,
		Options: opts,
	}
}

func channelOption(id string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{
		Name:  "channel",
		Type:  discordgo.ApplicationCommandOptionChannel,
		Value: id,
	}
}

func TestGetCommands(t *testing.T) {
	cmds := GetCommands()
	require.Len(t, cmds, 1)
	assert.Equal(t, CommandName, cmds[0].Name)

	var names []string
	for _, opt := range cmds[0].Options {
		names = append(names, opt.Name)
	}
	assert.Equal(t, []string{SubcommandStatus, SubcommandChannel, SubcommandWeb}, names)
}

func TestStatus_UnknownGuild(t *testing.T) {
	h, _, _ := newTestHandler()
	r := &mockResponder{}

	h.HandleMockInterview(r, interaction("g1", 0, subcommand(SubcommandStatus)))

	data := r.last(t)
	assert.Contains(t, data.Content, "not set up")
	assert.Equal(t, discordgo.MessageFlagsEphemeral, data.Flags)
}

func TestStatus_RegistrationOpen(t *testing.T) {
	h, tenants, _ := newTestHandler()
	tenants.snaps["g1"] = session.Snapshot{
		GuildID:      "g1",
		ChannelID:    "c1",
		Phase:        session.PhaseRegistrationOpen,
		Participants: []string{"alice", "bob"},
	}
	r := &mockResponder{}

	h.HandleMockInterview(r, interaction("g1", 0, subcommand(SubcommandStatus)))

	content := r.last(t).Content
	assert.Contains(t, content, "registration is open")
	assert.Contains(t, content, "<#c1>")
	assert.Contains(t, content, "Registered (2): <@alice>, <@bob>")
	assert.Contains(t, content, "Next: form teams at <t:1741082400:F>")
}

func TestStatus_Announced(t *testing.T) {
	h, tenants, _ := newTestHandler()
	tenants.snaps["g1"] = session.Snapshot{
		GuildID: "g1",
		Phase:   session.PhaseLeftoverOpen,
		Assignment: pairing.Assignment{
			Teams:    []pairing.Team{{First: "a", Second: "b"}},
			Leftover: "c",
		},
		Leftover: "c",
	}
	r := &mockResponder{}

	h.HandleMockInterview(r, interaction("g1", 0, subcommand(SubcommandStatus)))

	content := r.last(t).Content
	assert.Contains(t, content, "Channel: not set")
	assert.Contains(t, content, "- <@a> and <@b>")
	assert.Contains(t, content, "Without a partner: <@c>")
}

func TestChannel(t *testing.T) {
	t.Run("requires manage server", func(t *testing.T) {
		h, tenants, channels := newTestHandler()
		r := &mockResponder{}

		h.HandleMockInterview(r, interaction("42", 0, subcommand(SubcommandChannel, channelOption("c9"))))

		assert.Contains(t, r.last(t).Content, "Manage Server")
		assert.Empty(t, channels.saved)
		assert.Empty(t, tenants.assigned)
	})

	t.Run("saves and applies", func(t *testing.T) {
		h, tenants, channels := newTestHandler()
		r := &mockResponder{}

		h.HandleMockInterview(r, interaction("42", discordgo.PermissionManageServer, subcommand(SubcommandChannel, channelOption("c9"))))

		data := r.last(t)
		assert.Contains(t, data.Content, "<#c9>")
		assert.Zero(t, data.Flags)
		assert.Equal(t, "c9", channels.saved[42])
		assert.Equal(t, "c9", tenants.assigned["42"])
	})

	t.Run("save error keeps old channel", func(t *testing.T) {
		h, tenants, channels := newTestHandler()
		channels.err = errors.New("db down")
		r := &mockResponder{}

		h.HandleMockInterview(r, interaction("42", discordgo.PermissionAdministrator, subcommand(SubcommandChannel, channelOption("c9"))))

		assert.Contains(t, r.last(t).Content, "Failed to save")
		assert.Empty(t, tenants.assigned)
	})
}

func TestWeb(t *testing.T) {
	h, _, _ := newTestHandler()
	r := &mockResponder{}

	h.HandleMockInterview(r, interaction("42", 0, subcommand(SubcommandWeb)))

	assert.Equal(t, "Web dashboard: http://localhost:3000/guilds/42", r.last(t).Content)
}

func TestOutsideGuild(t *testing.T) {
	h, _, _ := newTestHandler()
	r := &mockResponder{}

	h.HandleMockInterview(r, interaction("", 0, subcommand(SubcommandStatus)))

	assert.Contains(t, r.last(t).Content, "only be used in a server")
}

func TestParseGuildID(t *testing.T) {
	assert.Equal(t, int64(123456789012345678), ParseGuildID("123456789012345678"))
	assert.Equal(t, int64(0), ParseGuildID("not-a-number"))
}
