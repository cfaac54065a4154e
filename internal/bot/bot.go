package bot

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"

	"github.com/susu3304/mockinterviewbot/internal/commands"
	"github.com/susu3304/mockinterviewbot/internal/config"
	"github.com/susu3304/mockinterviewbot/internal/coordinator"
	"github.com/susu3304/mockinterviewbot/internal/db"
	"github.com/susu3304/mockinterviewbot/internal/pairing"
	"github.com/susu3304/mockinterviewbot/internal/schedule"
	"github.com/susu3304/mockinterviewbot/internal/session"
)

// settingsStore is the part of *db.DB the bot reads guild settings from.
type settingsStore interface {
	GetAnnounceChannel(ctx context.Context, guildID int64) (string, bool, error)
}

type Bot struct {
	session     *discordgo.Session
	settings    settingsStore
	cfg         *config.Config
	coordinator *coordinator.Coordinator
	worker      *schedule.Worker
	commands    *commands.Handler
}

func New(cfg *config.Config, database *db.DB) (*Bot, error) {
	dg, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}

	open, form, announce, err := cfg.Triggers()
	if err != nil {
		return nil, err
	}

	coord := coordinator.New(
		session.NewStore(),
		pairing.NewEngine(rand.NewSource(time.Now().UnixNano())),
		newDiscordNotifier(dg, cfg.SendRatePerSecond),
		coordinator.WithHistory(&historyRecorder{db: database}),
	)

	worker := schedule.NewWorker(cfg.Location)
	worker.Add(open, coord.OpenRegistration)
	worker.Add(form, coord.FormTeams)
	worker.Add(announce, coord.AnnounceTeams)

	bot := &Bot{
		session:     dg,
		settings:    database,
		cfg:         cfg,
		coordinator: coord,
		worker:      worker,
		commands: &commands.Handler{
			Tenants:      coord,
			Channels:     database,
			Schedule:     worker,
			WebUIBaseURL: cfg.WebUIBaseURL,
		},
	}

	// Register event handlers
	dg.AddHandler(bot.onReady)
	dg.AddHandler(bot.onGuildCreate)
	dg.AddHandler(bot.onMessageReactionAdd)
	dg.AddHandler(bot.onMessageReactionRemove)
	dg.AddHandler(bot.onInteractionCreate)

	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions

	return bot, nil
}

// Coordinator exposes session state to the web API.
func (b *Bot) Coordinator() *coordinator.Coordinator {
	return b.coordinator
}

func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}
	b.worker.Start()
	log.Println("Discord bot is running")
	return nil
}

// Stop halts the schedule, lets queued guild work finish and disconnects.
func (b *Bot) Stop() error {
	b.worker.Stop()
	b.coordinator.Close()
	return b.session.Close()
}

// historyRecorder adapts *db.DB to coordinator.History.
type historyRecorder struct {
	db interface {
		RecordCycle(ctx context.Context, c db.Cycle) error
		RecordRematch(ctx context.Context, cycleID uuid.UUID, guildID int64, team db.Team) error
	}
}

func (h *historyRecorder) RecordCycle(ctx context.Context, rec coordinator.CycleRecord) error {
	teams := make([]db.Team, 0, len(rec.Teams))
	for _, t := range rec.Teams {
		teams = append(teams, db.Team{FirstID: t.First, SecondID: t.Second})
	}
	return h.db.RecordCycle(ctx, db.Cycle{
		ID:               rec.CycleID,
		GuildID:          commands.ParseGuildID(rec.GuildID),
		ParticipantCount: rec.ParticipantCount,
		LeftoverID:       rec.Leftover,
		AnnouncedAt:      rec.AnnouncedAt,
		Teams:            teams,
	})
}

func (h *historyRecorder) RecordRematch(ctx context.Context, cycleID uuid.UUID, guildID string, team pairing.Team) error {
	return h.db.RecordRematch(ctx, cycleID, commands.ParseGuildID(guildID), db.Team{
		FirstID:  team.First,
		SecondID: team.Second,
	})
}
