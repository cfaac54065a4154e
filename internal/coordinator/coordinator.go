package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/susu3304/mockinterviewbot/internal/pairing"
	"github.com/susu3304/mockinterviewbot/internal/session"
)

var (
	ErrDelivery    = errors.New("delivery failed")
	ErrQueueClosed = errors.New("coordinator is closed")
	ErrNoChannel   = errors.New("no announce channel")
)

// Notifier delivers messages to the chat platform.
type Notifier interface {
	SendMessage(ctx context.Context, channelID, content string) (messageID string, err error)
	AddReaction(ctx context.Context, channelID, messageID, emoji string) error
	DeleteMessage(ctx context.Context, channelID, messageID string) error
}

// CycleRecord describes an announced week.
type CycleRecord struct {
	CycleID          uuid.UUID
	GuildID          string
	ParticipantCount int
	Teams            []pairing.Team
	Leftover         string
	AnnouncedAt      time.Time
}

// History keeps a log of announced teams. It is optional.
type History interface {
	RecordCycle(ctx context.Context, rec CycleRecord) error
	RecordRematch(ctx context.Context, cycleID uuid.UUID, guildID string, team pairing.Team) error
}

// ReactionEvent is a reaction added to or removed from a guild message.
type ReactionEvent struct {
	GuildID   string
	ChannelID string
	MessageID string
	UserID    string
	Emoji     string
}

type Option func(*Coordinator)

func WithHistory(h History) Option {
	return func(c *Coordinator) {
		c.history = h
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		c.now = now
	}
}

// Coordinator runs the weekly matchmaking cycle for every guild. All work for
// one guild goes through that guild's lane, so mutations for a guild never
// interleave while different guilds proceed independently.
type Coordinator struct {
	store    *session.Store
	engine   *pairing.Engine
	notifier Notifier
	history  History
	queue    *laneQueue
	now      func() time.Time

	mu        sync.RWMutex
	botUserID string
}

func New(store *session.Store, engine *pairing.Engine, notifier Notifier, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:    store,
		engine:   engine,
		notifier: notifier,
		queue:    newLaneQueue(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetBotUserID tells the coordinator which reactions are its own.
func (c *Coordinator) SetBotUserID(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.botUserID = userID
}

func (c *Coordinator) isSelf(userID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.botUserID != "" && userID == c.botUserID
}

// Close waits for in-flight work and rejects new work.
func (c *Coordinator) Close() {
	c.queue.close()
}

// OnTenantJoined registers a guild. A guild joining mid-cycle stays idle
// until the next registration opens.
func (c *Coordinator) OnTenantJoined(guildID, channelID string) {
	snap := c.store.GetOrCreate(guildID, channelID)
	log.Printf("coordinator: guild %s registered (channel=%s, phase=%s)", guildID, snap.ChannelID, snap.Phase)
}

// AssignChannel points a guild's announcements at channelID, registering the
// guild first if needed. Active prompts keep their own channel.
func (c *Coordinator) AssignChannel(guildID, channelID string) error {
	c.store.GetOrCreate(guildID, channelID)
	return c.store.SetChannel(guildID, channelID)
}

func (c *Coordinator) Lookup(guildID string) (session.Snapshot, bool) {
	return c.store.Lookup(guildID)
}

// OpenRegistration starts a new cycle in every guild and posts the invitation.
func (c *Coordinator) OpenRegistration(ctx context.Context) error {
	return c.forEachTenant(ctx, "open registration", c.openRegistration)
}

// FormTeams pairs the registered participants of every guild with open
// registration. Nothing is posted.
func (c *Coordinator) FormTeams(ctx context.Context) error {
	return c.forEachTenant(ctx, "form teams", c.formTeams)
}

// AnnounceTeams posts the teams of every guild that formed them and opens
// the leftover prompt where needed.
func (c *Coordinator) AnnounceTeams(ctx context.Context) error {
	return c.forEachTenant(ctx, "announce teams", c.announceTeams)
}

// OnReactionAdded handles registration and leftover rematch reactions.
func (c *Coordinator) OnReactionAdded(ctx context.Context, ev ReactionEvent) error {
	if c.isSelf(ev.UserID) {
		return nil
	}
	if _, ok := c.store.Lookup(ev.GuildID); !ok {
		return nil
	}
	return c.queue.do(ctx, ev.GuildID, func(ctx context.Context) {
		c.reactionAdded(ctx, ev)
	})
}

// OnReactionRemoved handles registration withdrawals.
func (c *Coordinator) OnReactionRemoved(ctx context.Context, ev ReactionEvent) error {
	if c.isSelf(ev.UserID) {
		return nil
	}
	if _, ok := c.store.Lookup(ev.GuildID); !ok {
		return nil
	}
	return c.queue.do(ctx, ev.GuildID, func(ctx context.Context) {
		c.reactionRemoved(ctx, ev)
	})
}

// forEachTenant runs fn for every guild on its lane. A failing guild is
// logged and does not stop the others.
func (c *Coordinator) forEachTenant(ctx context.Context, phase string, fn func(ctx context.Context, guildID string) error) error {
	guildIDs := c.store.GuildIDs()
	errs := make([]error, len(guildIDs))

	var wg sync.WaitGroup
	for i, guildID := range guildIDs {
		wg.Add(1)
		go func(i int, guildID string) {
			defer wg.Done()
			result := make(chan error, 1)
			err := c.queue.do(ctx, guildID, func(ctx context.Context) {
				result <- fn(ctx, guildID)
			})
			if err == nil {
				err = <-result
			}
			if err != nil {
				log.Printf("coordinator: %s failed for guild %s: %v", phase, guildID, err)
				errs[i] = fmt.Errorf("guild %s: %w", guildID, err)
			}
		}(i, guildID)
	}
	wg.Wait()

	return errors.Join(errs...)
}

func (c *Coordinator) openRegistration(ctx context.Context, guildID string) error {
	if err := c.store.ResetForNewCycle(guildID); err != nil {
		return err
	}
	snap, err := c.store.Snapshot(guildID)
	if err != nil {
		return err
	}
	if snap.ChannelID == "" {
		return ErrNoChannel
	}

	messageID, err := c.notifier.SendMessage(ctx, snap.ChannelID, invitationMessage())
	if err != nil {
		return deliveryError("send invitation", err)
	}
	prompt := session.Prompt{ChannelID: snap.ChannelID, MessageID: messageID}
	if err := c.store.SetActiveRegistrationPrompt(guildID, prompt); err != nil {
		return err
	}
	// Users can still react by hand if this fails.
	if err := c.notifier.AddReaction(ctx, prompt.ChannelID, prompt.MessageID, SymbolJoin); err != nil {
		return deliveryError("react to invitation", err)
	}
	return nil
}

func (c *Coordinator) formTeams(ctx context.Context, guildID string) error {
	snap, err := c.store.Snapshot(guildID)
	if err != nil {
		return err
	}
	if snap.Phase != session.PhaseRegistrationOpen {
		return nil
	}
	if err := c.store.CloseRegistration(guildID); err != nil {
		return err
	}

	assignment := c.engine.FormTeams(snap.Participants)
	log.Printf("coordinator: guild %s formed %d teams from %d participants (leftover=%t)",
		guildID, len(assignment.Teams), len(snap.Participants), assignment.HasLeftover())
	return c.store.RecordTeams(guildID, assignment)
}

func (c *Coordinator) announceTeams(ctx context.Context, guildID string) error {
	snap, err := c.store.Snapshot(guildID)
	if err != nil {
		return err
	}
	if snap.Phase != session.PhaseTeamsFormed {
		return nil
	}
	if snap.ChannelID == "" {
		return ErrNoChannel
	}

	if _, err := c.notifier.SendMessage(ctx, snap.ChannelID, teamsMessage(snap.Assignment)); err != nil {
		return deliveryError("send teams", err)
	}
	if err := c.store.MarkAnnounced(guildID); err != nil {
		return err
	}
	c.recordCycle(ctx, snap)

	if !snap.Assignment.HasLeftover() {
		return nil
	}

	messageID, err := c.notifier.SendMessage(ctx, snap.ChannelID, leftoverMessage(snap.Assignment.Leftover))
	if err != nil {
		return deliveryError("send leftover prompt", err)
	}
	prompt := session.Prompt{ChannelID: snap.ChannelID, MessageID: messageID}
	if err := c.store.SetActiveLeftoverPrompt(guildID, prompt); err != nil {
		return err
	}
	if err := c.notifier.AddReaction(ctx, prompt.ChannelID, prompt.MessageID, SymbolAvailable); err != nil {
		return deliveryError("react to leftover prompt", err)
	}
	return nil
}

func (c *Coordinator) reactionAdded(ctx context.Context, ev ReactionEvent) {
	snap, ok := c.store.Lookup(ev.GuildID)
	if !ok {
		return
	}

	switch {
	case snap.RegistrationPrompt.Matches(ev.MessageID):
		if !sameSymbol(ev.Emoji, SymbolJoin) {
			return
		}
		added, err := c.store.AddParticipant(ev.GuildID, ev.UserID)
		if err != nil || !added {
			return
		}
		c.post(ctx, ev.GuildID, snap.RegistrationPrompt.ChannelID, joinedMessage(ev.UserID))

	case snap.LeftoverPrompt.Matches(ev.MessageID):
		if !sameSymbol(ev.Emoji, SymbolAvailable) || ev.UserID == snap.Leftover {
			return
		}
		c.resolveLeftover(ctx, snap, ev.UserID)
	}
}

func (c *Coordinator) reactionRemoved(ctx context.Context, ev ReactionEvent) {
	snap, ok := c.store.Lookup(ev.GuildID)
	if !ok || !snap.RegistrationPrompt.Matches(ev.MessageID) || !sameSymbol(ev.Emoji, SymbolJoin) {
		return
	}
	removed, err := c.store.RemoveParticipant(ev.GuildID, ev.UserID)
	if err != nil || !removed {
		return
	}
	c.post(ctx, ev.GuildID, snap.RegistrationPrompt.ChannelID, leftMessage(ev.UserID))
}

// resolveLeftover consumes the leftover prompt. Later reactions on the same
// message find no active prompt and are ignored.
func (c *Coordinator) resolveLeftover(ctx context.Context, snap session.Snapshot, partnerID string) {
	leftover, err := c.store.RecordRematch(snap.GuildID, partnerID)
	if err != nil || leftover == "" {
		return
	}
	if err := c.store.ClearLeftoverPrompt(snap.GuildID); err != nil {
		return
	}

	prompt := snap.LeftoverPrompt
	c.post(ctx, snap.GuildID, prompt.ChannelID, rematchMessage(partnerID, leftover))
	if err := c.notifier.DeleteMessage(ctx, prompt.ChannelID, prompt.MessageID); err != nil {
		log.Printf("coordinator: guild %s: %v", snap.GuildID, deliveryError("delete leftover prompt", err))
	}

	if c.history != nil {
		team := pairing.Team{First: leftover, Second: partnerID}
		if err := c.history.RecordRematch(ctx, snap.CycleID, snap.GuildID, team); err != nil {
			log.Printf("coordinator: failed to record rematch for guild %s: %v", snap.GuildID, err)
		}
	}
}

func (c *Coordinator) recordCycle(ctx context.Context, snap session.Snapshot) {
	if c.history == nil {
		return
	}
	rec := CycleRecord{
		CycleID:          snap.CycleID,
		GuildID:          snap.GuildID,
		ParticipantCount: snap.Assignment.Size(),
		Teams:            snap.Assignment.Teams,
		Leftover:         snap.Assignment.Leftover,
		AnnouncedAt:      c.now(),
	}
	if err := c.history.RecordCycle(ctx, rec); err != nil {
		log.Printf("coordinator: failed to record cycle for guild %s: %v", snap.GuildID, err)
	}
}

func (c *Coordinator) post(ctx context.Context, guildID, channelID, content string) {
	if _, err := c.notifier.SendMessage(ctx, channelID, content); err != nil {
		log.Printf("coordinator: guild %s: %v", guildID, deliveryError("send confirmation", err))
	}
}

func deliveryError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrDelivery, op, err)
}

// sameSymbol compares emojis ignoring the variation selector Discord may
// append to unicode emojis.
func sameSymbol(a, b string) bool {
	return strings.ReplaceAll(a, "\uFE0F", "") == strings.ReplaceAll(b, "\uFE0F", "")
}
