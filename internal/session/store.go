package session

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/susu3304/mockinterviewbot/internal/pairing"
)

var ErrUnknownTenant = errors.New("unknown guild")

// Store holds the in-memory matchmaking state of every guild the bot serves.
// Guilds never see each other's state.
type Store struct {
	mu      sync.RWMutex
	tenants map[string]*tenant
}

func NewStore() *Store {
	return &Store{tenants: make(map[string]*tenant)}
}

// GetOrCreate registers a guild the first time it is seen. An existing guild
// keeps its state; its channel is only filled in if it had none.
func (s *Store) GetOrCreate(guildID, channelID string) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tenants[guildID]
	if !ok {
		t = newTenant(guildID, channelID)
		s.tenants[guildID] = t
	} else if t.channelID == "" {
		t.channelID = channelID
	}
	return t.snapshot()
}

// Lookup returns the guild's state without creating it.
func (s *Store) Lookup(guildID string) (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tenants[guildID]
	if !ok {
		return Snapshot{}, false
	}
	return t.snapshot(), true
}

// Snapshot is Lookup with an error for unknown guilds.
func (s *Store) Snapshot(guildID string) (Snapshot, error) {
	snap, ok := s.Lookup(guildID)
	if !ok {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrUnknownTenant, guildID)
	}
	return snap, nil
}

// GuildIDs returns every known guild id in sorted order.
func (s *Store) GuildIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.tenants))
	for id := range s.tenants {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *Store) SetChannel(guildID, channelID string) error {
	return s.update(guildID, func(t *tenant) {
		t.channelID = channelID
	})
}

// ResetForNewCycle clears participants, teams, leftover and both prompts and
// starts a new cycle id.
func (s *Store) ResetForNewCycle(guildID string) error {
	return s.update(guildID, func(t *tenant) {
		t.cycleID = uuid.New()
		t.phase = PhaseIdle
		t.participants = make(map[string]struct{})
		t.registrationPrompt = Prompt{}
		t.leftoverPrompt = Prompt{}
		t.assignment = pairing.Assignment{}
		t.leftover = ""
		t.rematch = nil
	})
}

// AddParticipant reports whether userID was newly added.
func (s *Store) AddParticipant(guildID, userID string) (bool, error) {
	var added bool
	err := s.update(guildID, func(t *tenant) {
		if _, ok := t.participants[userID]; ok {
			return
		}
		t.participants[userID] = struct{}{}
		added = true
	})
	return added, err
}

// RemoveParticipant reports whether userID was a participant.
func (s *Store) RemoveParticipant(guildID, userID string) (bool, error) {
	var removed bool
	err := s.update(guildID, func(t *tenant) {
		if _, ok := t.participants[userID]; !ok {
			return
		}
		delete(t.participants, userID)
		removed = true
	})
	return removed, err
}

// SetActiveRegistrationPrompt opens registration on the given message.
func (s *Store) SetActiveRegistrationPrompt(guildID string, p Prompt) error {
	return s.update(guildID, func(t *tenant) {
		t.registrationPrompt = p
		t.phase = PhaseRegistrationOpen
	})
}

// CloseRegistration makes the registration prompt stale.
func (s *Store) CloseRegistration(guildID string) error {
	return s.update(guildID, func(t *tenant) {
		t.registrationPrompt = Prompt{}
	})
}

func (s *Store) RecordTeams(guildID string, a pairing.Assignment) error {
	return s.update(guildID, func(t *tenant) {
		t.assignment = a
		t.leftover = a.Leftover
		t.rematch = nil
		t.phase = PhaseTeamsFormed
	})
}

func (s *Store) MarkAnnounced(guildID string) error {
	return s.update(guildID, func(t *tenant) {
		t.phase = PhaseAnnounced
	})
}

func (s *Store) SetActiveLeftoverPrompt(guildID string, p Prompt) error {
	return s.update(guildID, func(t *tenant) {
		t.leftoverPrompt = p
		t.phase = PhaseLeftoverOpen
	})
}

func (s *Store) ClearLeftoverPrompt(guildID string) error {
	return s.update(guildID, func(t *tenant) {
		t.leftoverPrompt = Prompt{}
		if t.phase == PhaseLeftoverOpen {
			t.phase = PhaseAnnounced
		}
	})
}

// RecordRematch pairs the current leftover with partnerID and clears the
// leftover. It returns the former leftover.
func (s *Store) RecordRematch(guildID, partnerID string) (string, error) {
	var leftover string
	err := s.update(guildID, func(t *tenant) {
		leftover = t.leftover
		if leftover == "" {
			return
		}
		t.rematch = &pairing.Team{First: leftover, Second: partnerID}
		t.leftover = ""
	})
	return leftover, err
}

func (s *Store) update(guildID string, fn func(t *tenant)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tenants[guildID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTenant, guildID)
	}
	fn(t)
	return nil
}

func (t *tenant) snapshot() Snapshot {
	participants := make([]string, 0, len(t.participants))
	for id := range t.participants {
		participants = append(participants, id)
	}
	sort.Strings(participants)

	snap := Snapshot{
		GuildID:            t.guildID,
		ChannelID:          t.channelID,
		CycleID:            t.cycleID,
		Phase:              t.phase,
		Participants:       participants,
		RegistrationPrompt: t.registrationPrompt,
		LeftoverPrompt:     t.leftoverPrompt,
		Assignment: pairing.Assignment{
			Teams:    append([]pairing.Team(nil), t.assignment.Teams...),
			Leftover: t.assignment.Leftover,
		},
		Leftover: t.leftover,
	}
	if t.rematch != nil {
		rematch := *t.rematch
		snap.Rematch = &rematch
	}
	return snap
}
