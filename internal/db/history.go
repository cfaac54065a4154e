package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	DefaultHistoryLimit = 10
	MaxHistoryLimit     = 50
)

type Team struct {
	FirstID  string `json:"first_id"`
	SecondID string `json:"second_id"`
	Rematch  bool   `json:"rematch"`
}

// Cycle is one announced week of a guild.
type Cycle struct {
	ID               uuid.UUID `json:"id"`
	GuildID          int64     `json:"guild_id,string"`
	ParticipantCount int       `json:"participant_count"`
	LeftoverID       string    `json:"leftover_id,omitempty"`
	AnnouncedAt      time.Time `json:"announced_at"`
	Teams            []Team    `json:"teams"`
}

// RecordCycle stores a cycle and its teams in one transaction.
func (db *DB) RecordCycle(ctx context.Context, c Cycle) (err error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
				err = errors.Join(err, fmt.Errorf("rollback tx: %w", rollbackErr))
			}
		}
	}()

	_, err = tx.Exec(ctx,
		`INSERT INTO pairing_cycles (id, guild_id, participant_count, leftover_id, announced_at)
		VALUES ($1, $2, $3, $4, $5)`,
		c.ID.String(), c.GuildID, c.ParticipantCount, nullable(c.LeftoverID), c.AnnouncedAt,
	)
	if err != nil {
		return fmt.Errorf("insert pairing_cycles: %w", err)
	}

	for _, team := range c.Teams {
		if err := insertTeam(ctx, tx, c.ID, team); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	committed = true
	return nil
}

// RecordRematch adds the rematch team to a cycle and clears its leftover.
func (db *DB) RecordRematch(ctx context.Context, cycleID uuid.UUID, guildID int64, team Team) (err error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
				err = errors.Join(err, fmt.Errorf("rollback tx: %w", rollbackErr))
			}
		}
	}()

	team.Rematch = true
	if err := insertTeam(ctx, tx, cycleID, team); err != nil {
		return err
	}

	result, err := tx.Exec(ctx,
		"UPDATE pairing_cycles SET leftover_id = NULL WHERE id = $1 AND guild_id = $2",
		cycleID.String(), guildID,
	)
	if err != nil {
		return fmt.Errorf("update pairing_cycles: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("cycle %s not found", cycleID)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	committed = true
	return nil
}

// ListCycles returns the latest cycles of a guild, newest first. The limit is
// clamped to [1, MaxHistoryLimit]; zero means DefaultHistoryLimit.
func (db *DB) ListCycles(ctx context.Context, guildID int64, limit int) ([]Cycle, error) {
	switch {
	case limit <= 0:
		limit = DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		limit = MaxHistoryLimit
	}

	rows, err := db.pool.Query(ctx,
		`SELECT id::text, guild_id, participant_count, leftover_id, announced_at
		FROM pairing_cycles WHERE guild_id = $1 ORDER BY announced_at DESC LIMIT $2`,
		guildID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query pairing_cycles: %w", err)
	}
	defer rows.Close()

	cycles := []Cycle{}
	index := make(map[string]int)
	var ids []string
	for rows.Next() {
		var (
			c        Cycle
			id       string
			leftover *string
		)
		if err := rows.Scan(&id, &c.GuildID, &c.ParticipantCount, &leftover, &c.AnnouncedAt); err != nil {
			return nil, fmt.Errorf("scan pairing_cycles: %w", err)
		}
		if c.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("scan pairing_cycles: %w", err)
		}
		if leftover != nil {
			c.LeftoverID = *leftover
		}
		c.Teams = []Team{}
		index[id] = len(cycles)
		ids = append(ids, id)
		cycles = append(cycles, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan pairing_cycles: %w", err)
	}
	rows.Close()

	if len(ids) == 0 {
		return cycles, nil
	}

	teamRows, err := db.pool.Query(ctx,
		`SELECT cycle_id::text, first_id, second_id, rematch
		FROM pairing_teams WHERE cycle_id = ANY($1::uuid[]) ORDER BY rematch, first_id`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("query pairing_teams: %w", err)
	}
	defer teamRows.Close()

	for teamRows.Next() {
		var (
			cycleID string
			team    Team
		)
		if err := teamRows.Scan(&cycleID, &team.FirstID, &team.SecondID, &team.Rematch); err != nil {
			return nil, fmt.Errorf("scan pairing_teams: %w", err)
		}
		if i, ok := index[cycleID]; ok {
			cycles[i].Teams = append(cycles[i].Teams, team)
		}
	}
	if err := teamRows.Err(); err != nil {
		return nil, fmt.Errorf("scan pairing_teams: %w", err)
	}

	return cycles, nil
}

type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

func insertTeam(ctx context.Context, tx execer, cycleID uuid.UUID, team Team) error {
	_, err := tx.Exec(ctx,
		"INSERT INTO pairing_teams (cycle_id, first_id, second_id, rematch) VALUES ($1, $2, $3, $4)",
		cycleID.String(), team.FirstID, team.SecondID, team.Rematch,
	)
	if err != nil {
		return fmt.Errorf("insert pairing_teams: %w", err)
	}
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
