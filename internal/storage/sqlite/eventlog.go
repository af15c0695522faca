package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"time"

	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/mcoot/golfcards/internal/model"
	"github.com/mcoot/golfcards/internal/storage"
)

// Ensure Store implements the interface
var _ storage.EventLog = (*Store)(nil)

const insertEvent = `INSERT INTO events
    (game_id, sequence_num, event_id, event_type, player_id, recorded_at, body)
VALUES (?, ?, ?, ?, ?, ?, ?)`

func (s *Store) Append(ctx context.Context, evt model.Event) (string, error) {
	out, err := s.AppendBatch(ctx, []model.Event{evt})
	if err != nil {
		return "", err
	}
	return out[0], nil
}

// AppendBatch inserts all events in one transaction. The primary key on
// (game_id, sequence_num) rejects a taken slot and rolls back the batch.
func (s *Store) AppendBatch(ctx context.Context, events []model.Event) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := storage.ValidateBatch(events); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin append: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, insertEvent)
	if err != nil {
		return nil, fmt.Errorf("prepare append: %w", err)
	}
	defer stmt.Close()

	out := make([]string, len(events))
	for i, evt := range events {
		if evt.ID == "" {
			evt.ID = s.ids.NewID()
		}
		body, err := json.Marshal(evt)
		if err != nil {
			return nil, fmt.Errorf("encode event %d: %w", evt.SequenceNum, err)
		}
		var player sql.NullString
		if evt.PlayerID != "" {
			player = sql.NullString{String: string(evt.PlayerID), Valid: true}
		}
		_, err = stmt.ExecContext(ctx,
			string(evt.GameID), evt.SequenceNum, evt.ID, string(evt.Type), player,
			evt.Timestamp.UTC().Format(time.RFC3339Nano), string(body),
		)
		if err != nil {
			if isConstraintError(err) {
				return nil, &model.ConcurrencyConflictError{GameID: evt.GameID, SequenceNum: evt.SequenceNum}
			}
			return nil, fmt.Errorf("insert event %d: %w", evt.SequenceNum, err)
		}
		out[i] = evt.ID
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit append: %w", err)
	}
	return out, nil
}

func (s *Store) GetEvents(ctx context.Context, gameID model.GameID, fromSeq, toSeq int64) ([]model.Event, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT body FROM events
WHERE game_id = ? AND sequence_num >= ? AND (? < 0 OR sequence_num <= ?)
ORDER BY sequence_num`, string(gameID), fromSeq, toSeq, toSeq)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	return scanEvents(rows)
}

func (s *Store) LatestSequence(ctx context.Context, gameID model.GameID) (int64, error) {
	var latest int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(sequence_num), -1) FROM events WHERE game_id = ?",
		string(gameID),
	).Scan(&latest)
	if err != nil {
		return 0, fmt.Errorf("latest sequence: %w", err)
	}
	return latest, nil
}

func (s *Store) Stream(ctx context.Context, gameID model.GameID, fromSeq int64) iter.Seq2[model.Event, error] {
	return storage.Paginate(ctx, fromSeq, func(ctx context.Context, after int64, limit int) ([]model.Event, error) {
		rows, err := s.db.QueryContext(ctx, `SELECT body FROM events
WHERE game_id = ? AND sequence_num > ?
ORDER BY sequence_num
LIMIT ?`, string(gameID), after, limit)
		if err != nil {
			return nil, fmt.Errorf("query event page: %w", err)
		}
		return scanEvents(rows)
	})
}

func (s *Store) ActiveGames(ctx context.Context) ([]model.GameID, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT e.game_id FROM events e
JOIN (
    SELECT game_id, MAX(sequence_num) AS last_seq FROM events GROUP BY game_id
) latest ON latest.game_id = e.game_id AND latest.last_seq = e.sequence_num
WHERE e.event_type NOT IN (?, ?)
ORDER BY e.game_id`, string(model.TerminalEventTypes[0]), string(model.TerminalEventTypes[1]))
	if err != nil {
		return nil, fmt.Errorf("query active games: %w", err)
	}
	defer rows.Close()

	var games []model.GameID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan active game: %w", err)
		}
		games = append(games, model.GameID(id))
	}
	return games, rows.Err()
}

func scanEvents(rows *sql.Rows) ([]model.Event, error) {
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		var evt model.Event
		if err := json.Unmarshal([]byte(body), &evt); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		events = append(events, evt)
	}
	return events, rows.Err()
}

func isConstraintError(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT || code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}
