package pgsql

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/esiti_settimanali/internal/apperrors"
	"github.com/SscSPs/esiti_settimanali/internal/core/domain"
	"github.com/SscSPs/esiti_settimanali/internal/models"
	"github.com/SscSPs/esiti_settimanali/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
)

// ChangesChannel is the NOTIFY channel the calculations trigger publishes on.
const ChangesChannel = "calculations_changes"

const (
	feedBuffer      = 64
	unlistenTimeout = 5 * time.Second
)

type changePayload struct {
	Op     string                     `json:"op"`
	Record map[string]json.RawMessage `json:"record"`
}

// decodeChange turns a trigger payload into a ChangeEvent.
func decodeChange(payload string) (domain.ChangeEvent, error) {
	var p changePayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return domain.ChangeEvent{}, fmt.Errorf("%w: malformed change payload: %w", apperrors.ErrValidation, err)
	}

	op := domain.ChangeOp(p.Op)
	switch op {
	case domain.ChangeInsert, domain.ChangeUpdate, domain.ChangeDelete:
	default:
		return domain.ChangeEvent{}, fmt.Errorf("%w: unknown change op %q", apperrors.ErrValidation, p.Op)
	}

	raw, err := json.Marshal(p.Record)
	if err != nil {
		return domain.ChangeEvent{}, err
	}
	var row struct {
		models.Record
		UserID   *string `json:"user_id"`
		Level    *string `json:"level"`
		ParentID *string `json:"parent_id"`
	}
	if err := json.Unmarshal(raw, &row); err != nil {
		return domain.ChangeEvent{}, fmt.Errorf("%w: malformed change record: %w", apperrors.ErrValidation, err)
	}
	if row.ID == "" {
		return domain.ChangeEvent{}, fmt.Errorf("%w: change without record id", apperrors.ErrValidation)
	}

	m := row.Record
	if row.UserID != nil {
		m.UserID.String, m.UserID.Valid = *row.UserID, true
	}
	_, hasLevel := p.Record["level"]
	_, hasParent := p.Record["parent_id"]
	m.HasHierarchy = hasLevel && hasParent
	if row.Level != nil {
		m.Level.String, m.Level.Valid = *row.Level, true
	}
	if row.ParentID != nil {
		m.ParentID.String, m.ParentID.Valid = *row.ParentID, true
	}

	ev := domain.ChangeEvent{Op: op, RecordID: m.ID}
	if op != domain.ChangeDelete {
		ev.Record = mapping.ToDomainRecord(m)
	}
	return ev, nil
}

// SubscribeChanges LISTENs on a dedicated pool connection. The channel is closed when
// ctx ends, the returned cancel is called, or the connection fails.
func (r *PgxRecordRepository) SubscribeChanges(ctx context.Context) (<-chan domain.ChangeEvent, func(), error) {
	conn, err := r.Pool.Acquire(ctx)
	if err != nil {
		return nil, nil, translateError(err, "acquiring listen connection")
	}
	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{r.channel}.Sanitize()); err != nil {
		conn.Release()
		return nil, nil, translateError(err, "listening on "+r.channel)
	}

	ctx, cancel := context.WithCancel(ctx)
	out := make(chan domain.ChangeEvent, feedBuffer)
	go func() {
		defer close(out)
		defer func() {
			if !conn.Conn().IsClosed() {
				unlistenCtx, done := context.WithTimeout(context.Background(), unlistenTimeout)
				defer done()
				if _, err := conn.Exec(unlistenCtx, "UNLISTEN *"); err != nil {
					slog.Warn("Failed to unlisten change feed connection", "error", err)
				}
			}
			conn.Release()
		}()
		for {
			n, err := conn.Conn().WaitForNotification(ctx)
			if err != nil {
				if ctx.Err() == nil {
					slog.ErrorContext(ctx, "Change feed connection lost", "error", err)
				}
				return
			}
			ev, err := decodeChange(n.Payload)
			if err != nil {
				slog.WarnContext(ctx, "Skipping change notification", "error", err)
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, cancel, nil
}
