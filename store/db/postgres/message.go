package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/confidant/store"
)

// CreateMessage inserts a message with created_ts = max(requested, last + 1)
// for its conversation. The conversation row is locked for the duration of
// the insert so concurrent writers cannot observe the same last timestamp.
func (d *DB) CreateMessage(ctx context.Context, create *store.Message) (*store.Message, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	var locked int32
	if err := tx.QueryRowContext(ctx, `SELECT id FROM conversation WHERE id = $1 FOR UPDATE`, create.ConversationID).Scan(&locked); err != nil {
		return nil, fmt.Errorf("failed to lock conversation %d: %w", create.ConversationID, err)
	}

	stmt := `INSERT INTO message (uid, conversation_id, role, content, model, created_ts)
		VALUES ($1, $2, $3, $4, $5, GREATEST($6, (SELECT COALESCE(MAX(created_ts), 0) + 1 FROM message WHERE conversation_id = $2)))
		RETURNING id, created_ts`
	if err := tx.QueryRowContext(ctx, stmt, create.UID, create.ConversationID, string(create.Role), create.Content, create.Model, create.CreatedTs).Scan(&create.ID, &create.CreatedTs); err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "failed to commit message")
	}
	return create, nil
}

func (d *DB) ListMessages(ctx context.Context, find *store.FindMessage) ([]*store.Message, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.ConversationID != nil {
		where, args = append(where, "conversation_id = "+placeholder(len(args)+1)), append(args, *find.ConversationID)
	}

	order := "created_ts ASC, id ASC"
	if find.NewestFirst {
		order = "created_ts DESC, id DESC"
	}
	query := `SELECT id, uid, conversation_id, role, content, model, created_ts FROM message WHERE ` + strings.Join(where, " AND ") + ` ORDER BY ` + order
	if find.Limit > 0 {
		query, args = query+" LIMIT "+placeholder(len(args)+1), append(args, find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	list := make([]*store.Message, 0)
	for rows.Next() {
		m := &store.Message{}
		var role string
		if err := rows.Scan(&m.ID, &m.UID, &m.ConversationID, &role, &m.Content, &m.Model, &m.CreatedTs); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.Role = store.MessageRole(role)
		list = append(list, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}
	return list, nil
}
