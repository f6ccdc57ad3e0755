package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/hrygo/confidant/store"
)

// CreateMessage inserts a message with created_ts = max(requested, last + 1)
// for its conversation. SQLite runs the statement under its single writer
// lock, so the subselect and the insert are atomic.
func (d *DB) CreateMessage(ctx context.Context, create *store.Message) (*store.Message, error) {
	stmt := `INSERT INTO message (uid, conversation_id, role, content, model, created_ts)
		VALUES (?, ?, ?, ?, ?, MAX(?, (SELECT COALESCE(MAX(created_ts), 0) + 1 FROM message WHERE conversation_id = ?)))
		RETURNING id, created_ts`
	args := []any{create.UID, create.ConversationID, string(create.Role), create.Content, create.Model, create.CreatedTs, create.ConversationID}
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(&create.ID, &create.CreatedTs); err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
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
