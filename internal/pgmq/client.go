// Package pgmq is a thin wrapper over the pgmq Postgres extension.
package pgmq

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Client wraps a Postgres pool for pgmq queue operations.
type Client struct {
	pool *pgxpool.Pool
}

// New returns a new pgmq client backed by the given pool.
func New(pool *pgxpool.Pool) *Client {
	return &Client{pool: pool}
}

// Message represents a single pgmq message.
type Message struct {
	ID   int64  // message identifier
	Data []byte // raw JSON payload
}

// Send pushes a JSON payload into the given queue.
func (c *Client) Send(ctx context.Context, queue string, payload []byte) error {
	const q = "SELECT pgmq.send($1, $2::jsonb, 0)"
	if _, err := c.pool.Exec(ctx, q, queue, string(payload)); err != nil {
		return fmt.Errorf("pgmq send to %s: %w", queue, err)
	}
	return nil
}

// ReadWithPoll reads up to maxMessages from the queue. Messages stay
// invisible to other consumers for vtSec seconds; if not deleted before the
// visibility timeout expires, pgmq redelivers them.
func (c *Client) ReadWithPoll(ctx context.Context, queue string, vtSec, maxMessages int) ([]*Message, error) {
	const q = "SELECT msg_id, message FROM pgmq.read_with_poll($1, $2, $3)"
	rows, err := c.pool.Query(ctx, q, queue, vtSec, maxMessages)
	if err != nil {
		return nil, fmt.Errorf("pgmq read_with_poll on %s: %w", queue, err)
	}
	defer rows.Close()

	var msgs []*Message
	for rows.Next() {
		var id int64
		var data []byte
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("pgmq read scan: %w", err)
		}
		msgs = append(msgs, &Message{ID: id, Data: data})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgmq read rows: %w", err)
	}
	return msgs, nil
}

// Delete removes messages by their IDs from the specified queue.
func (c *Client) Delete(ctx context.Context, queue string, msgIDs []int64) error {
	const q = "SELECT pgmq.delete($1, $2)"
	if _, err := c.pool.Exec(ctx, q, queue, msgIDs); err != nil {
		return fmt.Errorf("pgmq delete from %s: %w", queue, err)
	}
	return nil
}
