package mailbox

import (
	"context"
	"fmt"
	"sync"

	"tileworld/internal/adapter/wire"
	"tileworld/internal/domain/message"
)

// Mailbox holds one tick's messages in encoded form and decodes a fresh
// copy for every reader, so no two agents share a payload.
type Mailbox struct {
	codec *wire.Codec

	mu    sync.RWMutex
	tick  int64
	items [][]byte
}

func New(codec *wire.Codec) *Mailbox {
	return &Mailbox{codec: codec}
}

func (m *Mailbox) Reset(tick int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tick = tick
	m.items = m.items[:0]
}

func (m *Mailbox) Post(_ context.Context, msgs ...message.Message) error {
	encoded := make([][]byte, 0, len(msgs))
	for _, msg := range msgs {
		b, err := m.codec.Encode(msg)
		if err != nil {
			return fmt.Errorf("post from agent %d: %w", msg.Sender, err)
		}
		encoded = append(encoded, b)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, encoded...)
	return nil
}

// Read returns every message of the current tick addressed to agentID,
// including the agent's own broadcasts, in posting order.
func (m *Mailbox) Read(ctx context.Context, agentID int) ([]message.Message, error) {
	m.mu.RLock()
	items := append([][]byte(nil), m.items...)
	m.mu.RUnlock()

	out := make([]message.Message, 0, len(items))
	for _, b := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		msg, err := m.codec.Decode(b)
		if err != nil {
			return nil, err
		}
		if msg.For(agentID) {
			out = append(out, msg)
		}
	}
	return out, nil
}
