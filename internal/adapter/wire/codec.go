// Package wire encodes agent messages for the mailbox and the observer
// stream. Memory snapshots are the bulk of the traffic and travel
// zstd-compressed.
package wire

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"

	"tileworld/internal/domain/message"
)

var ErrUnknownType = errors.New("unknown message type")

type Envelope struct {
	Type     message.Type    `json:"type"`
	Sender   int             `json:"sender"`
	Receiver int             `json:"receiver"`
	Body     json.RawMessage `json:"body,omitempty"`
	Zstd     []byte          `json:"zstd,omitempty"`
}

// Codec is safe for concurrent use.
type Codec struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

func NewCodec() (*Codec, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		_ = enc.Close()
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	return &Codec{enc: enc, dec: dec}, nil
}

func (c *Codec) Close() error {
	c.dec.Close()
	return c.enc.Close()
}

func (c *Codec) Encode(m message.Message) ([]byte, error) {
	if m.Payload == nil {
		return nil, fmt.Errorf("encode message from %d: %w", m.Sender, ErrUnknownType)
	}
	body, err := json.Marshal(m.Payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", m.Type(), err)
	}
	env := Envelope{Type: m.Type(), Sender: m.Sender, Receiver: m.Receiver}
	if env.Type == message.TypeAgentInfo {
		env.Zstd = c.enc.EncodeAll(body, nil)
	} else {
		env.Body = body
	}
	return json.Marshal(env)
}

func (c *Codec) Decode(b []byte) (message.Message, error) {
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return message.Message{}, fmt.Errorf("decode envelope: %w", err)
	}
	body := []byte(env.Body)
	if len(env.Zstd) > 0 {
		raw, err := c.dec.DecodeAll(env.Zstd, nil)
		if err != nil {
			return message.Message{}, fmt.Errorf("decompress %s payload: %w", env.Type, err)
		}
		body = raw
	}
	payload, err := decodePayload(env.Type, body)
	if err != nil {
		return message.Message{}, err
	}
	return message.Message{Sender: env.Sender, Receiver: env.Receiver, Payload: payload}, nil
}

func decodePayload(t message.Type, body []byte) (message.Payload, error) {
	switch t {
	case message.TypeAgentInfo:
		var p message.AgentSnapshot
		return p, unmarshal(t, body, &p)
	case message.TypeGoalInfo:
		var p message.GoalClaim
		return p, unmarshal(t, body, &p)
	case message.TypeContractTile, message.TypeContractHole:
		var p message.Contract
		if err := unmarshal(t, body, &p); err != nil {
			return nil, err
		}
		if p.Type() != t {
			return nil, fmt.Errorf("%s carries %s entities: %w", t, p.Kind, ErrUnknownType)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("%s: %w", t, ErrUnknownType)
	}
}

func unmarshal(t message.Type, body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", t, err)
	}
	return nil
}
