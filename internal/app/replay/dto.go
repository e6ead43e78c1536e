package replay

import "tileworld/internal/app/ports"

type Request struct {
	RunID   string
	Limit   int
	AgentID int
	// FromTick and ToTick bound the window inclusively; zero means open.
	FromTick int64
	ToTick   int64
}

type Response struct {
	Ticks  []ports.TickSummary     `json:"ticks"`
	Latest map[int]ports.AgentTick `json:"latest"`
}
