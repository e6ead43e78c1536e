package agent

import (
	"tileworld/internal/domain/contract"
	"tileworld/internal/domain/message"
	"tileworld/internal/domain/mode"
)

// Hybrid runs the full zone, auction and claim protocol.
type Hybrid struct {
	coord    *contract.Coordinator
	selector *mode.Selector
	board    contract.Board
}

func NewHybrid(coord *contract.Coordinator, selector *mode.Selector) *Hybrid {
	return &Hybrid{coord: coord, selector: selector}
}

func (h *Hybrid) Name() string { return "hybrid" }

// Board is the classification built in this tick's communicate phase, as
// amended by the decide phase.
func (h *Hybrid) Board() contract.Board { return h.board }

func (h *Hybrid) Communicate(a *Agent, p Perception) []message.Message {
	z := a.Zone()
	h.board = h.coord.Classify(a.Memory, p.Self, z.Bounds, p.Carried)
	return h.coord.Announce(a.ID, z.ID, h.board)
}

func (h *Hybrid) Decide(a *Agent, p Perception, inbox []message.Message) mode.Decision {
	z := a.Zone()
	h.coord.Ingest(&h.board, a.Memory, a.ID, p.Self, z.ID, inbox)
	return h.selector.Decide(mode.View{
		Self:    p.Self,
		Fuel:    p.Fuel,
		Carried: p.Carried,
		Here:    p.Here,
		Memory:  a.Memory,
		Board:   h.board,
		Anchors: z.Anchors,
	})
}
