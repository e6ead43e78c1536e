package contract

import (
	"sort"

	"tileworld/internal/domain/grid"
	"tileworld/internal/domain/memory"
	"tileworld/internal/domain/message"
	"tileworld/internal/domain/zone"
)

type Params struct {
	Capacity              int
	AnnounceCount         int
	MaxAssistZoneDistance int
	LifetimeThreshold     float64
	TSPHeuristic          bool
}

func DefaultParams() Params {
	return Params{
		Capacity:              3,
		AnnounceCount:         1,
		MaxAssistZoneDistance: 1,
		LifetimeThreshold:     1.0,
	}
}

// Work is the per-kind outcome of classification. Auction holds items this
// agent cannot reach before they decay; Overflow holds reachable items
// beyond what it keeps. Both are offered to peers.
type Work struct {
	Keep     []grid.Entity `json:"keep"`
	Auction  []grid.Entity `json:"auction"`
	Overflow []grid.Entity `json:"overflow"`
}

func (w Work) Offered() []grid.Entity {
	out := make([]grid.Entity, 0, len(w.Auction)+len(w.Overflow))
	out = append(out, w.Auction...)
	return append(out, w.Overflow...)
}

// Candidates is the local work list in preference order: kept items
// first, then reachable overflow.
func (w Work) Candidates() []grid.Entity {
	out := make([]grid.Entity, 0, len(w.Keep)+len(w.Overflow))
	out = append(out, w.Keep...)
	return append(out, w.Overflow...)
}

// Board is rebuilt every tick and never carried over.
type Board struct {
	Tiles       Work          `json:"tiles"`
	Holes       Work          `json:"holes"`
	AssistTiles []grid.Entity `json:"assist_tiles"`
	AssistHoles []grid.Entity `json:"assist_holes"`
}

func (b *Board) work(kind grid.Kind) *Work {
	if kind == grid.KindHole {
		return &b.Holes
	}
	return &b.Tiles
}

func (b *Board) assist(kind grid.Kind) *[]grid.Entity {
	if kind == grid.KindHole {
		return &b.AssistHoles
	}
	return &b.AssistTiles
}

// Claims lists every item this agent keeps for itself.
func (b Board) Claims() []grid.Entity {
	out := make([]grid.Entity, 0, len(b.Tiles.Keep)+len(b.Holes.Keep))
	out = append(out, b.Tiles.Keep...)
	return append(out, b.Holes.Keep...)
}

type Coordinator struct {
	params Params
}

func New(p Params) *Coordinator {
	return &Coordinator{params: p}
}

func (c *Coordinator) Params() Params { return c.params }

// Reachable reports whether the item's estimated remaining lifetime
// exceeds the distance from self.
func (c *Coordinator) Reachable(mem *memory.Memory, self grid.Point, e grid.Entity) bool {
	return mem.EstimatedRemainingLifetime(e, c.params.LifetimeThreshold) > float64(grid.Manhattan(self, e.Pos))
}

// Distance is the ordering metric for work items: Manhattan distance,
// scaled by the fraction of lifetime left when the TSP heuristic is on.
func (c *Coordinator) Distance(mem *memory.Memory, self grid.Point, e grid.Entity) float64 {
	d := float64(grid.Manhattan(self, e.Pos))
	if c.params.TSPHeuristic {
		d *= mem.EstimatedRemainingLifetime(e, 1.0) / float64(mem.Params().Lifetime)
	}
	return d
}

func (c *Coordinator) sortByDistance(mem *memory.Memory, self grid.Point, items []grid.Entity) {
	sort.SliceStable(items, func(i, j int) bool {
		di, dj := c.Distance(mem, self, items[i]), c.Distance(mem, self, items[j])
		if di != dj {
			return di < dj
		}
		a, b := items[i].Pos, items[j].Pos
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})
}

// Classify splits the remembered tiles and holes inside bounds into kept,
// auctioned and overflow items. Tiles are kept up to the free capacity and
// holes up to the carried count, each additionally capped by the announce
// count.
func (c *Coordinator) Classify(mem *memory.Memory, self grid.Point, bounds grid.Rect, carried int) Board {
	var b Board
	limits := map[grid.Kind]int{
		grid.KindTile: min(c.params.Capacity-carried, c.params.AnnounceCount),
		grid.KindHole: min(carried, c.params.AnnounceCount),
	}
	for _, kind := range []grid.Kind{grid.KindTile, grid.KindHole} {
		var items []grid.Entity
		for _, p := range mem.ObjectsWithin(bounds, kind) {
			items = append(items, p.Entity)
		}
		c.sortByDistance(mem, self, items)

		w := b.work(kind)
		for _, e := range items {
			switch {
			case !c.Reachable(mem, self, e):
				w.Auction = append(w.Auction, e)
			case len(w.Keep) < limits[kind]:
				w.Keep = append(w.Keep, e)
			default:
				w.Overflow = append(w.Overflow, e)
			}
		}
	}
	return b
}

// Announce builds this tick's broadcasts for b: one goal claim for the kept
// items and one contract per kind with anything on offer. Contracts need a
// zone id, so nothing is offered before the partition exists.
func (c *Coordinator) Announce(sender, zoneID int, b Board) []message.Message {
	var out []message.Message
	if claims := b.Claims(); len(claims) > 0 {
		out = append(out, message.NewBroadcast(sender, message.GoalClaim{Entities: claims}))
	}
	if zoneID == zone.NoZone {
		return out
	}
	for _, kind := range []grid.Kind{grid.KindTile, grid.KindHole} {
		offered := b.work(kind).Offered()
		if len(offered) == 0 {
			continue
		}
		out = append(out, message.NewBroadcast(sender, message.Contract{Kind: kind, Entities: offered, ZoneID: zoneID}))
	}
	return out
}

// Ingest folds peers' contracts and claims from inbox into b. Contracts
// from zones within the assist distance become assistable when this agent
// can still reach the item in time. Claims then strike the item from both
// the kept and the assistable lists. When a peer claims an item this agent
// also keeps, the lower agent id keeps it.
func (c *Coordinator) Ingest(b *Board, mem *memory.Memory, self int, selfPos grid.Point, myZone int, inbox []message.Message) {
	for _, m := range inbox {
		ct, ok := m.Payload.(message.Contract)
		if !ok || m.Sender == self || !m.For(self) {
			continue
		}
		if !c.assistsZone(myZone, ct.ZoneID) || !ct.Kind.Work() {
			continue
		}
		list := b.assist(ct.Kind)
		for _, e := range ct.Entities {
			if e.Kind != ct.Kind || containsEntity(*list, e) || containsEntity(b.work(e.Kind).Keep, e) {
				continue
			}
			if c.Reachable(mem, selfPos, e) {
				*list = append(*list, e)
			}
		}
	}

	for _, m := range inbox {
		gc, ok := m.Payload.(message.GoalClaim)
		if !ok || m.Sender == self || !m.For(self) {
			continue
		}
		for _, e := range gc.Entities {
			if !e.Kind.Work() {
				continue
			}
			a := b.assist(e.Kind)
			*a = removeEntity(*a, e)
			w := b.work(e.Kind)
			w.Overflow = removeEntity(w.Overflow, e)
			if m.Sender < self {
				w.Keep = removeEntity(w.Keep, e)
			}
		}
	}

	c.sortByDistance(mem, selfPos, b.AssistTiles)
	c.sortByDistance(mem, selfPos, b.AssistHoles)
}

func (c *Coordinator) assistsZone(mine, theirs int) bool {
	if mine == zone.NoZone || theirs == zone.NoZone || mine == theirs {
		return false
	}
	d := mine - theirs
	if d < 0 {
		d = -d
	}
	return d <= c.params.MaxAssistZoneDistance
}

func containsEntity(list []grid.Entity, e grid.Entity) bool {
	for _, x := range list {
		if x == e {
			return true
		}
	}
	return false
}

func removeEntity(list []grid.Entity, e grid.Entity) []grid.Entity {
	out := list[:0]
	for _, x := range list {
		if x != e {
			out = append(out, x)
		}
	}
	return out
}
