package tick

import "tileworld/internal/app/ports"

type Request struct{}

type Response struct {
	Summary ports.TickSummary
}
