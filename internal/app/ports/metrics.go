package ports

type TickMetrics interface {
	RecordTick(summary TickSummary)
	RecordFailure()
}
