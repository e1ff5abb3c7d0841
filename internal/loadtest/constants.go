package loadtest

import "time"

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
)

// Runner configuration constants.
const (
	DeadlineDays         = 7
	PercentageMultiplier = 100
	ProgressInterval     = time.Second
	maxResponseBytes     = 4 << 20
)
