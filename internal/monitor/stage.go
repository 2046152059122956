package monitor

// Stage is the step of the cycle a monitor is in.
type Stage int

// Cycle stages, in the order a cycle goes through them.
const (
	StageIdle Stage = iota
	StageScraping
	StageReconciling
	StageNotifying
	StagePersisting
	StageSleeping
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageScraping:
		return "scraping"
	case StageReconciling:
		return "reconciling"
	case StageNotifying:
		return "notifying"
	case StagePersisting:
		return "persisting"
	case StageSleeping:
		return "sleeping"
	default:
		return "unknown"
	}
}
