package jobs

type stageTransition struct {
	from Stage
	to   Target
}

// advanceTransitions is the exhaustive set of legal chain advances. Anything
// not listed is rejected.
var advanceTransitions = []stageTransition{
	{from: StageCapture, to: TargetPostProduction},
	{from: StageCapture, to: TargetFinishing},
	{from: StageCapture, to: TargetHandover},
	{from: StagePostProduction, to: TargetFinishing},
	{from: StagePostProduction, to: TargetHandover},
	{from: StageFinishing, to: TargetHandover},
}

var advanceSet = func() map[stageTransition]struct{} {
	set := make(map[stageTransition]struct{}, len(advanceTransitions))
	for _, t := range advanceTransitions {
		set[t] = struct{}{}
	}
	return set
}()

// CanAdvance reports whether a chained job at stage may move to target.
func CanAdvance(from Stage, to Target) bool {
	_, ok := advanceSet[stageTransition{from: from, to: to}]
	return ok
}

// LegalTargets lists the advance targets available from stage, in production order.
func LegalTargets(from Stage) []Target {
	var out []Target
	for _, t := range advanceTransitions {
		if t.from == from {
			out = append(out, t.to)
		}
	}
	return out
}

// completableStatuses are the lifecycle values a non-chained job may be completed from.
var completableStatuses = map[Status]struct{}{
	StatusPending:    {},
	StatusInProgress: {},
	StatusReview:     {},
}

// CanComplete reports whether a non-chained job in status may move to completed.
func CanComplete(status Status) bool {
	_, ok := completableStatuses[status]
	return ok
}
