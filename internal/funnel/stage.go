// Package funnel implements the sales-funnel state machine that positions
// each conversation. The classifier is pure; all persistence happens in the
// conversation orchestrator.
package funnel

// Stage is a conversation's position in the sales funnel.
type Stage string

const (
	StageWelcome        Stage = "welcome"
	StageDataCollection Stage = "data_collection"
	StageAwaitingInfo   Stage = "awaiting_info"
	StageMatching       Stage = "matching"
	StagePresentation   Stage = "presentation"
	StageInterest       Stage = "interest"
	StageNoMatch        Stage = "no_match"
	StageRefinement     Stage = "refinement"
	StageScheduling     Stage = "scheduling"
	StageNegotiation    Stage = "negotiation"
	// StageHumanHandoff is terminal for automation: the orchestrator keeps
	// persisting messages but stops auto-replying.
	StageHumanHandoff Stage = "human_handoff"
)

var knownStages = map[Stage]struct{}{
	StageWelcome:        {},
	StageDataCollection: {},
	StageAwaitingInfo:   {},
	StageMatching:       {},
	StagePresentation:   {},
	StageInterest:       {},
	StageNoMatch:        {},
	StageRefinement:     {},
	StageScheduling:     {},
	StageNegotiation:    {},
	StageHumanHandoff:   {},
}

// IsKnownStage reports whether stage is part of the funnel.
func IsKnownStage(stage Stage) bool {
	_, ok := knownStages[stage]
	return ok
}

// IsTerminal reports whether automation must stop for this stage.
func IsTerminal(stage Stage) bool {
	return stage == StageHumanHandoff
}
