package funnel

// Facts summarizes the lead knowledge the classifier needs. It mirrors what
// has already been extracted and persisted; the classifier never parses text
// into facts itself.
type Facts struct {
	HasBudget       bool
	HasNeighborhood bool
	HasBedrooms     bool
}

// ReadyToMatch reports whether enough preferences are known to run matching.
func (f Facts) ReadyToMatch() bool {
	return f.HasBudget && (f.HasNeighborhood || f.HasBedrooms)
}

// Classifier computes stage transitions from (state, message, facts).
type Classifier struct {
	keywords *Keywords
}

// NewClassifier builds a classifier over the given keyword lists.
func NewClassifier(kw *Keywords) *Classifier {
	if kw == nil {
		kw = DefaultKeywords()
	}
	return &Classifier{keywords: kw}
}

// Next returns the stage that follows the current one for the given inbound
// message. The transition to human handoff is absolute and absorbing; a
// scheduling keyword wins from every other stage.
func (c *Classifier) Next(current Stage, text string, facts Facts) Stage {
	if current == StageHumanHandoff {
		return StageHumanHandoff
	}
	if c.keywords.WantsHuman(text) {
		return StageHumanHandoff
	}
	if c.keywords.Has(text, CategoryScheduling) {
		return StageScheduling
	}

	switch current {
	case StageWelcome:
		return StageDataCollection

	case StageDataCollection, StageAwaitingInfo:
		if facts.ReadyToMatch() {
			return StageMatching
		}
		if cat, ok := c.keywords.Match(text); ok {
			switch cat {
			case CategoryBudget, CategoryLocation, CategoryPreferences:
				return StageDataCollection
			}
		}
		return StageAwaitingInfo

	case StageMatching, StagePresentation:
		if c.keywords.Has(text, CategoryInterest) {
			return StageInterest
		}
		return current

	case StageInterest:
		return StageInterest

	case StageNoMatch:
		return StageRefinement

	case StageRefinement:
		return StageDataCollection

	default:
		return current
	}
}
