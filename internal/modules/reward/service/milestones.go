package reward

// Milestone is a streak length that earns a reward when first reached in a run.
type Milestone struct {
	Days          int    `json:"days"`
	Title         string `json:"title"`
	ManualCredits int    `json:"manual_credits"`
	AutoCredits   int    `json:"auto_credits"`
	Points        int    `json:"points"`
}

var milestones = []Milestone{
	{Days: 3, Title: "Sprout", AutoCredits: 1, Points: 10},
	{Days: 7, Title: "First Week", ManualCredits: 1, AutoCredits: 1, Points: 25},
	{Days: 14, Title: "Fortnight", ManualCredits: 1, Points: 50},
	{Days: 30, Title: "Moon Cycle", ManualCredits: 1, AutoCredits: 2, Points: 100},
	{Days: 60, Title: "Deep Roots", ManualCredits: 2, Points: 200},
	{Days: 100, Title: "Century", ManualCredits: 2, AutoCredits: 3, Points: 400},
	{Days: 365, Title: "Full Orbit", ManualCredits: 3, AutoCredits: 5, Points: 1000},
}

// Milestones returns a copy of the milestone table in ascending order.
func Milestones() []Milestone {
	out := make([]Milestone, len(milestones))
	copy(out, milestones)
	return out
}

func milestoneFor(streak int) (Milestone, bool) {
	for _, m := range milestones {
		if m.Days == streak {
			return m, true
		}
	}
	return Milestone{}, false
}

// NextMilestone returns the first milestone above streak.
func NextMilestone(streak int) (Milestone, bool) {
	for _, m := range milestones {
		if m.Days > streak {
			return m, true
		}
	}
	return Milestone{}, false
}
