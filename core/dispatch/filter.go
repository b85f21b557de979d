package dispatch

import "github.com/fieldserve/dispatch/core/model"

// EligibilityFilter narrows proximity candidates to those allowed to take the
// job. Implementations must preserve input order.
type EligibilityFilter interface {
	Filter(candidates []model.Candidate, category model.ServiceCategory, requireActive bool) []model.Candidate
}

// CategoryFilter keeps candidates whose service category matches exactly and,
// when requireActive is set, whose account is approved and active.
type CategoryFilter struct{}

func (CategoryFilter) Filter(candidates []model.Candidate, category model.ServiceCategory, requireActive bool) []model.Candidate {
	var res []model.Candidate
	for _, c := range candidates {
		if c.EligibleFor(category, requireActive) {
			res = append(res, c)
		}
	}
	return res
}
