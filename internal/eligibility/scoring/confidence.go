package scoring

import "github.com/visaeval/visaeval-backend/internal/eligibility/domain"

// Confidence bounds. Full certainty is never claimed.
const (
	MinConfidence = 50
	MaxConfidence = 95
)

// Confidence estimates how far a score can be trusted from how complete and
// verified the profile is. It does not look at the score itself.
func Confidence(p *domain.ApplicantProfile) int {
	c := MinConfidence
	if p == nil {
		return c
	}

	if p.Education != nil && p.Education.Verified && p.Education.Level.Rank() > 0 {
		c += 10
	}
	if p.Salary != nil && p.Salary.Verified {
		c += 10
	}
	if p.JobOffer != nil && p.JobOffer.Verified {
		c += 10
	}
	for _, l := range p.Languages {
		if l.Verified {
			c += 5
			break
		}
	}
	if p.Experience != nil && p.Experience.TotalYears > 0 {
		c += 5
	}
	if len(p.Skills) >= 4 {
		c += 5
	}

	if c > MaxConfidence {
		c = MaxConfidence
	}
	return c
}
