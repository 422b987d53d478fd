package domain

import (
	"fmt"
	"math"
	"strings"
)

// ApplicantProfile is the normalized view of an applicant. A nil pointer means
// the value is unknown, which is distinct from a known zero.
type ApplicantProfile struct {
	Education   *Education  `json:"education,omitempty"`
	Experience  *Experience `json:"experience,omitempty"`
	Salary      *Salary     `json:"salary,omitempty"`
	Languages   []Language  `json:"languages,omitempty"`
	HasJobOffer bool        `json:"has_job_offer"`
	JobOffer    *JobOffer   `json:"job_offer,omitempty"`
	Age         *int        `json:"age,omitempty"`
	Occupation  *Occupation `json:"occupation,omitempty"`
	Funds       *Funds      `json:"funds,omitempty"`
	Nationality string      `json:"nationality,omitempty"`
	Skills      []string    `json:"skills,omitempty"`
}

type Education struct {
	Level       EducationLevel `json:"level"`
	Field       string         `json:"field,omitempty"`
	Institution string         `json:"institution,omitempty"`
	Verified    bool           `json:"verified"`
}

type Experience struct {
	TotalYears  float64 `json:"total_years"`
	CurrentRole string  `json:"current_role,omitempty"`
	Verified    bool    `json:"verified"`
}

// Salary is an annual gross amount.
type Salary struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency,omitempty"`
	Verified bool    `json:"verified"`
}

type Language struct {
	Language string    `json:"language"`
	Level    CEFRLevel `json:"level,omitempty"`
	Score    *float64  `json:"score,omitempty"`
	TestType string    `json:"test_type,omitempty"`
	Verified bool      `json:"verified"`
}

type JobOffer struct {
	Employer           string   `json:"employer,omitempty"`
	Position           string   `json:"position,omitempty"`
	Country            string   `json:"country,omitempty"`
	Salary             *float64 `json:"salary,omitempty"`
	Currency           string   `json:"currency,omitempty"`
	SponsorshipOffered *bool    `json:"sponsorship_offered,omitempty"`
	Verified           bool     `json:"verified"`
}

type Occupation struct {
	Title string `json:"title"`
	// ShortageListed marks occupations on a national shortage list, which
	// unlocks lower salary thresholds for some visas.
	ShortageListed bool `json:"shortage_listed,omitempty"`
}

type Funds struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency,omitempty"`
	Verified bool    `json:"verified"`
}

// OffersJob reports whether a job offer is known to exist. A false
// HasJobOffer without details is treated as unknown, not as a confirmed absence.
func (p *ApplicantProfile) OffersJob() bool {
	return p.HasJobOffer || p.JobOffer != nil
}

// BestLanguage returns the strongest language entry with a known level,
// preferring verified entries at equal rank. It returns false when none has a level.
func (p *ApplicantProfile) BestLanguage(only string) (Language, bool) {
	var best Language
	found := false
	for _, l := range p.Languages {
		if l.Level.Rank() == 0 {
			continue
		}
		if only != "" && !strings.EqualFold(l.Language, only) {
			continue
		}
		switch {
		case !found,
			l.Level.Rank() > best.Level.Rank(),
			l.Level.Rank() == best.Level.Rank() && l.Verified && !best.Verified:
			best, found = l, true
		}
	}
	return best, found
}

// Validate rejects values no extraction or caller should ever produce:
// NaN, infinities, negative amounts and levels outside the known scales.
// An empty level is allowed and scored as unknown.
func (p *ApplicantProfile) Validate() error {
	check := func(field string, v float64) error {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s must be a finite number", field)
		}
		if v < 0 {
			return fmt.Errorf("%s must not be negative", field)
		}
		return nil
	}

	if p.Education != nil && p.Education.Level != "" && p.Education.Level.Rank() == 0 {
		return fmt.Errorf("education.level %q is not a recognised education level", p.Education.Level)
	}
	if p.Experience != nil {
		if err := check("experience.total_years", p.Experience.TotalYears); err != nil {
			return err
		}
	}
	if p.Salary != nil {
		if err := check("salary.amount", p.Salary.Amount); err != nil {
			return err
		}
	}
	if p.Funds != nil {
		if err := check("funds.amount", p.Funds.Amount); err != nil {
			return err
		}
	}
	if p.Age != nil && *p.Age < 0 {
		return fmt.Errorf("age must not be negative")
	}
	if p.JobOffer != nil && p.JobOffer.Salary != nil {
		if err := check("job_offer.salary", *p.JobOffer.Salary); err != nil {
			return err
		}
	}
	for i, l := range p.Languages {
		if l.Level != "" && l.Level.Rank() == 0 {
			return fmt.Errorf("languages[%d].level %q is not a CEFR level", i, l.Level)
		}
		if l.Score != nil {
			if err := check(fmt.Sprintf("languages[%d].score", i), *l.Score); err != nil {
				return err
			}
		}
	}
	return nil
}
