package scoring

import (
	"fmt"
	"math"
	"strings"

	"github.com/visaeval/visaeval-backend/internal/eligibility/domain"
)

// Fractions of a dimension's weight.
const (
	fullFraction    = 1.0
	meetsFraction   = 0.85
	nearFraction    = 0.5
	belowFraction   = 0.2
	unknownFraction = 0.4

	// nearRatio is the value/minimum ratio below which a value is far short.
	nearRatio = 0.7
	fullRatio = 1.5

	educationStep  = 0.1
	languageStep   = 0.075
	experienceStep = 0.15

	ageRangeFraction = 0.6
)

// bucket maps value/minimum onto a fraction of the weight. A known value never
// lands below belowFraction.
func bucket(ratio float64) float64 {
	switch {
	case ratio >= fullRatio:
		return fullFraction
	case ratio >= 1:
		return meetsFraction
	case ratio >= nearRatio:
		return nearFraction
	default:
		return belowFraction
	}
}

// ratio of value to minimum. A zero minimum is met by any value and exceeded by a positive one.
func ratio(value, minimum float64) float64 {
	if minimum <= 0 {
		if value > 0 {
			return fullRatio
		}
		return 1
	}
	return value / minimum
}

type dimension struct {
	// score is the unrounded award; breakdown.Score is its display value.
	score     float64
	breakdown domain.ScoreBreakdown
	met       []string
	failed    []string
	warnings  []string
}

func newDimension(spec domain.RequirementSpec) dimension {
	return dimension{
		breakdown: domain.ScoreBreakdown{
			Kind:     spec.Kind,
			Label:    spec.Kind.Label(),
			MaxScore: spec.Weight,
			Notes:    []string{},
		},
	}
}

func (d *dimension) award(spec domain.RequirementSpec, fraction float64) {
	d.score = spec.Weight * math.Max(0, math.Min(fraction, fullFraction))
	d.breakdown.Score = round2(d.score)
}

func (d *dimension) note(format string, args ...any) {
	d.breakdown.Notes = append(d.breakdown.Notes, fmt.Sprintf(format, args...))
}

func (d *dimension) warn(format string, args ...any) {
	d.warnings = append(d.warnings, fmt.Sprintf(format, args...))
}

// hardFail marks the dimension as failed hard. Without a cap on the requirement there
// is nothing to enforce and the call is a no-op.
func (d *dimension) hardFail(spec domain.RequirementSpec, reason string) {
	if spec.HardFailCap == nil {
		return
	}
	c := *spec.HardFailCap
	d.breakdown.HardFail = &reason
	d.breakdown.Cap = &c
}

// judge files the dimension under met or failed requirements and applies the
// below-minimum failure policy.
func (d *dimension) judge(spec domain.RequirementSpec, r float64, detail string) {
	label := spec.Kind.Label()
	if r >= 1 {
		d.met = append(d.met, label+": "+detail)
		return
	}
	d.failed = append(d.failed, label+": "+detail)
	if spec.FailBelowMinimum && r < nearRatio {
		d.hardFail(spec, label+" far below the minimum")
	}
}

func (d *dimension) unverified(spec domain.RequirementSpec) {
	d.note("Not verified by a supporting document")
	d.warn("%s is self-reported and could not be verified", spec.Kind.Label())
}

func scoreDimension(def domain.VisaDefinition, spec domain.RequirementSpec, p *domain.ApplicantProfile) dimension {
	var (
		d     dimension
		known bool
	)
	switch t := spec.Thresholds.(type) {
	case domain.EducationThresholds:
		d, known = scoreEducation(spec, t, p)
	case domain.ExperienceThresholds:
		d, known = scoreExperience(spec, t, p)
	case domain.SalaryThresholds:
		d, known = scoreSalary(spec, t, p)
	case domain.JobOfferThresholds:
		d, known = scoreJobOffer(def, spec, p)
	case domain.LanguageThresholds:
		d, known = scoreLanguage(spec, t, p)
	case domain.AgeThresholds:
		d, known = scoreAge(spec, t, p)
	case domain.OccupationThresholds:
		d, known = scoreOccupation(spec, t, p)
	case domain.FinancialProofThresholds:
		d, known = scoreFinancialProof(spec, t, p)
	}
	if !known {
		return unknownDimension(spec)
	}
	return d
}

func unknownDimension(spec domain.RequirementSpec) dimension {
	d := newDimension(spec)
	d.breakdown.Unknown = true
	label := spec.Kind.Label()

	if spec.Required {
		d.note("%s is required but was not provided", label)
		d.failed = append(d.failed, label+": required but not provided")
		d.hardFail(spec, label+" missing")
		return d
	}

	d.award(spec, unknownFraction)
	d.note("%s not provided; partial credit awarded", label)
	d.warn("%s could not be assessed from the submitted information", label)
	return d
}

func scoreEducation(spec domain.RequirementSpec, t domain.EducationThresholds, p *domain.ApplicantProfile) (dimension, bool) {
	if p.Education == nil || p.Education.Level.Rank() == 0 {
		return dimension{}, false
	}
	d := newDimension(spec)
	have, want := p.Education.Level.Rank(), t.MinLevel.Rank()

	r := float64(have) / float64(want)
	fraction := bucket(r)
	if have > want {
		fraction += educationStep * float64(have-want)
	}
	d.award(spec, fraction)
	d.breakdown.Verified = p.Education.Verified

	detail := fmt.Sprintf("%s against a %s minimum", levelName(p.Education.Level), levelName(t.MinLevel))
	d.note("%s", detail)
	if have > want {
		d.note("Bonus for %d level(s) above the minimum", have-want)
	}
	if !p.Education.Verified {
		d.unverified(spec)
	}
	d.judge(spec, r, detail)
	return d, true
}

func scoreExperience(spec domain.RequirementSpec, t domain.ExperienceThresholds, p *domain.ApplicantProfile) (dimension, bool) {
	if p.Experience == nil {
		return dimension{}, false
	}
	d := newDimension(spec)
	years := p.Experience.TotalYears

	r := ratio(years, t.MinYears)
	fraction := bucket(r)
	if t.BonusYears > 0 && years > t.MinYears {
		fraction += (years - t.MinYears) / t.BonusYears * experienceStep
	}
	d.award(spec, fraction)
	d.breakdown.Verified = p.Experience.Verified

	detail := fmt.Sprintf("%s years against a %s-year minimum", formatNumber(years), formatNumber(t.MinYears))
	d.note("%s", detail)
	d.judge(spec, r, detail)
	return d, true
}

func scoreSalary(spec domain.RequirementSpec, t domain.SalaryThresholds, p *domain.ApplicantProfile) (dimension, bool) {
	if p.Salary == nil {
		return dimension{}, false
	}
	d := newDimension(spec)

	minimum := t.MinAmount
	if p.Occupation != nil && p.Occupation.ShortageListed && t.AlternateMinForShortageOccupation != nil {
		minimum = *t.AlternateMinForShortageOccupation
		d.note("Shortage occupation threshold applied")
	}

	r := ratio(p.Salary.Amount, minimum)
	fraction := bucket(r)
	if p.Salary.Verified && r >= 1 {
		fraction = fullFraction
	}
	d.award(spec, fraction)
	d.breakdown.Verified = p.Salary.Verified

	detail := fmt.Sprintf("%s against a %s minimum", formatMoney(p.Salary.Amount, p.Salary.Currency), formatMoney(minimum, t.Currency))
	d.note("%s", detail)
	checkCurrency(&d, spec, p.Salary.Currency, t.Currency)
	if !p.Salary.Verified {
		d.unverified(spec)
	}
	d.judge(spec, r, detail)
	return d, true
}

func scoreJobOffer(def domain.VisaDefinition, spec domain.RequirementSpec, p *domain.ApplicantProfile) (dimension, bool) {
	if !p.OffersJob() {
		return dimension{}, false
	}
	d := newDimension(spec)
	d.award(spec, fullFraction)

	offer := p.JobOffer
	if offer == nil {
		d.note("Job offer stated without details")
		d.met = append(d.met, spec.Kind.Label()+": stated")
		return d, true
	}

	d.breakdown.Verified = offer.Verified
	switch {
	case offer.Employer != "" && offer.Position != "":
		d.note("%s at %s", offer.Position, offer.Employer)
	case offer.Employer != "":
		d.note("Offer from %s", offer.Employer)
	}
	if offer.Country != "" && def.Country != "" && !strings.EqualFold(offer.Country, def.Country) {
		d.note("Employer is located in %s", offer.Country)
		d.warn("Job offer is for %s, not %s", offer.Country, def.Country)
	}
	if offer.SponsorshipOffered != nil && !*offer.SponsorshipOffered {
		d.note("Employer does not offer visa sponsorship")
	}
	d.met = append(d.met, spec.Kind.Label()+": confirmed")
	return d, true
}

func scoreLanguage(spec domain.RequirementSpec, t domain.LanguageThresholds, p *domain.ApplicantProfile) (dimension, bool) {
	best, ok := p.BestLanguage(t.Language)
	if !ok {
		return dimension{}, false
	}
	d := newDimension(spec)
	have, want := best.Level.Rank(), t.MinLevel.Rank()

	r := float64(have) / float64(want)
	fraction := bucket(r)
	if have > want {
		fraction += languageStep * float64(have-want)
	}
	d.award(spec, fraction)
	d.breakdown.Verified = best.Verified

	detail := fmt.Sprintf("%s %s against a %s minimum", best.Language, best.Level, t.MinLevel)
	d.note("%s", strings.TrimSpace(detail))
	if best.TestType != "" {
		d.note("Certified by %s", best.TestType)
	}
	if !best.Verified {
		d.unverified(spec)
	}
	d.judge(spec, r, strings.TrimSpace(detail))
	return d, true
}

func scoreAge(spec domain.RequirementSpec, t domain.AgeThresholds, p *domain.ApplicantProfile) (dimension, bool) {
	if p.Age == nil {
		return dimension{}, false
	}
	d := newDimension(spec)
	age := *p.Age
	label := spec.Kind.Label()

	switch {
	case age >= t.OptimalMin && age <= t.OptimalMax:
		d.award(spec, fullFraction)
		d.met = append(d.met, fmt.Sprintf("%s: %d within the optimal range %d-%d", label, age, t.OptimalMin, t.OptimalMax))
	case age >= t.MinAge && age <= t.MaxAge:
		d.award(spec, ageRangeFraction)
		d.met = append(d.met, fmt.Sprintf("%s: %d within the eligible range %d-%d", label, age, t.MinAge, t.MaxAge))
		d.note("Outside the optimal range %d-%d", t.OptimalMin, t.OptimalMax)
	default:
		d.award(spec, belowFraction)
		d.failed = append(d.failed, fmt.Sprintf("%s: %d outside the eligible range %d-%d", label, age, t.MinAge, t.MaxAge))
		if spec.FailBelowMinimum {
			d.hardFail(spec, label+" outside the eligible range")
		}
	}
	d.note("Age %d", age)
	return d, true
}

func scoreOccupation(spec domain.RequirementSpec, t domain.OccupationThresholds, p *domain.ApplicantProfile) (dimension, bool) {
	if p.Occupation == nil || strings.TrimSpace(p.Occupation.Title) == "" {
		return dimension{}, false
	}
	d := newDimension(spec)
	title := strings.TrimSpace(p.Occupation.Title)
	lower := strings.ToLower(title)
	label := spec.Kind.Label()

	if p.Occupation.ShortageListed {
		d.note("On a national shortage list")
	}

	if len(t.EligibleOccupations) == 0 {
		d.award(spec, meetsFraction)
		d.note("%s (no restricted occupation list)", title)
		d.met = append(d.met, label+": "+title)
		return d, true
	}

	for _, keyword := range t.EligibleOccupations {
		if keyword != "" && strings.Contains(lower, keyword) {
			d.award(spec, fullFraction)
			d.note("%s matches the eligible occupation %q", title, keyword)
			d.met = append(d.met, label+": "+title+" is eligible")
			return d, true
		}
	}

	d.award(spec, belowFraction)
	d.note("%s is not on the eligible occupation list", title)
	d.failed = append(d.failed, label+": "+title+" is not on the eligible list")
	if spec.FailBelowMinimum {
		d.hardFail(spec, label+" not eligible")
	}
	return d, true
}

func scoreFinancialProof(spec domain.RequirementSpec, t domain.FinancialProofThresholds, p *domain.ApplicantProfile) (dimension, bool) {
	if p.Funds == nil {
		return dimension{}, false
	}
	d := newDimension(spec)

	r := ratio(p.Funds.Amount, t.MinAmount)
	fraction := bucket(r)
	if p.Funds.Verified && r >= 1 {
		fraction = fullFraction
	}
	d.award(spec, fraction)
	d.breakdown.Verified = p.Funds.Verified

	detail := fmt.Sprintf("%s against a %s minimum", formatMoney(p.Funds.Amount, p.Funds.Currency), formatMoney(t.MinAmount, t.Currency))
	d.note("%s", detail)
	checkCurrency(&d, spec, p.Funds.Currency, t.Currency)
	if !p.Funds.Verified {
		d.unverified(spec)
	}
	d.judge(spec, r, detail)
	return d, true
}

// checkCurrency notes a mismatch. Amounts are compared as given; there is no conversion.
func checkCurrency(d *dimension, spec domain.RequirementSpec, have, want string) {
	if have == "" || want == "" || strings.EqualFold(have, want) {
		return
	}
	d.note("Amount is in %s, threshold is in %s", strings.ToUpper(have), strings.ToUpper(want))
	d.warn("%s currency %s differs from the required %s", spec.Kind.Label(), strings.ToUpper(have), strings.ToUpper(want))
}

func levelName(l domain.EducationLevel) string {
	return strings.ReplaceAll(string(l), "_", " ")
}

func formatNumber(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.1f", v)
}

func formatMoney(amount float64, currency string) string {
	s := fmt.Sprintf("%.2f", amount)
	if amount == math.Trunc(amount) {
		s = fmt.Sprintf("%.0f", amount)
	}
	if currency == "" {
		return s
	}
	return s + " " + strings.ToUpper(currency)
}
