package domain

import "fmt"

// Kind identifies a requirement dimension.
type Kind string

const (
	KindEducation      Kind = "education"
	KindExperience     Kind = "experience"
	KindSalary         Kind = "salary"
	KindJobOffer       Kind = "job_offer"
	KindLanguage       Kind = "language"
	KindAge            Kind = "age"
	KindOccupation     Kind = "occupation"
	KindFinancialProof Kind = "financial_proof"
)

// Kinds lists every dimension in reporting order.
var Kinds = []Kind{
	KindEducation,
	KindExperience,
	KindSalary,
	KindJobOffer,
	KindLanguage,
	KindAge,
	KindOccupation,
	KindFinancialProof,
}

func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Label is the human-readable dimension name used in notes and reports.
func (k Kind) Label() string {
	switch k {
	case KindEducation:
		return "Education"
	case KindExperience:
		return "Work experience"
	case KindSalary:
		return "Salary"
	case KindJobOffer:
		return "Job offer"
	case KindLanguage:
		return "Language"
	case KindAge:
		return "Age"
	case KindOccupation:
		return "Occupation"
	case KindFinancialProof:
		return "Financial proof"
	default:
		return string(k)
	}
}

// RequirementSpec is one weighted dimension of a visa definition.
type RequirementSpec struct {
	Kind     Kind    `json:"kind"`
	Required bool    `json:"required"`
	Weight   float64 `json:"weight"`
	// HardFailCap, when set, caps the normalized score if this dimension hard-fails.
	HardFailCap *int `json:"hard_fail_cap,omitempty"`
	// FailBelowMinimum makes a known value in the lowest bucket a hard failure too.
	FailBelowMinimum bool       `json:"fail_below_minimum,omitempty"`
	Thresholds       Thresholds `json:"thresholds"`
}

// Validate checks the structural invariants of a single spec.
func (r RequirementSpec) Validate() error {
	if !r.Kind.Valid() {
		return fmt.Errorf("unknown requirement kind %q", r.Kind)
	}
	if r.Weight <= 0 {
		return fmt.Errorf("%s: weight must be positive, got %v", r.Kind, r.Weight)
	}
	if r.HardFailCap != nil && (*r.HardFailCap < 0 || *r.HardFailCap > 100) {
		return fmt.Errorf("%s: hard fail cap must be within [0,100], got %d", r.Kind, *r.HardFailCap)
	}
	if r.Thresholds == nil {
		return fmt.Errorf("%s: thresholds are required", r.Kind)
	}
	if r.Thresholds.Kind() != r.Kind {
		return fmt.Errorf("%s: thresholds are for %s", r.Kind, r.Thresholds.Kind())
	}
	return r.Thresholds.validate()
}

// Thresholds is a closed union with one implementation per Kind.
type Thresholds interface {
	Kind() Kind
	validate() error
}

type EducationThresholds struct {
	MinLevel EducationLevel `json:"min_level"`
}

type ExperienceThresholds struct {
	MinYears float64 `json:"min_years"`
	// BonusYears is how far past MinYears full credit is reached.
	BonusYears float64 `json:"bonus_years"`
}

type SalaryThresholds struct {
	MinAmount float64 `json:"min_amount"`
	Currency  string  `json:"currency"`
	// AlternateMinForShortageOccupation applies when the applicant's
	// occupation is on a shortage list.
	AlternateMinForShortageOccupation *float64 `json:"alternate_min_for_shortage_occupation,omitempty"`
}

type JobOfferThresholds struct{}

type LanguageThresholds struct {
	MinLevel CEFRLevel `json:"min_level"`
	// Language restricts the match to one language; empty accepts any.
	Language string `json:"language,omitempty"`
}

type AgeThresholds struct {
	MinAge     int `json:"min_age"`
	MaxAge     int `json:"max_age"`
	OptimalMin int `json:"optimal_min"`
	OptimalMax int `json:"optimal_max"`
}

type OccupationThresholds struct {
	// EligibleOccupations are lower-case keywords; empty means any known occupation qualifies.
	EligibleOccupations []string `json:"eligible_occupations,omitempty"`
}

type FinancialProofThresholds struct {
	MinAmount float64 `json:"min_amount"`
	Currency  string  `json:"currency"`
}

func (EducationThresholds) Kind() Kind      { return KindEducation }
func (ExperienceThresholds) Kind() Kind     { return KindExperience }
func (SalaryThresholds) Kind() Kind         { return KindSalary }
func (JobOfferThresholds) Kind() Kind       { return KindJobOffer }
func (LanguageThresholds) Kind() Kind       { return KindLanguage }
func (AgeThresholds) Kind() Kind            { return KindAge }
func (OccupationThresholds) Kind() Kind     { return KindOccupation }
func (FinancialProofThresholds) Kind() Kind { return KindFinancialProof }

func (t EducationThresholds) validate() error {
	if t.MinLevel.Rank() == 0 {
		return fmt.Errorf("education: unknown minimum level %q", t.MinLevel)
	}
	return nil
}

func (t ExperienceThresholds) validate() error {
	if t.MinYears < 0 || t.BonusYears < 0 {
		return fmt.Errorf("experience: years must not be negative")
	}
	return nil
}

func (t SalaryThresholds) validate() error {
	if t.MinAmount < 0 {
		return fmt.Errorf("salary: minimum must not be negative")
	}
	if t.AlternateMinForShortageOccupation != nil && *t.AlternateMinForShortageOccupation < 0 {
		return fmt.Errorf("salary: alternate minimum must not be negative")
	}
	return nil
}

func (JobOfferThresholds) validate() error { return nil }

func (t LanguageThresholds) validate() error {
	if t.MinLevel.Rank() == 0 {
		return fmt.Errorf("language: unknown minimum level %q", t.MinLevel)
	}
	return nil
}

func (t AgeThresholds) validate() error {
	if t.MinAge < 0 || t.MaxAge < t.MinAge {
		return fmt.Errorf("age: invalid range [%d,%d]", t.MinAge, t.MaxAge)
	}
	if t.OptimalMin < t.MinAge || t.OptimalMax > t.MaxAge || t.OptimalMax < t.OptimalMin {
		return fmt.Errorf("age: optimal range [%d,%d] outside [%d,%d]", t.OptimalMin, t.OptimalMax, t.MinAge, t.MaxAge)
	}
	return nil
}

func (OccupationThresholds) validate() error { return nil }

func (t FinancialProofThresholds) validate() error {
	if t.MinAmount < 0 {
		return fmt.Errorf("financial proof: minimum must not be negative")
	}
	return nil
}
