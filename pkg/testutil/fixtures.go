package testutil

import (
	"fmt"

	"github.com/visaeval/visaeval-backend/internal/eligibility/domain"
)

// FixtureFactory creates applicant fixtures with sensible defaults
type FixtureFactory struct {
	sequence int
}

// NewFixtureFactory creates a new fixture factory
func NewFixtureFactory() *FixtureFactory {
	return &FixtureFactory{sequence: 0}
}

// nextSeq returns the next sequence number for unique values
func (f *FixtureFactory) nextSeq() int {
	f.sequence++
	return f.sequence
}

// Profile creates a verified, strong applicant profile: master's degree, five
// years of experience, a 70k EUR job offer in Germany and C1 English.
func (f *FixtureFactory) Profile(opts ...func(*domain.ApplicantProfile)) *domain.ApplicantProfile {
	seq := f.nextSeq()
	salary := 70000.0
	age := 31

	p := &domain.ApplicantProfile{
		Education: &domain.Education{
			Level:       domain.EducationMaster,
			Field:       "Computer Science",
			Institution: fmt.Sprintf("Test University %d", seq),
			Verified:    true,
		},
		Experience: &domain.Experience{TotalYears: 5, CurrentRole: "Software Engineer"},
		Salary:     &domain.Salary{Amount: salary, Currency: "EUR", Verified: true},
		Languages: []domain.Language{
			{Language: "English", Level: domain.CEFRC1, TestType: "IELTS", Verified: true},
		},
		HasJobOffer: true,
		JobOffer: &domain.JobOffer{
			Employer: fmt.Sprintf("Employer %d GmbH", seq),
			Position: "Senior Software Engineer",
			Country:  "Germany",
			Salary:   &salary,
			Currency: "EUR",
			Verified: true,
		},
		Age:         &age,
		Occupation:  &domain.Occupation{Title: "Senior Software Engineer"},
		Nationality: "India",
		Skills:      []string{"Go", "PostgreSQL", "Kubernetes", "Communication"},
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// EmptyProfile returns a profile where every value is unknown.
func (f *FixtureFactory) EmptyProfile() *domain.ApplicantProfile {
	return &domain.ApplicantProfile{}
}

// WithSalary sets the annual salary
func WithSalary(amount float64, currency string, verified bool) func(*domain.ApplicantProfile) {
	return func(p *domain.ApplicantProfile) {
		p.Salary = &domain.Salary{Amount: amount, Currency: currency, Verified: verified}
	}
}

// WithEducation sets the education level
func WithEducation(level domain.EducationLevel, verified bool) func(*domain.ApplicantProfile) {
	return func(p *domain.ApplicantProfile) {
		p.Education = &domain.Education{Level: level, Verified: verified}
	}
}

// WithExperience sets total years of experience
func WithExperience(years float64) func(*domain.ApplicantProfile) {
	return func(p *domain.ApplicantProfile) {
		p.Experience = &domain.Experience{TotalYears: years}
	}
}

// WithoutJobOffer clears the job offer
func WithoutJobOffer() func(*domain.ApplicantProfile) {
	return func(p *domain.ApplicantProfile) {
		p.HasJobOffer = false
		p.JobOffer = nil
	}
}

// WithNationality sets the applicant's nationality
func WithNationality(nationality string) func(*domain.ApplicantProfile) {
	return func(p *domain.ApplicantProfile) {
		p.Nationality = nationality
	}
}

// ExtractionJSON is a complete, successful extraction for one applicant, in the
// wire format produced by document extraction.
const ExtractionJSON = `{
  "resume": {
    "extraction_success": true,
    "personal_info": {"name": "Priya Sharma", "email": "priya@example.com", "nationality": "India"},
    "education": {"level": "Bachelor", "field": "Computer Science", "institution": "IIT Delhi"},
    "experience": {"total_years": 6, "current_role": "Backend Engineer", "current_company": "Acme"},
    "skills": {"technical": ["Go", "SQL"], "soft": ["Mentoring"], "tools": ["Docker"]},
    "languages": [{"language": "English", "proficiency": "C1"}, {"language": "German", "proficiency": "A2"}]
  },
  "degree": {
    "extraction_success": true,
    "degree": {"level": "Master of Science", "field": "Software Engineering"},
    "institution": {"name": "TU Munich", "country": "Germany"}
  },
  "job_offer": {
    "extraction_success": true,
    "employer": {"company_name": "Beispiel GmbH", "country": "Germany"},
    "position": {"title": "Senior Backend Engineer"},
    "compensation": {"base_salary": 5500, "currency": "eur", "frequency": "monthly"}
  },
  "language_cert": {
    "extraction_success": true,
    "test_type": "IELTS",
    "scores": {"overall": 7.5}
  },
  "passport": {
    "extraction_success": true,
    "holder": {"surname": "Sharma", "given_names": "Priya", "nationality": "IND", "date_of_birth": "1992-03-14"}
  }
}`
