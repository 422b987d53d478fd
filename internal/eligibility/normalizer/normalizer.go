package normalizer

import (
	"math"
	"strings"
	"time"

	"github.com/visaeval/visaeval-backend/internal/eligibility/domain"
)

// Normalize merges the per-document extraction into one applicant profile.
//
// Precedence per field, most authoritative first:
//
//	education    degree certificate, resume
//	salary       job offer, salary proof, resume
//	languages    language certificate, resume
//	occupation   job offer position, resume current role
//	age          passport date of birth (relative to ref)
//
// Experience and skills come from the resume, funds from the bank statement.
// Documents whose extraction did not succeed contribute nothing, and a field
// no document supplies stays unknown.
func Normalize(raw domain.RawExtraction, ref time.Time) domain.ApplicantProfile {
	resume := raw.Resume
	if resume != nil && !resume.Succeeded() {
		resume = nil
	}
	degree := raw.Degree
	if degree != nil && !degree.Succeeded() {
		degree = nil
	}
	offer := raw.JobOffer
	if offer != nil && !offer.Succeeded() {
		offer = nil
	}
	proof := raw.SalaryProof
	if proof != nil && !proof.Succeeded() {
		proof = nil
	}
	cert := raw.LanguageCert
	if cert != nil && !cert.Succeeded() {
		cert = nil
	}
	passport := raw.Passport
	if passport != nil && !passport.Succeeded() {
		passport = nil
	}
	bank := raw.BankStatement
	if bank != nil && !bank.Succeeded() {
		bank = nil
	}

	var p domain.ApplicantProfile
	p.Education = education(degree, resume)
	p.Experience = experience(resume)
	p.Salary = salary(offer, proof, resume)
	p.Languages = languages(cert, resume)
	p.JobOffer = jobOffer(offer)
	p.HasJobOffer = p.JobOffer != nil
	p.Occupation = occupation(offer, resume)
	p.Funds = funds(bank)
	if passport != nil {
		p.Age = ageAt(passport.Holder.DateOfBirth, ref)
		p.Nationality = strings.TrimSpace(passport.Holder.Nationality)
	}
	if p.Nationality == "" && resume != nil {
		p.Nationality = strings.TrimSpace(resume.PersonalInfo.Nationality)
	}
	if resume != nil {
		p.Skills = skills(resume)
	}
	return p
}

func education(degree *domain.DegreeDoc, resume *domain.ResumeDoc) *domain.Education {
	if degree != nil {
		if level := domain.ParseEducationLevel(degree.Degree.Level); level != "" {
			e := &domain.Education{
				Level:       level,
				Field:       degree.Degree.Field,
				Institution: degree.Institution.Name,
				Verified:    true,
			}
			if resume != nil {
				e.Field = firstNonEmpty(e.Field, resume.Education.Field)
				e.Institution = firstNonEmpty(e.Institution, resume.Education.Institution)
			}
			return e
		}
	}
	if resume != nil {
		if level := domain.ParseEducationLevel(resume.Education.Level); level != "" {
			return &domain.Education{
				Level:       level,
				Field:       resume.Education.Field,
				Institution: resume.Education.Institution,
			}
		}
	}
	return nil
}

func experience(resume *domain.ResumeDoc) *domain.Experience {
	if resume == nil || !usable(resume.Experience.TotalYears) {
		return nil
	}
	return &domain.Experience{
		TotalYears:  *resume.Experience.TotalYears,
		CurrentRole: resume.Experience.CurrentRole,
	}
}

func salary(offer *domain.JobOfferDoc, proof *domain.SalaryProofDoc, resume *domain.ResumeDoc) *domain.Salary {
	if offer != nil && positive(offer.Compensation.BaseSalary) {
		return &domain.Salary{
			Amount:   annualize(*offer.Compensation.BaseSalary, offer.Compensation.Frequency),
			Currency: currency(offer.Compensation.Currency),
			Verified: true,
		}
	}
	if proof != nil {
		switch {
		case positive(proof.Salary.Annualized):
			return &domain.Salary{
				Amount:   *proof.Salary.Annualized,
				Currency: currency(proof.Salary.Currency),
				Verified: true,
			}
		case positive(proof.Salary.Gross):
			freq := proof.Salary.Frequency
			if freq == "" {
				// Payslips state a monthly gross unless told otherwise.
				freq = "monthly"
			}
			return &domain.Salary{
				Amount:   annualize(*proof.Salary.Gross, freq),
				Currency: currency(proof.Salary.Currency),
				Verified: true,
			}
		}
	}
	if resume != nil && positive(resume.Salary.Current) {
		return &domain.Salary{
			Amount:   *resume.Salary.Current,
			Currency: currency(resume.Salary.Currency),
		}
	}
	return nil
}

func languages(cert *domain.LanguageCertDoc, resume *domain.ResumeDoc) []domain.Language {
	var out []domain.Language
	certLanguage := ""

	if cert != nil {
		l := domain.Language{
			Language: strings.TrimSpace(cert.Language),
			TestType: strings.TrimSpace(cert.TestType),
			Verified: true,
		}
		if l.Language == "" && isEnglishTest(l.TestType) {
			l.Language = "English"
		}
		if usable(cert.Scores.Overall) {
			score := *cert.Scores.Overall
			l.Score = &score
		}
		l.Level = domain.ParseCEFR(cert.CEFRLevel)
		if l.Level == "" && l.Score != nil {
			l.Level = domain.CEFRFromTest(l.TestType, *l.Score)
		}
		if l.Language != "" || l.Level != "" {
			out = append(out, l)
			certLanguage = l.Language
		}
	}

	if resume != nil {
		for _, rl := range resume.Languages {
			name := strings.TrimSpace(rl.Language)
			if name == "" {
				continue
			}
			if certLanguage != "" && strings.EqualFold(name, certLanguage) {
				continue
			}
			out = append(out, domain.Language{
				Language: name,
				Level:    domain.ParseCEFR(rl.Proficiency),
			})
		}
	}
	return out
}

func jobOffer(offer *domain.JobOfferDoc) *domain.JobOffer {
	if offer == nil {
		return nil
	}
	jo := &domain.JobOffer{
		Employer:           offer.Employer.CompanyName,
		Position:           offer.Position.Title,
		Country:            offer.Employer.Country,
		Currency:           currency(offer.Compensation.Currency),
		SponsorshipOffered: offer.Sponsorship.VisaSponsorshipOffered,
		Verified:           true,
	}
	if positive(offer.Compensation.BaseSalary) {
		amount := annualize(*offer.Compensation.BaseSalary, offer.Compensation.Frequency)
		jo.Salary = &amount
	}
	return jo
}

func occupation(offer *domain.JobOfferDoc, resume *domain.ResumeDoc) *domain.Occupation {
	title := ""
	if offer != nil {
		title = strings.TrimSpace(offer.Position.Title)
	}
	if title == "" && resume != nil {
		title = strings.TrimSpace(resume.Experience.CurrentRole)
	}
	if title == "" {
		return nil
	}
	return &domain.Occupation{Title: title}
}

func funds(bank *domain.BankStatementDoc) *domain.Funds {
	if bank == nil || !usable(bank.Balance) {
		return nil
	}
	return &domain.Funds{
		Amount:   *bank.Balance,
		Currency: currency(bank.Currency),
		Verified: true,
	}
}

func skills(resume *domain.ResumeDoc) []string {
	var out []string
	seen := make(map[string]bool)
	for _, group := range [][]string{resume.Skills.Technical, resume.Skills.Soft, resume.Skills.Tools} {
		for _, s := range group {
			s = strings.TrimSpace(s)
			k := strings.ToLower(s)
			if s == "" || seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, s)
		}
	}
	return out
}

var dateLayouts = []string{"2006-01-02", time.RFC3339, "02.01.2006", "02/01/2006"}

// ageAt returns completed years between the date of birth and ref, or nil when
// the date does not parse or lies after ref.
func ageAt(dob string, ref time.Time) *int {
	dob = strings.TrimSpace(dob)
	if dob == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		born, err := time.Parse(layout, dob)
		if err != nil {
			continue
		}
		if born.After(ref) {
			return nil
		}
		age := ref.Year() - born.Year()
		if !birthdayReached(ref, born) {
			age--
		}
		return &age
	}
	return nil
}

func birthdayReached(ref, born time.Time) bool {
	if ref.Month() != born.Month() {
		return ref.Month() > born.Month()
	}
	return ref.Day() >= born.Day()
}

func annualize(amount float64, frequency string) float64 {
	f := strings.NewReplacer("-", "", " ", "", "_", "").Replace(strings.ToLower(frequency))
	switch {
	case strings.Contains(f, "biweek"), strings.Contains(f, "fortnight"):
		return amount * 26
	case strings.Contains(f, "semimonth"), strings.Contains(f, "twicemonth"), strings.Contains(f, "twiceamonth"):
		return amount * 24
	case strings.Contains(f, "month"):
		return amount * 12
	case strings.Contains(f, "week"):
		return amount * 52
	default:
		return amount
	}
}

func isEnglishTest(testType string) bool {
	switch strings.ToUpper(testType) {
	case "IELTS", "TOEFL", "TOEFL IBT", "CELPIP", "PTE", "CAMBRIDGE":
		return true
	}
	return false
}

func currency(c string) string {
	return strings.ToUpper(strings.TrimSpace(c))
}

func usable(v *float64) bool {
	return v != nil && !math.IsNaN(*v) && !math.IsInf(*v, 0) && *v >= 0
}

func positive(v *float64) bool {
	return usable(v) && *v > 0
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
