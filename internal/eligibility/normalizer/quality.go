package normalizer

import (
	"math"
	"strings"

	"github.com/visaeval/visaeval-backend/internal/eligibility/domain"
)

// Data-quality weights per submitted document.
const (
	resumeWeight       = 30
	degreeWeight       = 20
	jobOfferWeight     = 25
	salaryProofWeight  = 15
	languageCertWeight = 10
)

// Quality reports which documents were extracted and an overall 0..100
// share of successful extractions, weighted over the documents submitted.
// It describes the input only and is never fed into scoring.
func Quality(raw domain.RawExtraction) domain.DataQuality {
	q := domain.DataQuality{
		ResumeExtracted:  raw.Resume != nil && raw.Resume.Succeeded(),
		DegreeVerified:   raw.Degree != nil && raw.Degree.Succeeded(),
		JobOfferVerified: raw.JobOffer != nil && raw.JobOffer.Succeeded(),
		SalaryVerified:   raw.SalaryProof != nil && raw.SalaryProof.Succeeded(),
		LanguageVerified: raw.LanguageCert != nil && raw.LanguageCert.Succeeded(),
		PassportVerified: raw.Passport != nil && raw.Passport.Succeeded(),
	}

	score, total := 0, 0
	add := func(present, ok bool, weight int) {
		if !present {
			return
		}
		total += weight
		if ok {
			score += weight
		}
	}
	add(raw.Resume != nil, q.ResumeExtracted, resumeWeight)
	add(raw.Degree != nil, q.DegreeVerified, degreeWeight)
	add(raw.JobOffer != nil, q.JobOfferVerified, jobOfferWeight)
	add(raw.SalaryProof != nil, q.SalaryVerified, salaryProofWeight)
	add(raw.LanguageCert != nil, q.LanguageVerified, languageCertWeight)

	if total > 0 {
		q.OverallConfidence = int(math.Round(float64(score) / float64(total) * 100))
	}
	return q
}

// SubmittedDocuments lists the document kinds whose extraction succeeded, in
// domain.DocumentKinds order.
func SubmittedDocuments(raw domain.RawExtraction) []string {
	ok := map[string]bool{
		domain.DocResume:        raw.Resume != nil && raw.Resume.Succeeded(),
		domain.DocDegree:        raw.Degree != nil && raw.Degree.Succeeded(),
		domain.DocJobOffer:      raw.JobOffer != nil && raw.JobOffer.Succeeded(),
		domain.DocSalaryProof:   raw.SalaryProof != nil && raw.SalaryProof.Succeeded(),
		domain.DocLanguageCert:  raw.LanguageCert != nil && raw.LanguageCert.Succeeded(),
		domain.DocPassport:      raw.Passport != nil && raw.Passport.Succeeded(),
		domain.DocBankStatement: raw.BankStatement != nil && raw.BankStatement.Succeeded(),
	}
	var out []string
	for _, kind := range domain.DocumentKinds {
		if ok[kind] {
			out = append(out, kind)
		}
	}
	return out
}

// Identity returns the applicant's name and email, resume first, then passport.
func Identity(raw domain.RawExtraction) (name, email string) {
	if r := raw.Resume; r != nil && r.Succeeded() {
		name = strings.TrimSpace(r.PersonalInfo.Name)
		email = strings.TrimSpace(r.PersonalInfo.Email)
	}
	if p := raw.Passport; name == "" && p != nil && p.Succeeded() {
		name = strings.TrimSpace(strings.TrimSpace(p.Holder.GivenNames) + " " + strings.TrimSpace(p.Holder.Surname))
	}
	return name, email
}
