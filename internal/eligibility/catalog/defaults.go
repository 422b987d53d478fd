package catalog

import (
	"strings"

	"github.com/visaeval/visaeval-backend/internal/eligibility/domain"
)

// DefaultDefinition is the requirement set used for any (country, visaType)
// the catalog does not model. No dimension is required, so an unknown visa
// never produces hard failures.
func DefaultDefinition(country, visaType string) domain.VisaDefinition {
	return domain.VisaDefinition{
		Country:      strings.TrimSpace(country),
		VisaType:     strings.TrimSpace(visaType),
		Description:  "General eligibility assessment (visa type not modelled in the catalog)",
		PassingScore: domain.DefaultPassingScore,
		Requirements: []domain.RequirementSpec{
			{
				Kind:       domain.KindEducation,
				Weight:     25,
				Thresholds: domain.EducationThresholds{MinLevel: domain.EducationBachelor},
			},
			{
				Kind:       domain.KindExperience,
				Weight:     25,
				Thresholds: domain.ExperienceThresholds{MinYears: 2, BonusYears: 3},
			},
			{
				Kind:       domain.KindLanguage,
				Weight:     20,
				Thresholds: domain.LanguageThresholds{MinLevel: domain.CEFRB1},
			},
			{
				Kind:       domain.KindJobOffer,
				Weight:     15,
				Thresholds: domain.JobOfferThresholds{},
			},
			{
				Kind:       domain.KindFinancialProof,
				Weight:     15,
				Thresholds: domain.FinancialProofThresholds{MinAmount: 10000, Currency: "EUR"},
			},
		},
		RequiredDocuments: []string{domain.DocResume, domain.DocPassport},
		OptionalDocuments: []string{domain.DocDegree, domain.DocJobOffer, domain.DocLanguageCert, domain.DocBankStatement},
		IsDefault:         true,
	}
}

// Resolve returns def when it was found and the default set otherwise. It never
// touches the catalog itself.
func Resolve(country, visaType string, def domain.VisaDefinition, found bool) domain.VisaDefinition {
	if found {
		if def.PassingScore == 0 {
			def.PassingScore = domain.DefaultPassingScore
		}
		return def
	}
	return DefaultDefinition(country, visaType)
}
