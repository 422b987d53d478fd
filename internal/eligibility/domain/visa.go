package domain

// DefaultPassingScore applies when a definition does not set one.
const DefaultPassingScore = 60

// OfficialSource points at the authority publishing a visa's rules.
type OfficialSource struct {
	Title     string `json:"title"`
	URL       string `json:"url"`
	Relevance string `json:"relevance,omitempty"`
}

// VisaDefinition is an immutable catalog entry for one (country, visa type).
type VisaDefinition struct {
	Country           string            `json:"country"`
	VisaType          string            `json:"visa_type"`
	Description       string            `json:"description,omitempty"`
	PassingScore      int               `json:"passing_score"`
	Requirements      []RequirementSpec `json:"requirements"`
	RequiredDocuments []string          `json:"required_documents,omitempty"`
	OptionalDocuments []string          `json:"optional_documents,omitempty"`
	Purposes          []string          `json:"purposes,omitempty"`
	OfficialSources   []OfficialSource  `json:"official_sources,omitempty"`
	// IsDefault is set on the substitute definition used for catalog misses.
	IsDefault bool `json:"is_default"`
}

// TotalWeight sums the weights of every requirement.
func (d VisaDefinition) TotalWeight() float64 {
	total := 0.0
	for _, r := range d.Requirements {
		total += r.Weight
	}
	return total
}

// Requirement returns the requirement for kind, if the definition scores it.
func (d VisaDefinition) Requirement(kind Kind) (RequirementSpec, bool) {
	for _, r := range d.Requirements {
		if r.Kind == kind {
			return r, true
		}
	}
	return RequirementSpec{}, false
}

// Document kinds a visa definition can list as required or optional.
const (
	DocResume        = "resume"
	DocDegree        = "degree"
	DocJobOffer      = "job_offer"
	DocSalaryProof   = "salary_proof"
	DocLanguageCert  = "language_cert"
	DocPassport      = "passport"
	DocBankStatement = "bank_statement"
)

// DocumentKinds lists every document kind in submission order.
var DocumentKinds = []string{
	DocResume,
	DocDegree,
	DocJobOffer,
	DocSalaryProof,
	DocLanguageCert,
	DocPassport,
	DocBankStatement,
}

// ValidDocumentKind reports whether kind is a known document kind.
func ValidDocumentKind(kind string) bool {
	for _, k := range DocumentKinds {
		if k == kind {
			return true
		}
	}
	return false
}
