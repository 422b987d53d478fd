package domain

// RawExtraction is the per-document output of the document extraction
// collaborator. Any document may be absent, and a present document only
// counts when its extraction succeeded.
type RawExtraction struct {
	Resume        *ResumeDoc        `json:"resume,omitempty"`
	Degree        *DegreeDoc        `json:"degree,omitempty"`
	JobOffer      *JobOfferDoc      `json:"job_offer,omitempty"`
	SalaryProof   *SalaryProofDoc   `json:"salary_proof,omitempty"`
	LanguageCert  *LanguageCertDoc  `json:"language_cert,omitempty"`
	Passport      *PassportDoc      `json:"passport,omitempty"`
	BankStatement *BankStatementDoc `json:"bank_statement,omitempty"`
}

// DocumentMeta is shared by every extracted document.
type DocumentMeta struct {
	ExtractionSuccess *bool   `json:"extraction_success,omitempty"`
	Confidence        float64 `json:"confidence,omitempty"`
}

// Succeeded is true only for an explicit success flag.
func (m DocumentMeta) Succeeded() bool {
	return m.ExtractionSuccess != nil && *m.ExtractionSuccess
}

type ResumeDoc struct {
	DocumentMeta
	PersonalInfo struct {
		Name        string `json:"name,omitempty"`
		Email       string `json:"email,omitempty"`
		Nationality string `json:"nationality,omitempty"`
	} `json:"personal_info"`
	Education struct {
		Level       string `json:"level,omitempty"`
		Field       string `json:"field,omitempty"`
		Institution string `json:"institution,omitempty"`
		Year        string `json:"year,omitempty"`
	} `json:"education"`
	Experience struct {
		TotalYears     *float64 `json:"total_years,omitempty"`
		CurrentRole    string   `json:"current_role,omitempty"`
		CurrentCompany string   `json:"current_company,omitempty"`
	} `json:"experience"`
	Skills struct {
		Technical []string `json:"technical,omitempty"`
		Soft      []string `json:"soft,omitempty"`
		Tools     []string `json:"tools,omitempty"`
	} `json:"skills"`
	Languages []ResumeLanguage `json:"languages,omitempty"`
	Salary    struct {
		Current  *float64 `json:"current,omitempty"`
		Currency string   `json:"currency,omitempty"`
	} `json:"salary"`
}

type ResumeLanguage struct {
	Language    string `json:"language"`
	Proficiency string `json:"proficiency,omitempty"`
}

type DegreeDoc struct {
	DocumentMeta
	Degree struct {
		Level string `json:"level,omitempty"`
		Field string `json:"field,omitempty"`
	} `json:"degree"`
	Institution struct {
		Name    string `json:"name,omitempty"`
		Country string `json:"country,omitempty"`
	} `json:"institution"`
	GraduationDate string `json:"graduation_date,omitempty"`
}

type JobOfferDoc struct {
	DocumentMeta
	Employer struct {
		CompanyName string `json:"company_name,omitempty"`
		Country     string `json:"country,omitempty"`
	} `json:"employer"`
	Position struct {
		Title string `json:"title,omitempty"`
	} `json:"position"`
	Compensation struct {
		BaseSalary *float64 `json:"base_salary,omitempty"`
		Currency   string   `json:"currency,omitempty"`
		// Frequency is "annual" (default) or "monthly".
		Frequency string `json:"frequency,omitempty"`
	} `json:"compensation"`
	Sponsorship struct {
		VisaSponsorshipOffered *bool `json:"visa_sponsorship_offered,omitempty"`
	} `json:"sponsorship"`
}

type SalaryProofDoc struct {
	DocumentMeta
	Salary struct {
		Gross      *float64 `json:"gross,omitempty"`
		Currency   string   `json:"currency,omitempty"`
		Frequency  string   `json:"frequency,omitempty"`
		Annualized *float64 `json:"annualized,omitempty"`
	} `json:"salary"`
}

type LanguageCertDoc struct {
	DocumentMeta
	TestType string `json:"test_type,omitempty"`
	Language string `json:"language,omitempty"`
	Scores   struct {
		Overall *float64 `json:"overall,omitempty"`
	} `json:"scores"`
	CEFRLevel string `json:"cefr_level,omitempty"`
}

type PassportDoc struct {
	DocumentMeta
	Holder struct {
		Surname     string `json:"surname,omitempty"`
		GivenNames  string `json:"given_names,omitempty"`
		Nationality string `json:"nationality,omitempty"`
		// DateOfBirth is ISO 8601 (YYYY-MM-DD).
		DateOfBirth string `json:"date_of_birth,omitempty"`
	} `json:"holder"`
	DocumentNumber string `json:"document_number,omitempty"`
	ExpiryDate     string `json:"expiry_date,omitempty"`
}

type BankStatementDoc struct {
	DocumentMeta
	AccountHolder string   `json:"account_holder,omitempty"`
	Balance       *float64 `json:"balance,omitempty"`
	Currency      string   `json:"currency,omitempty"`
}

// DataQuality summarises which documents were extracted. It is reported next
// to an evaluation and never feeds the score or its confidence.
type DataQuality struct {
	ResumeExtracted   bool `json:"resume_extracted"`
	DegreeVerified    bool `json:"degree_verified"`
	JobOfferVerified  bool `json:"job_offer_verified"`
	SalaryVerified    bool `json:"salary_verified"`
	LanguageVerified  bool `json:"language_verified"`
	PassportVerified  bool `json:"passport_verified"`
	OverallConfidence int  `json:"overall_confidence"`
}
