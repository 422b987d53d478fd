package domain

// ScoreBreakdown is the outcome of one dimension.
type ScoreBreakdown struct {
	Kind     Kind     `json:"kind"`
	Label    string   `json:"label"`
	Score    float64  `json:"score"`
	MaxScore float64  `json:"max_score"`
	Notes    []string `json:"notes"`
	Verified bool     `json:"verified"`
	Unknown  bool     `json:"unknown"`
	// HardFail holds the reason when this dimension triggered a hard failure.
	HardFail *string `json:"hard_fail,omitempty"`
	// Cap is the score cap attached to the hard failure, if any.
	Cap *int `json:"cap,omitempty"`
}

// EvaluationResult is produced fresh for every scoring call.
type EvaluationResult struct {
	Country                 string                  `json:"country"`
	VisaType                string                  `json:"visa_type"`
	UsedDefaultRequirements bool                    `json:"used_default_requirements"`
	RawScore                float64                 `json:"raw_score"`
	TotalWeight             float64                 `json:"total_weight"`
	NormalizedScore         float64                 `json:"normalized_score"`
	Score                   int                     `json:"score"`
	Confidence              int                     `json:"confidence"`
	PassingScore            int                     `json:"passing_score"`
	IsPassing               bool                    `json:"is_passing"`
	Breakdown               map[Kind]ScoreBreakdown `json:"breakdown"`
	MetRequirements         []string                `json:"met_requirements"`
	FailedRequirements      []string                `json:"failed_requirements"`
	Warnings                []string                `json:"warnings"`
	HardFails               []string                `json:"hard_fails"`
	AppliedCap              *int                    `json:"applied_cap,omitempty"`
}

// Ranking is one row of a cross-country comparison.
type Ranking struct {
	Country                 string  `json:"country"`
	VisaType                string  `json:"visa_type"`
	NormalizedScore         float64 `json:"normalized_score"`
	Score                   int     `json:"score"`
	Confidence              int     `json:"confidence"`
	PassingScore            int     `json:"passing_score"`
	IsPassing               bool    `json:"is_passing"`
	UsedDefaultRequirements bool    `json:"used_default_requirements"`
}

// PairError reports a (country, visa type) skipped during a comparison.
// VisaType is empty when the country itself was not found.
type PairError struct {
	Country  string `json:"country"`
	VisaType string `json:"visa_type,omitempty"`
	Error    string `json:"error"`
}
