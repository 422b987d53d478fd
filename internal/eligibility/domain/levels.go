package domain

import (
	"encoding/json"
	"math"
	"strings"
)

// EducationLevel is the ordered scale used by the education dimension.
type EducationLevel string

const (
	EducationHighSchool EducationLevel = "high_school"
	EducationDiploma    EducationLevel = "diploma"
	EducationBachelor   EducationLevel = "bachelor"
	EducationMaster     EducationLevel = "master"
	EducationDoctorate  EducationLevel = "doctorate"
)

// Rank returns 1..5 for known levels and 0 otherwise.
func (l EducationLevel) Rank() int {
	switch l {
	case EducationHighSchool:
		return 1
	case EducationDiploma:
		return 2
	case EducationBachelor:
		return 3
	case EducationMaster:
		return 4
	case EducationDoctorate:
		return 5
	default:
		return 0
	}
}

// UnmarshalJSON accepts free text ("Master", "MSc") and stores the canonical
// level. Unrecognised text is kept as sent so Validate can reject it.
func (l *EducationLevel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if parsed := ParseEducationLevel(s); parsed != "" {
		*l = parsed
		return nil
	}
	*l = EducationLevel(strings.TrimSpace(s))
	return nil
}

// educationKeywords is checked in order; the highest matching rank wins.
var educationKeywords = []struct {
	keyword string
	level   EducationLevel
}{
	{"phd", EducationDoctorate},
	{"ph.d", EducationDoctorate},
	{"doctor", EducationDoctorate},
	{"master", EducationMaster},
	{"mba", EducationMaster},
	{"msc", EducationMaster},
	{"m.sc", EducationMaster},
	{"mtech", EducationMaster},
	{"bachelor", EducationBachelor},
	{"bsc", EducationBachelor},
	{"b.sc", EducationBachelor},
	{"btech", EducationBachelor},
	{"b.tech", EducationBachelor},
	{"b.a.", EducationBachelor},
	{"beng", EducationBachelor},
	{"undergraduate", EducationBachelor},
	{"diploma", EducationDiploma},
	{"associate", EducationDiploma},
	{"high school", EducationHighSchool},
	{"highschool", EducationHighSchool},
	{"high_school", EducationHighSchool},
	{"secondary", EducationHighSchool},
}

// ParseEducationLevel maps free text such as "MSc Computer Science" onto the
// scale. It returns "" when nothing matches.
func ParseEducationLevel(s string) EducationLevel {
	text := strings.ToLower(strings.TrimSpace(s))
	if text == "" {
		return ""
	}
	if l := EducationLevel(text); l.Rank() > 0 {
		return l
	}
	if text == "ba" || text == "bs" {
		return EducationBachelor
	}
	if text == "ma" || text == "ms" {
		return EducationMaster
	}

	var best EducationLevel
	for _, kw := range educationKeywords {
		if strings.Contains(text, kw.keyword) && kw.level.Rank() > best.Rank() {
			best = kw.level
		}
	}
	return best
}

// CEFRLevel is the Common European Framework scale A1..C2.
type CEFRLevel string

const (
	CEFRA1 CEFRLevel = "A1"
	CEFRA2 CEFRLevel = "A2"
	CEFRB1 CEFRLevel = "B1"
	CEFRB2 CEFRLevel = "B2"
	CEFRC1 CEFRLevel = "C1"
	CEFRC2 CEFRLevel = "C2"
)

var cefrOrder = []CEFRLevel{CEFRA1, CEFRA2, CEFRB1, CEFRB2, CEFRC1, CEFRC2}

// Rank returns 1..6 for known levels and 0 otherwise.
func (l CEFRLevel) Rank() int {
	for i, known := range cefrOrder {
		if l == known {
			return i + 1
		}
	}
	return 0
}

// UnmarshalJSON accepts lower-case codes and proficiency words. Unrecognised
// text is kept as sent so Validate can reject it.
func (l *CEFRLevel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if parsed := ParseCEFR(s); parsed != "" {
		*l = parsed
		return nil
	}
	*l = CEFRLevel(strings.TrimSpace(s))
	return nil
}

// proficiencyWords is matched in order, so longer phrases come first.
var proficiencyWords = []struct {
	word  string
	level CEFRLevel
}{
	{"upper intermediate", CEFRB2},
	{"mother tongue", CEFRC2},
	{"native", CEFRC2},
	{"bilingual", CEFRC2},
	{"fluent", CEFRC1},
	{"advanced", CEFRC1},
	{"professional", CEFRB2},
	{"intermediate", CEFRB1},
	{"conversational", CEFRB1},
	{"elementary", CEFRA2},
	{"basic", CEFRA2},
	{"beginner", CEFRA1},
}

// ParseCEFR accepts CEFR codes ("b2", "C1") and common proficiency words
// ("Fluent", "Native"). It returns "" when the text is not recognised.
func ParseCEFR(s string) CEFRLevel {
	text := strings.ToLower(strings.TrimSpace(s))
	if text == "" {
		return ""
	}
	if l := CEFRLevel(strings.ToUpper(text)); l.Rank() > 0 {
		return l
	}
	for _, l := range cefrOrder {
		if strings.Contains(text, strings.ToLower(string(l))) {
			return l
		}
	}

	for _, p := range proficiencyWords {
		if strings.Contains(text, p.word) {
			return p.level
		}
	}
	return ""
}

// CEFRFromIELTS maps an IELTS overall band onto CEFR.
func CEFRFromIELTS(band float64) CEFRLevel {
	switch {
	case math.IsNaN(band) || band < 3.5:
		return ""
	case band < 4.0:
		return CEFRA2
	case band < 5.5:
		return CEFRB1
	case band < 7.0:
		return CEFRB2
	case band < 8.5:
		return CEFRC1
	default:
		return CEFRC2
	}
}

// CEFRFromCLB maps a Canadian Language Benchmark level onto CEFR.
func CEFRFromCLB(clb int) CEFRLevel {
	switch {
	case clb <= 0:
		return ""
	case clb <= 2:
		return CEFRA1
	case clb <= 4:
		return CEFRA2
	case clb <= 6:
		return CEFRB1
	case clb <= 8:
		return CEFRB2
	case clb <= 10:
		return CEFRC1
	default:
		return CEFRC2
	}
}

// CEFRFromTest converts a score from a named test when a mapping is known.
func CEFRFromTest(testType string, score float64) CEFRLevel {
	switch strings.ToUpper(strings.TrimSpace(testType)) {
	case "IELTS":
		return CEFRFromIELTS(score)
	case "CLB", "CELPIP":
		return CEFRFromCLB(int(score))
	case "TOEFL", "TOEFL IBT":
		switch {
		case score >= 110:
			return CEFRC2
		case score >= 95:
			return CEFRC1
		case score >= 72:
			return CEFRB2
		case score >= 42:
			return CEFRB1
		default:
			return ""
		}
	default:
		return ""
	}
}
