package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/visaeval/visaeval-backend/internal/docprocessing/domain"
	eligibility "github.com/visaeval/visaeval-backend/internal/eligibility/domain"
)

// MRZProcessor reads the Machine Readable Zone of a passport or ID card.
// Supports ICAO 9303 format for:
// - TD1 ID cards (3 lines x 30 chars)
// - TD3 passports (2 lines x 44 chars)
//
// The MRZ is located in the document text (plain text or a PDF text layer).
// Check digits are verified; a mismatch lowers confidence and adds a warning.
type MRZProcessor struct {
	now func() time.Time
}

func NewMRZProcessor() *MRZProcessor {
	return &MRZProcessor{now: time.Now}
}

func (p *MRZProcessor) Name() string {
	return "mrz"
}

func (p *MRZProcessor) CanProcess(docType domain.DocumentType) bool {
	return docType == domain.DocumentTypePassport
}

// mrzData holds the decoded zone before it becomes fields and a document.
type mrzData struct {
	documentCode   string
	documentNumber string
	nationality    string
	dateOfBirth    string // YYMMDD
	sex            string
	expiry         string // YYMMDD
	surname        string
	givenNames     string
	checksFailed   []string
}

func (p *MRZProcessor) Process(ctx context.Context, data []byte, docType domain.DocumentType) (*domain.ExtractionResult, error) {
	start := time.Now()

	text, err := DocumentText(data)
	if err != nil {
		return nil, fmt.Errorf("mrz: %w", err)
	}

	lines := findMRZ(text)
	var mrz mrzData
	switch len(lines) {
	case 2:
		mrz = parseTD3(lines)
	case 3:
		mrz = parseTD1(lines)
	default:
		return nil, fmt.Errorf("mrz: no machine readable zone found, expected TD1 (3 lines) or TD3 (2 lines)")
	}

	confidence := 0.95
	var warnings []string
	for _, field := range mrz.checksFailed {
		confidence -= 0.15
		warnings = append(warnings, fmt.Sprintf("MRZ check digit mismatch for %s", field))
	}

	now := p.now()
	dob := mrzDate(mrz.dateOfBirth, now, false)
	expiry := mrzDate(mrz.expiry, now, true)
	if expiry != "" && expiry < now.Format("2006-01-02") {
		warnings = append(warnings, fmt.Sprintf("passport expired on %s", expiry))
	}

	success := true
	doc := eligibility.PassportDoc{
		DocumentMeta: eligibility.DocumentMeta{
			ExtractionSuccess: &success,
			Confidence:        confidence,
		},
		DocumentNumber: mrz.documentNumber,
		ExpiryDate:     expiry,
	}
	doc.Holder.Surname = mrz.surname
	doc.Holder.GivenNames = mrz.givenNames
	doc.Holder.Nationality = mrz.nationality
	doc.Holder.DateOfBirth = dob

	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("mrz: encode document: %w", err)
	}

	return &domain.ExtractionResult{
		DocumentType:     docType,
		Processor:        p.Name(),
		Document:         raw,
		Fields:           mrz.fields(docType, dob, expiry),
		Confidence:       confidence,
		Warnings:         warnings,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	}, nil
}

func (m mrzData) fields(docType domain.DocumentType, dob, expiry string) []domain.ExtractionField {
	var fields []domain.ExtractionField
	add := func(key, value string, confidence float64) {
		if value != "" {
			fields = append(fields, domain.ExtractionField{Key: key, Value: value, Confidence: confidence, Source: docType})
		}
	}
	add("document_type", m.documentCode, 0.95)
	add("document_number", m.documentNumber, 0.92)
	add("nationality", m.nationality, 0.90)
	add("date_of_birth", dob, 0.92)
	add("gender", m.sex, 0.95)
	add("expiry_date", expiry, 0.92)
	add("last_name", m.surname, 0.90)
	add("first_name", m.givenNames, 0.90)
	return fields
}

// findMRZ returns the two TD3 or three TD1 lines found in text, or nil.
func findMRZ(text string) []string {
	var candidates []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(line), " ", ""))
		candidates = append(candidates, line)
	}

	for i := 0; i+1 < len(candidates); i++ {
		a, b := candidates[i], candidates[i+1]
		if isMRZLine(a, 42, 46) && isMRZLine(b, 42, 46) && strings.ContainsRune(a, '<') {
			return []string{padLine(a, 44), padLine(b, 44)}
		}
	}
	for i := 0; i+2 < len(candidates); i++ {
		a, b, c := candidates[i], candidates[i+1], candidates[i+2]
		if isMRZLine(a, 30, 35) && isMRZLine(b, 30, 35) && isMRZLine(c, 28, 35) {
			return []string{padLine(a, 30), padLine(b, 30), padLine(c, 30)}
		}
	}
	return nil
}

func isMRZLine(s string, minLen, maxLen int) bool {
	if len(s) < minLen || len(s) > maxLen {
		return false
	}
	for _, c := range s {
		if c != '<' && !unicode.IsDigit(c) && (c < 'A' || c > 'Z') {
			return false
		}
	}
	return true
}

// parseTD1 parses a TD1 MRZ (ID card)
// Line 1: TYPE ISSUER DOCUMENT_NUMBER CHECK_DIGIT...
// Line 2: DATE_OF_BIRTH CHECK GENDER EXPIRY CHECK NATIONALITY...
// Line 3: LAST_NAME<<FIRST_NAME<MIDDLE_NAMES...
func parseTD1(lines []string) mrzData {
	line1, line2, line3 := lines[0], lines[1], lines[2]

	m := mrzData{
		documentCode:   cleanMRZ(line1[0:2]),
		documentNumber: cleanMRZ(line1[5:14]),
		nationality:    cleanMRZ(line2[15:18]),
		sex:            sexCode(line2[7]),
	}
	if isValidMRZDate(line2[0:6]) {
		m.dateOfBirth = line2[0:6]
	}
	if isValidMRZDate(line2[8:14]) {
		m.expiry = line2[8:14]
	}
	m.surname, m.givenNames = splitName(line3)

	m.check("document number", line1[5:14], line1[14])
	m.check("date of birth", line2[0:6], line2[6])
	m.check("expiry date", line2[8:14], line2[14])
	return m
}

// parseTD3 parses a TD3 MRZ (Passport)
// Line 1: P<ISSUER LAST_NAME<<FIRST_NAME<MIDDLE...
// Line 2: DOC_NUMBER CHECK NATIONALITY DOB CHECK GENDER EXPIRY CHECK...
func parseTD3(lines []string) mrzData {
	line1, line2 := lines[0], lines[1]

	m := mrzData{
		documentCode:   cleanMRZ(line1[0:2]),
		documentNumber: cleanMRZ(line2[0:9]),
		nationality:    cleanMRZ(line2[10:13]),
		sex:            sexCode(line2[20]),
	}
	if isValidMRZDate(line2[13:19]) {
		m.dateOfBirth = line2[13:19]
	}
	if isValidMRZDate(line2[21:27]) {
		m.expiry = line2[21:27]
	}
	m.surname, m.givenNames = splitName(line1[5:])

	m.check("document number", line2[0:9], line2[9])
	m.check("date of birth", line2[13:19], line2[19])
	m.check("expiry date", line2[21:27], line2[27])
	return m
}

func (m *mrzData) check(field, value string, digit byte) {
	if digit == '<' {
		return
	}
	if checkDigit(value) != int(digit-'0') {
		m.checksFailed = append(m.checksFailed, field)
	}
}

// checkDigit computes the ICAO 9303 check digit (weights 7, 3, 1).
func checkDigit(s string) int {
	weights := [3]int{7, 3, 1}
	sum := 0
	for i, c := range s {
		var v int
		switch {
		case c >= '0' && c <= '9':
			v = int(c - '0')
		case c >= 'A' && c <= 'Z':
			v = int(c-'A') + 10
		default:
			v = 0
		}
		sum += v * weights[i%3]
	}
	return sum % 10
}

// mrzDate expands YYMMDD to YYYY-MM-DD. Birth dates in the future roll back a
// century; expiry dates are always in this century.
func mrzDate(yymmdd string, now time.Time, expiry bool) string {
	if yymmdd == "" {
		return ""
	}
	yy := int(yymmdd[0]-'0')*10 + int(yymmdd[1]-'0')
	year := 2000 + yy
	if !expiry && year > now.Year() {
		year -= 100
	}
	t, err := time.Parse("2006-01-02", fmt.Sprintf("%04d-%s-%s", year, yymmdd[2:4], yymmdd[4:6]))
	if err != nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func splitName(section string) (surname, given string) {
	nameParts := strings.SplitN(section, "<<", 2)
	surname = cleanMRZName(nameParts[0])
	if len(nameParts) == 2 {
		given = cleanMRZName(nameParts[1])
	}
	return surname, given
}

func sexCode(c byte) string {
	if c == 'M' || c == 'F' {
		return string(c)
	}
	return ""
}

// Helper functions

func padLine(line string, length int) string {
	if len(line) >= length {
		return line[:length]
	}
	return line + strings.Repeat("<", length-len(line))
}

func cleanMRZ(s string) string {
	return strings.TrimRight(strings.ReplaceAll(s, "<", ""), " ")
}

func cleanMRZName(s string) string {
	// Replace single < with space (name separator), remove trailing filler
	cleaned := strings.TrimRight(s, "< ")
	cleaned = strings.ReplaceAll(cleaned, "<", " ")
	return strings.TrimSpace(cleaned)
}

func isValidMRZDate(s string) bool {
	if len(s) != 6 {
		return false
	}
	for _, c := range s {
		if !unicode.IsDigit(c) {
			return false
		}
	}
	return true
}
