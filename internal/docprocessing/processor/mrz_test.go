package processor

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visaeval/visaeval-backend/internal/docprocessing/domain"
	eligibility "github.com/visaeval/visaeval-backend/internal/eligibility/domain"
)

// ICAO 9303 specimen passport.
var specimenTD3 = padLine("P<UTOERIKSSON<<ANNA<MARIA", 44) + "\n" +
	"L898902C36UTO7408122F1204159ZE184226B<<<<<10"

func fixedMRZProcessor() *MRZProcessor {
	return &MRZProcessor{now: func() time.Time {
		return time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	}}
}

func fieldMap(fields []domain.ExtractionField) map[string]string {
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		out[f.Key] = f.Value
	}
	return out
}

func TestMRZProcessor_CanProcess(t *testing.T) {
	p := NewMRZProcessor()

	tests := []struct {
		docType domain.DocumentType
		want    bool
	}{
		{domain.DocumentTypePassport, true},
		{domain.DocumentTypeResume, false},
		{domain.DocumentTypeDegree, false},
		{domain.DocumentTypeBankStatement, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.docType), func(t *testing.T) {
			assert.Equal(t, tt.want, p.CanProcess(tt.docType))
		})
	}
}

func TestMRZProcessor_TD3_Passport(t *testing.T) {
	p := fixedMRZProcessor()

	text := "PASSPORT\nUtopia\n\n" + specimenTD3 + "\n"
	result, err := p.Process(context.Background(), []byte(text), domain.DocumentTypePassport)
	require.NoError(t, err)

	assert.Equal(t, domain.DocumentTypePassport, result.DocumentType)
	assert.Equal(t, "mrz", result.Processor)
	assert.InDelta(t, 0.95, result.Confidence, 1e-9)
	assert.Equal(t, []string{"passport expired on 2012-04-15"}, result.Warnings)

	fields := fieldMap(result.Fields)
	tests := []struct {
		key  string
		want string
	}{
		{"document_type", "P"},
		{"document_number", "L898902C3"},
		{"nationality", "UTO"},
		{"date_of_birth", "1974-08-12"},
		{"gender", "F"},
		{"expiry_date", "2012-04-15"},
		{"last_name", "ERIKSSON"},
		{"first_name", "ANNA MARIA"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, fields[tt.key])
		})
	}

	var doc eligibility.PassportDoc
	require.NoError(t, json.Unmarshal(result.Document, &doc))
	require.NotNil(t, doc.ExtractionSuccess)
	assert.True(t, *doc.ExtractionSuccess)
	assert.Equal(t, "ERIKSSON", doc.Holder.Surname)
	assert.Equal(t, "UTO", doc.Holder.Nationality)
	assert.Equal(t, "1974-08-12", doc.Holder.DateOfBirth)
	assert.Equal(t, "L898902C3", doc.DocumentNumber)
}

func TestMRZProcessor_TD1_IDCard(t *testing.T) {
	p := fixedMRZProcessor()

	mrz := "IDD<<T220001293<<<<<<<<<<<<<<<\n" +
		"9301010M3112319D<<<<<<<<<<<<<8\n" +
		"MUSTERMANN<<MAX<ALEXANDER<<<<<"

	result, err := p.Process(context.Background(), []byte(mrz), domain.DocumentTypePassport)
	require.NoError(t, err)

	assert.Empty(t, result.Warnings)
	fields := fieldMap(result.Fields)
	assert.Equal(t, "ID", fields["document_type"])
	assert.Equal(t, "T22000129", fields["document_number"])
	assert.Equal(t, "D", fields["nationality"])
	assert.Equal(t, "1993-01-01", fields["date_of_birth"])
	assert.Equal(t, "2031-12-31", fields["expiry_date"])
	assert.Equal(t, "M", fields["gender"])
	assert.Equal(t, "MUSTERMANN", fields["last_name"])
	assert.Equal(t, "MAX ALEXANDER", fields["first_name"])
}

func TestMRZProcessor_CheckDigitMismatch(t *testing.T) {
	p := fixedMRZProcessor()

	// Date of birth check digit 2 replaced by 5.
	corrupted := strings.Replace(specimenTD3, "7408122F", "7408125F", 1)
	result, err := p.Process(context.Background(), []byte(corrupted), domain.DocumentTypePassport)
	require.NoError(t, err)

	assert.InDelta(t, 0.80, result.Confidence, 1e-9)
	assert.Contains(t, result.Warnings, "MRZ check digit mismatch for date of birth")
}

func TestMRZProcessor_NoMRZ(t *testing.T) {
	p := fixedMRZProcessor()

	_, err := p.Process(context.Background(), []byte("Curriculum Vitae\nPriya Sharma\nBackend Engineer"), domain.DocumentTypePassport)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no machine readable zone")
}

func TestCheckDigit(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"L898902C3", 6},
		{"740812", 2},
		{"120415", 9},
		{"T22000129", 3},
		{"<<<<<<", 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, checkDigit(tt.in))
		})
	}
}

func TestMRZDate(t *testing.T) {
	now := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "1974-08-12", mrzDate("740812", now, false))
	assert.Equal(t, "2001-02-03", mrzDate("010203", now, false))
	assert.Equal(t, "2074-08-12", mrzDate("740812", now, true))
	assert.Equal(t, "", mrzDate("991399", now, false))
	assert.Equal(t, "", mrzDate("", now, false))
}
