package processor

import (
	"embed"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/visaeval/visaeval-backend/internal/docprocessing/domain"
)

//go:embed schemas/*.json
var schemaFS embed.FS

const systemPrompt = `You extract structured data from immigration documents.
Reply with one JSON object and nothing else. Use null for anything the document
does not state; never guess. Amounts are plain numbers without separators or
currency symbols. Dates are YYYY-MM-DD. Add "confidence" between 0 and 1 for how
legible and complete the document was.`

var documentLabels = map[domain.DocumentType]string{
	domain.DocumentTypeResume:        "resume / CV",
	domain.DocumentTypeDegree:        "degree certificate or diploma",
	domain.DocumentTypeJobOffer:      "job offer or employment contract",
	domain.DocumentTypeSalaryProof:   "payslip or salary certificate",
	domain.DocumentTypeLanguageCert:  "language test certificate",
	domain.DocumentTypePassport:      "passport data page",
	domain.DocumentTypeBankStatement: "bank statement",
}

// documentSchema is a compiled schema plus its source, which doubles as the
// output contract in the prompt.
type documentSchema struct {
	source string
	schema *gojsonschema.Schema
}

func loadSchemas() (map[domain.DocumentType]documentSchema, error) {
	out := make(map[domain.DocumentType]documentSchema, len(domain.DocumentTypes))
	for _, docType := range domain.DocumentTypes {
		raw, err := schemaFS.ReadFile("schemas/" + string(docType) + ".json")
		if err != nil {
			return nil, fmt.Errorf("schema for %s: %w", docType, err)
		}
		compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
		if err != nil {
			return nil, fmt.Errorf("compile schema for %s: %w", docType, err)
		}
		out[docType] = documentSchema{source: string(raw), schema: compiled}
	}
	return out, nil
}

func userPrompt(docType domain.DocumentType, schema, text string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Document type: %s\n\n", documentLabels[docType])
	b.WriteString("Return JSON matching this JSON Schema:\n")
	b.WriteString(schema)
	b.WriteString("\n\nDocument text:\n---\n")
	b.WriteString(text)
	b.WriteString("\n---")
	return b.String()
}
