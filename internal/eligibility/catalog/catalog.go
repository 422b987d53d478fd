package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/visaeval/visaeval-backend/internal/eligibility/domain"
)

//go:embed catalog.yaml
var embeddedCatalog []byte

// Catalog is the immutable table of visa definitions. It is built once and
// every accessor returns copies, so it is safe for concurrent readers.
type Catalog struct {
	version     string
	countries   []string
	visaTypes   map[string][]string
	definitions map[string]domain.VisaDefinition
}

// Load parses the catalog embedded in the binary.
func Load() (*Catalog, error) {
	return Parse(embeddedCatalog)
}

// LoadFile parses a catalog from disk, replacing the embedded one.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(data)
}

// LoadOrEmbedded loads path when set and the embedded catalog otherwise.
func LoadOrEmbedded(path string) (*Catalog, error) {
	if path == "" {
		return Load()
	}
	return LoadFile(path)
}

// Parse decodes and validates a YAML catalog document.
func Parse(data []byte) (*Catalog, error) {
	var doc catalogDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if len(doc.Countries) == 0 {
		return nil, fmt.Errorf("catalog has no countries")
	}

	c := &Catalog{
		version:     doc.Version,
		visaTypes:   make(map[string][]string),
		definitions: make(map[string]domain.VisaDefinition),
	}

	for _, country := range doc.Countries {
		name := strings.TrimSpace(country.Name)
		if name == "" {
			return nil, fmt.Errorf("catalog: country without a name")
		}
		if _, dup := c.visaTypes[normalizeKey(name)]; dup {
			return nil, fmt.Errorf("catalog: duplicate country %q", name)
		}
		c.countries = append(c.countries, name)

		types := make([]string, 0, len(country.Visas))
		for _, v := range country.Visas {
			def, err := v.toDomain(name)
			if err != nil {
				return nil, fmt.Errorf("catalog: %s/%s: %w", name, v.Type, err)
			}
			k := key(name, def.VisaType)
			if _, dup := c.definitions[k]; dup {
				return nil, fmt.Errorf("catalog: duplicate visa type %s/%s", name, def.VisaType)
			}
			c.definitions[k] = def
			types = append(types, def.VisaType)
		}
		c.visaTypes[normalizeKey(name)] = types
	}

	return c, nil
}

// Version is the catalog revision declared in the document.
func (c *Catalog) Version() string {
	return c.version
}

// Lookup returns the definition for (country, visaType). Matching ignores case
// and surrounding whitespace. A miss is reported with ok=false, never an error.
func (c *Catalog) Lookup(country, visaType string) (domain.VisaDefinition, bool) {
	def, ok := c.definitions[key(country, visaType)]
	if !ok {
		return domain.VisaDefinition{}, false
	}
	return cloneDefinition(def), true
}

// ListCountries returns every country in declaration order.
func (c *Catalog) ListCountries() []string {
	return append([]string(nil), c.countries...)
}

// ListVisaTypes returns the visa types of country in declaration order, or nil
// for an unknown country.
func (c *Catalog) ListVisaTypes(country string) []string {
	types, ok := c.visaTypes[normalizeKey(country)]
	if !ok {
		return nil
	}
	return append([]string(nil), types...)
}

// HasCountry reports whether the catalog models country at all.
func (c *Catalog) HasCountry(country string) bool {
	_, ok := c.visaTypes[normalizeKey(country)]
	return ok
}

// CanonicalCountry returns the declared spelling of country.
func (c *Catalog) CanonicalCountry(country string) (string, bool) {
	for _, name := range c.countries {
		if normalizeKey(name) == normalizeKey(country) {
			return name, true
		}
	}
	return "", false
}

// All returns every definition in catalog order: countries as declared, then
// visa types as declared within each country.
func (c *Catalog) All() []domain.VisaDefinition {
	out := make([]domain.VisaDefinition, 0, len(c.definitions))
	for _, country := range c.countries {
		for _, visaType := range c.visaTypes[normalizeKey(country)] {
			out = append(out, cloneDefinition(c.definitions[key(country, visaType)]))
		}
	}
	return out
}

// Definition resolves (country, visaType), substituting the default set on a miss.
func (c *Catalog) Definition(country, visaType string) domain.VisaDefinition {
	def, ok := c.Lookup(country, visaType)
	return Resolve(country, visaType, def, ok)
}

// SuggestByPurpose returns the definitions tagged with purpose, in catalog
// order. An empty country searches every country.
func (c *Catalog) SuggestByPurpose(country, purpose string) []domain.VisaDefinition {
	want := normalizePurpose(purpose)
	if want == "" {
		return nil
	}

	var out []domain.VisaDefinition
	for _, def := range c.All() {
		if country != "" && normalizeKey(def.Country) != normalizeKey(country) {
			continue
		}
		for _, p := range def.Purposes {
			if p == want {
				out = append(out, def)
				break
			}
		}
	}
	return out
}

func key(country, visaType string) string {
	return normalizeKey(country) + "\x00" + normalizeKey(visaType)
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// normalizePurpose folds "Skilled Migration" and "skilled-migration" onto "skilled_migration".
func normalizePurpose(s string) string {
	s = normalizeKey(s)
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}

func cloneDefinition(d domain.VisaDefinition) domain.VisaDefinition {
	out := d
	out.Requirements = make([]domain.RequirementSpec, len(d.Requirements))
	for i, r := range d.Requirements {
		out.Requirements[i] = cloneRequirement(r)
	}
	out.RequiredDocuments = append([]string(nil), d.RequiredDocuments...)
	out.OptionalDocuments = append([]string(nil), d.OptionalDocuments...)
	out.Purposes = append([]string(nil), d.Purposes...)
	out.OfficialSources = append([]domain.OfficialSource(nil), d.OfficialSources...)
	return out
}

func cloneRequirement(r domain.RequirementSpec) domain.RequirementSpec {
	if r.HardFailCap != nil {
		v := *r.HardFailCap
		r.HardFailCap = &v
	}
	switch t := r.Thresholds.(type) {
	case domain.SalaryThresholds:
		if t.AlternateMinForShortageOccupation != nil {
			v := *t.AlternateMinForShortageOccupation
			t.AlternateMinForShortageOccupation = &v
		}
		r.Thresholds = t
	case domain.OccupationThresholds:
		t.EligibleOccupations = append([]string(nil), t.EligibleOccupations...)
		r.Thresholds = t
	}
	return r
}
