package travel

import (
	"strings"
	"time"
)

// Rule colors used by the upstream API.
const (
	ColorGreen  = "green"  // visa free
	ColorBlue   = "blue"   // visa on arrival
	ColorYellow = "yellow" // eTA or eVisa
	ColorRed    = "red"    // visa required
)

// Sources of a Requirement.
const (
	SourceAPI     = "api"
	SourceOffline = "offline"
)

// Destination describes the country being entered.
type Destination struct {
	Code             string `json:"code"`
	Name             string `json:"name"`
	Continent        string `json:"continent,omitempty"`
	Capital          string `json:"capital,omitempty"`
	Currency         string `json:"currency,omitempty"`
	PassportValidity string `json:"passport_validity,omitempty"`
	EmbassyURL       string `json:"embassy_url,omitempty"`
}

// Rule is one visa rule for a passport/destination pair.
type Rule struct {
	Name     string `json:"name"`
	Duration string `json:"duration,omitempty"`
	Color    string `json:"color,omitempty"`
	Link     string `json:"link,omitempty"`
	FullText string `json:"full_text,omitempty"`
}

// Requirement is the entry rule set for holders of Passport travelling to
// Destination.
type Requirement struct {
	Passport              string      `json:"passport"`
	Destination           Destination `json:"destination"`
	Primary               Rule        `json:"primary_rule"`
	Secondary             *Rule       `json:"secondary_rule,omitempty"`
	Exception             *Rule       `json:"exception_rule,omitempty"`
	MandatoryRegistration *Rule       `json:"mandatory_registration,omitempty"`
	VisaRequired          bool        `json:"visa_required"`
	VisaFree              bool        `json:"visa_free"`
	NeedsEVisa            bool        `json:"needs_evisa"`
	NeedsETA              bool        `json:"needs_eta"`
	Source                string      `json:"source"`
	FetchedAt             time.Time   `json:"fetched_at"`
}

// classify derives the convenience flags from the primary rule.
func (r *Requirement) classify() {
	name := strings.ToLower(r.Primary.Name)
	r.VisaRequired = r.Primary.Color == ColorRed
	r.VisaFree = r.Primary.Color == ColorGreen
	r.NeedsEVisa = strings.Contains(name, "evisa")
	r.NeedsETA = strings.Contains(name, "eta")
}

// Notes lists conditions an applicant should be told about.
func (r *Requirement) Notes() []string {
	var notes []string
	if r.MandatoryRegistration != nil && r.MandatoryRegistration.Name != "" {
		notes = append(notes, "Mandatory registration required: "+r.MandatoryRegistration.Name)
	}
	if r.Exception != nil {
		text := r.Exception.FullText
		if text == "" {
			text = "check the official source"
		}
		notes = append(notes, "Exception rule: "+text)
	}
	return notes
}

// Documents lists the entry documents for the rule set and travel purpose.
func (r *Requirement) Documents(purpose string) []string {
	validity := r.Destination.PassportValidity
	if validity == "" {
		validity = "6 months beyond stay"
	}
	docs := []string{"Valid passport", "Passport valid for " + validity}

	if r.VisaRequired {
		docs = append(docs,
			"Visa application form",
			"Passport photos",
			"Travel insurance",
			"Proof of accommodation",
			"Financial proof",
		)
	}
	if r.NeedsEVisa {
		docs = append(docs, "Online eVisa application")
	}
	if r.NeedsETA {
		docs = append(docs, "Electronic Travel Authorization (eTA)")
	}

	p := strings.ToLower(purpose)
	switch {
	case strings.Contains(p, "work") || strings.Contains(p, "skilled") || strings.Contains(p, "job"):
		docs = append(docs, "Job offer letter", "Work contract", "Employer sponsorship")
	case strings.Contains(p, "study"):
		docs = append(docs, "Letter of acceptance", "Proof of tuition payment", "Academic transcripts")
	}
	return docs
}

// offline answers without the upstream API. Free movement inside the EU/EEA
// and Switzerland is modelled; every other pair is reported as visa required
// so applicants check the official source.
func offline(passport, destination string, now time.Time) *Requirement {
	r := &Requirement{
		Passport: passport,
		Destination: Destination{
			Code:             destination,
			Name:             destination,
			PassportValidity: "6 months beyond stay",
		},
		Source:    SourceOffline,
		FetchedAt: now,
	}
	switch {
	case passport == destination:
		r.Primary = Rule{Name: "Citizen", Color: ColorGreen}
	case freeMovement[passport] && freeMovement[destination]:
		r.Primary = Rule{Name: "Freedom of movement", Color: ColorGreen}
	default:
		r.Primary = Rule{Name: "Visa required", Color: ColorRed}
	}
	r.classify()
	return r
}
