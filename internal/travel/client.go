package travel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/visaeval/visaeval-backend/pkg/config"
)

// Client calls the RapidAPI "visa-requirement" API.
type Client struct {
	baseURL    string
	apiKey     string
	apiHost    string
	httpClient *http.Client
}

// NewClient returns nil when no API key is configured; the service then
// answers from offline data.
func NewClient(cfg config.TravelConfig) *Client {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	host := cfg.APIHost
	if host == "" {
		host = "visa-requirement.p.rapidapi.com"
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		apiHost:    host,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type checkRequest struct {
	Passport    string `json:"passport"`
	Destination string `json:"destination"`
}

type apiRule struct {
	Name     string `json:"name"`
	Duration string `json:"duration"`
	Color    string `json:"color"`
	Link     string `json:"link"`
	FullText string `json:"full_text"`
}

func (r *apiRule) toRule() *Rule {
	if r == nil {
		return nil
	}
	return &Rule{Name: r.Name, Duration: r.Duration, Color: r.Color, Link: r.Link, FullText: r.FullText}
}

type checkResponse struct {
	Data struct {
		Destination struct {
			Code             string `json:"code"`
			Name             string `json:"name"`
			Continent        string `json:"continent"`
			Capital          string `json:"capital"`
			Currency         string `json:"currency"`
			PassportValidity string `json:"passport_validity"`
			EmbassyURL       string `json:"embassy_url"`
		} `json:"destination"`
		VisaRules struct {
			PrimaryRule   *apiRule `json:"primary_rule"`
			SecondaryRule *apiRule `json:"secondary_rule"`
			ExceptionRule *apiRule `json:"exception_rule"`
		} `json:"visa_rules"`
		MandatoryRegistration *apiRule `json:"mandatory_registration"`
	} `json:"data"`
}

// Check fetches the rules for one passport/destination pair. Both are
// alpha-2 codes.
func (c *Client) Check(ctx context.Context, passport, destination string) (*Requirement, error) {
	payload, err := json.Marshal(checkRequest{Passport: passport, Destination: destination})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/visa/check", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-RapidAPI-Key", c.apiKey)
	req.Header.Set("X-RapidAPI-Host", c.apiHost)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("api returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed checkResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if parsed.Data.VisaRules.PrimaryRule == nil {
		return nil, fmt.Errorf("response missing primary rule")
	}

	d := parsed.Data.Destination
	r := &Requirement{
		Passport: passport,
		Destination: Destination{
			Code:             d.Code,
			Name:             d.Name,
			Continent:        d.Continent,
			Capital:          d.Capital,
			Currency:         d.Currency,
			PassportValidity: d.PassportValidity,
			EmbassyURL:       d.EmbassyURL,
		},
		Primary:               *parsed.Data.VisaRules.PrimaryRule.toRule(),
		Secondary:             parsed.Data.VisaRules.SecondaryRule.toRule(),
		Exception:             parsed.Data.VisaRules.ExceptionRule.toRule(),
		MandatoryRegistration: parsed.Data.MandatoryRegistration.toRule(),
		Source:                SourceAPI,
	}
	if r.Destination.Code == "" {
		r.Destination.Code = destination
	}
	r.classify()
	return r, nil
}
