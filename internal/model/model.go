package model

import (
	"errors"
	"fmt"
	"strings"
)

// Match strategies. Every Match carries exactly one of these tags.
const (
	MatchTypeRuleBased = "rule-based"
	MatchTypeAI        = "ai"
)

// Tender is a single procurement opportunity as published by the GeM
// services feed. Tenders are immutable during a matching run.
type Tender struct {
	ID          string   `json:"id" bson:"id"`
	DisplayName string   `json:"display_name" bson:"display_name"`
	Description string   `json:"description,omitempty" bson:"description,omitempty"`
	SearchTags  []string `json:"search_tags,omitempty" bson:"search_tags,omitempty"`
	MarketURL   string   `json:"market_url" bson:"market_url"`
	Status      string   `json:"status,omitempty" bson:"status,omitempty"`
	ServiceType string   `json:"service_type,omitempty" bson:"service_type,omitempty"`
	SLA         string   `json:"sla,omitempty" bson:"sla,omitempty"`
}

func (t *Tender) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return errors.New("tender id is required")
	}
	if strings.TrimSpace(t.DisplayName) == "" {
		return fmt.Errorf("tender %s: display name is required", t.ID)
	}
	return nil
}

// TenderCollection mirrors the shape of the GeM services listing.
type TenderCollection struct {
	TotalCount int      `json:"total_count"`
	Source     string   `json:"source,omitempty"`
	Services   []Tender `json:"services"`
}

func (c *TenderCollection) Len() int {
	return len(c.Services)
}

// Product is one catalog offering the company can sell against a tender.
type Product struct {
	Name        string   `json:"name" bson:"name"`
	Keywords    []string `json:"keywords" bson:"keywords"`
	Category    string   `json:"category,omitempty" bson:"category,omitempty"`
	Description string   `json:"description,omitempty" bson:"description,omitempty"`
}

func (p *Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("product name is required")
	}
	return nil
}

// ProductCatalog mirrors the our_products.json catalog file.
type ProductCatalog struct {
	CompanyName string    `json:"company_name"`
	Offerings   []Product `json:"offerings"`
}

// Match asserts that a product can address a tender. It is the engine's
// sole output unit; a postprocessed result set contains at most one Match
// per (tender_id, matched_product) pair.
type Match struct {
	TenderID       string   `json:"tender_id" bson:"tender_id"`
	TenderName     string   `json:"tender_name" bson:"tender_name"`
	MatchedProduct string   `json:"matched_product" bson:"matched_product"`
	Score          float64  `json:"score" bson:"score"`
	Reasons        []string `json:"reasons,omitempty" bson:"reasons,omitempty"`
	MarketURL      string   `json:"market_url" bson:"market_url"`
	MatchType      string   `json:"match_type" bson:"match_type"`
	// Confidence is a 0-1 normalization of the score. Only the rule-based
	// strategy sets it.
	Confidence float64 `json:"confidence,omitempty" bson:"confidence,omitempty"`
}

// MatchKey identifies a Match within a result set.
type MatchKey struct {
	TenderID string
	Product  string
}

func (m *Match) Key() MatchKey {
	return MatchKey{TenderID: m.TenderID, Product: m.MatchedProduct}
}

func (m *Match) Validate() error {
	if strings.TrimSpace(m.TenderID) == "" {
		return errors.New("match tender_id is required")
	}
	if strings.TrimSpace(m.MatchedProduct) == "" {
		return fmt.Errorf("match for tender %s: matched_product is required", m.TenderID)
	}
	if m.Score < 0 {
		return fmt.Errorf("match %s/%s: score must be non-negative", m.TenderID, m.MatchedProduct)
	}
	switch m.MatchType {
	case MatchTypeRuleBased, MatchTypeAI:
	default:
		return fmt.Errorf("match %s/%s: unknown match_type %q", m.TenderID, m.MatchedProduct, m.MatchType)
	}
	return nil
}

// LLMMatchResult is one element of the model's structured response. It
// exists only between response parsing and conversion to Match.
type LLMMatchResult struct {
	TenderID                 string `json:"tender_id"`
	TenderTitle              string `json:"tender_title"`
	MatchedProduct           string `json:"matched_product"`
	MatchingScore            int    `json:"matching_score"`
	CustomizationPossibility string `json:"customization_possibility,omitempty"`
	Reasoning                string `json:"reasoning,omitempty"`
}

// ToMatch converts the raw model output to the canonical Match contract.
// The market URL must come from the original tender object, not from the
// echoed title; the caller resolves it and passes an empty string when the
// model hallucinated an unknown tender id.
func (r *LLMMatchResult) ToMatch(marketURL string) Match {
	var reasons []string
	if strings.TrimSpace(r.Reasoning) != "" {
		reasons = []string{r.Reasoning}
	}

	return Match{
		TenderID:       r.TenderID,
		TenderName:     r.TenderTitle,
		MatchedProduct: r.MatchedProduct,
		Score:          float64(r.MatchingScore),
		Reasons:        reasons,
		MarketURL:      marketURL,
		MatchType:      MatchTypeAI,
	}
}
