package main

import (
	"github.com/liamcoop/shiftrules/render"
	"github.com/liamcoop/shiftrules/rules"
	"github.com/liamcoop/shiftrules/scopes"
)

// API request and response models

// ValidateRequest is the body of POST /api/v1/validate. When Profiles is
// omitted the profiles are looked up in the store.
type ValidateRequest struct {
	Period   rules.ReferencePeriod   `json:"period"`
	Events   []rules.EventRecord     `json:"events"`
	Profiles []rules.EmployeeProfile `json:"profiles,omitempty"`
	Lang     string                  `json:"lang,omitempty"`
}

// ValidateResponse carries the ordered outcomes of one batch
type ValidateResponse struct {
	BatchID        string               `json:"batchId"`
	Language       string               `json:"language"`
	Outcomes       []render.OutcomeView `json:"outcomes"`
	Summary        render.Summary       `json:"summary"`
	EvaluationTime string               `json:"evaluationTime"`
}

// ProfilesListResponse represents the response for listing profiles
type ProfilesListResponse struct {
	Profiles []*rules.EmployeeProfile `json:"profiles"`
}

// ScopeRulesRequest replaces the rule set of one scope
type ScopeRulesRequest struct {
	Rules []scopes.Definition `json:"rules"`
}

// ScopeRulesResponse represents one scope's rule set
type ScopeRulesResponse struct {
	Scope scopes.Scope        `json:"scope"`
	Rules []scopes.Definition `json:"rules"`
}

// ScopesListResponse represents the response for listing scopes
type ScopesListResponse struct {
	Scopes []scopes.RuleSet `json:"scopes"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status       string           `json:"status"`
	Error        string           `json:"error,omitempty"`
	Storage      string           `json:"storage"`
	ScopesLoaded int              `json:"scopesLoaded"`
	Counters     map[string]int64 `json:"counters"`
}
