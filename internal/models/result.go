package models

import (
	"encoding/json"
	"fmt"
)

// ResultEnvelope wraps a plan result as returned by the result endpoint
type ResultEnvelope struct {
	Success bool            `json:"success"`
	PlanID  string          `json:"plan_id"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	Status  string          `json:"status,omitempty"`
	Message string          `json:"message,omitempty"`
}

// PlanResult keeps the opaque plan payload alongside a typed view for rendering
type PlanResult struct {
	Raw  json.RawMessage `json:"-"`
	Plan TravelPlan      `json:"-"`
}

// ParsePlanResult decodes the typed view of a raw plan payload.
// Unknown fields are preserved in Raw only.
func ParsePlanResult(raw json.RawMessage) (*PlanResult, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, fmt.Errorf("empty plan payload")
	}
	var plan TravelPlan
	if err := json.Unmarshal(raw, &plan); err != nil {
		return nil, fmt.Errorf("failed to decode plan payload: %w", err)
	}
	return &PlanResult{Raw: raw, Plan: plan}, nil
}

// TravelPlan is the rendered subset of a finished plan
type TravelPlan struct {
	BasicInfo       BasicInfo       `json:"basic_info"`
	Itinerary       []ItineraryDay  `json:"itinerary"`
	PaceAnalysis    PaceAnalysis    `json:"pace_analysis"`
	Recommendations Recommendations `json:"recommendations"`
}

type BasicInfo struct {
	Title       string `json:"title"`
	Duration    string `json:"duration"`
	Departure   string `json:"departure"`
	TravelMode  string `json:"travel_mode"`
	GroupSize   int    `json:"group_size"`
	BudgetRange string `json:"budget_range"`
}

type ItineraryDay struct {
	Day     int             `json:"day"`
	Theme   string          `json:"theme"`
	Weather *DayWeather     `json:"weather,omitempty"`
	Items   []ItineraryItem `json:"items"`
}

type DayWeather struct {
	Condition   string `json:"condition"`
	Temperature string `json:"temperature"`
}

type ItineraryItem struct {
	Name            string  `json:"name"`
	Category        string  `json:"category,omitempty"`
	Region          string  `json:"region,omitempty"`
	VisitDuration   string  `json:"visit_duration,omitempty"`
	TravelTimeHours float64 `json:"travel_time_hours,omitempty"`
}

type PaceAnalysis struct {
	Highlights []string `json:"highlights,omitempty"`
	RelaxDays  []int    `json:"relax_days,omitempty"`
}

type Recommendations struct {
	TravelTips     []string        `json:"travel_tips,omitempty"`
	PackingList    []string        `json:"packing_list,omitempty"`
	BudgetEstimate *BudgetEstimate `json:"budget_estimate,omitempty"`
}

type BudgetEstimate struct {
	Description string `json:"description"`
}
