package models

import (
	"fmt"
	"slices"

	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/constants"
)

// PlanningConfiguration is the validated output of the planning dialog
type PlanningConfiguration struct {
	TravelDays          int                   `json:"travel_days"`
	DepartureLocation   string                `json:"departure_location"`
	TravelMode          constants.TravelMode  `json:"travel_mode"`
	BudgetRange         constants.BudgetRange `json:"budget_range"`
	GroupSize           int                   `json:"group_size"`
	SpecialRequirements []string              `json:"special_requirements"`
}

// ConfigurationForm holds the raw, unvalidated dialog field values
type ConfigurationForm struct {
	TravelDays          string
	DepartureLocation   string
	TravelMode          constants.TravelMode
	BudgetRange         constants.BudgetRange
	GroupSize           string
	SpecialRequirements string
}

// DefaultConfigurationForm returns the values the dialog opens with
func DefaultConfigurationForm() ConfigurationForm {
	return ConfigurationForm{
		TravelDays:  fmt.Sprint(constants.DefaultDays),
		TravelMode:  constants.TravelSelfDrive,
		BudgetRange: constants.BudgetModerate,
		GroupSize:   fmt.Sprint(constants.DefaultGroupSize),
	}
}

// Validate checks the enumerated fields of an already-built configuration
func (c *PlanningConfiguration) Validate() error {
	if !slices.Contains(constants.TravelDayOptions, c.TravelDays) {
		return fmt.Errorf("travel days must be one of %v", constants.TravelDayOptions)
	}
	if c.DepartureLocation == "" {
		return fmt.Errorf("departure location cannot be empty")
	}
	if c.TravelMode != "" && !slices.Contains(constants.TravelModes, c.TravelMode) {
		return fmt.Errorf("unknown travel mode: %s", c.TravelMode)
	}
	if c.BudgetRange != "" && !slices.Contains(constants.BudgetRanges, c.BudgetRange) {
		return fmt.Errorf("unknown budget range: %s", c.BudgetRange)
	}
	if c.GroupSize < constants.MinGroupSize || c.GroupSize > constants.MaxGroupSize {
		return fmt.Errorf("group size must be between %d and %d", constants.MinGroupSize, constants.MaxGroupSize)
	}
	return nil
}

// PlanRequest is the body of a job submission to the planning agent
type PlanRequest struct {
	HeritageIDs         []int    `json:"heritage_ids" validate:"required,min=1,max=20,dive,gt=0"`
	UserID              string   `json:"user_id" validate:"required"`
	TravelDays          int      `json:"travel_days" validate:"required,oneof=1 2 3 4 5 7 10 14"`
	DepartureLocation   string   `json:"departure_location" validate:"required"`
	TravelMode          string   `json:"travel_mode" validate:"omitempty,oneof=self-drive public-transit group-tour independent"`
	BudgetRange         string   `json:"budget_range" validate:"omitempty,oneof=economy moderate premium luxury"`
	GroupSize           int      `json:"group_size" validate:"min=1,max=50"`
	SpecialRequirements []string `json:"special_requirements" validate:"dive,required"`
}

// NewPlanRequest combines a dialog configuration with the selected heritage items
func NewPlanRequest(cfg PlanningConfiguration, heritageIDs []int, userID string) PlanRequest {
	reqs := cfg.SpecialRequirements
	if reqs == nil {
		reqs = []string{}
	}
	return PlanRequest{
		HeritageIDs:         heritageIDs,
		UserID:              userID,
		TravelDays:          cfg.TravelDays,
		DepartureLocation:   cfg.DepartureLocation,
		TravelMode:          string(cfg.TravelMode),
		BudgetRange:         string(cfg.BudgetRange),
		GroupSize:           cfg.GroupSize,
		SpecialRequirements: reqs,
	}
}

// PlanResponse is returned by the agent when a job is accepted
type PlanResponse struct {
	Success bool              `json:"success"`
	PlanID  string            `json:"plan_id"`
	Message string            `json:"message"`
	Data    *PlanResponseData `json:"data,omitempty"`
}

// PlanResponseData carries the optional details of an accepted job
type PlanResponseData struct {
	PlanID        string `json:"plan_id"`
	TravelDays    int    `json:"travel_days"`
	EstimatedTime string `json:"estimated_time,omitempty"`
}
