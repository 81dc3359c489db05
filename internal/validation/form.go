package validation

import (
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/constants"
	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/models"
)

// FormError is a user-correctable problem with the configuration form
type FormError struct {
	Field   string
	Message string
}

func (e *FormError) Error() string {
	return e.Message
}

// ValidateForm checks the raw dialog values rule by rule and stops at the first
// failing rule. On success the typed configuration is returned.
func (v *Validator) ValidateForm(form models.ConfigurationForm) (*models.PlanningConfiguration, error) {
	days, err := strconv.Atoi(strings.TrimSpace(form.TravelDays))
	if err != nil || !slices.Contains(constants.TravelDayOptions, days) {
		return nil, &FormError{Field: "travel_days", Message: constants.MsgSelectDays}
	}

	departure := strings.TrimSpace(form.DepartureLocation)
	if departure == "" {
		return nil, &FormError{Field: "departure_location", Message: constants.MsgEnterDeparture}
	}

	group, ok := parseGroupSize(form.GroupSize)
	if !ok || group < constants.MinGroupSize || group > constants.MaxGroupSize {
		return nil, &FormError{Field: "group_size", Message: constants.MsgInvalidGroup}
	}

	mode := form.TravelMode
	if mode == "" {
		mode = constants.TravelSelfDrive
	}
	if !slices.Contains(constants.TravelModes, mode) {
		return nil, &FormError{Field: "travel_mode", Message: constants.MsgSelectMode}
	}

	budget := form.BudgetRange
	if budget == "" {
		budget = constants.BudgetModerate
	}
	if !slices.Contains(constants.BudgetRanges, budget) {
		return nil, &FormError{Field: "budget_range", Message: constants.MsgSelectBudget}
	}

	return &models.PlanningConfiguration{
		TravelDays:          days,
		DepartureLocation:   departure,
		TravelMode:          mode,
		BudgetRange:         budget,
		GroupSize:           group,
		SpecialRequirements: SplitRequirements(form.SpecialRequirements),
	}, nil
}

// parseGroupSize accepts any finite number and drops its fraction, so "2.5" is 2
func parseGroupSize(raw string) (int, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	f = math.Trunc(f)
	if f < math.MinInt32 || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

// SplitRequirements returns the trimmed, non-blank lines of free text
func SplitRequirements(text string) []string {
	lines := []string{}
	for line := range strings.SplitSeq(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
