package agentsim

import (
	"fmt"
	"strings"

	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/constants"
	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/models"
)

// heritageItem is a catalogue entry the simulator draws plan items from
type heritageItem struct {
	Name     string
	Category string
	Region   string
}

var catalog = []heritageItem{
	{"Qinqiang Opera", "Traditional drama", "Xi'an"},
	{"Ansai Waist Drum", "Traditional dance", "Yan'an"},
	{"Fengxiang Clay Sculpture", "Traditional art", "Baoji"},
	{"Huxian Peasant Painting", "Traditional art", "Xi'an"},
	{"Xi'an Drum Music", "Traditional music", "Xi'an"},
	{"Yaozhou Kiln Ceramics", "Traditional craft", "Tongchuan"},
	{"Northern Shaanxi Paper-cutting", "Traditional art", "Yulin"},
	{"Hancheng Xingshe Social Fire", "Folk custom", "Weinan"},
}

var weatherCycle = []models.DayWeather{
	{Condition: "Sunny", Temperature: "22°C"},
	{Condition: "Cloudy", Temperature: "19°C"},
	{Condition: "Light rain", Temperature: "16°C"},
}

func lookup(id int) heritageItem {
	if id < 0 {
		id = -id
	}
	return catalog[id%len(catalog)]
}

// buildPlan spreads the requested heritage items over the travel days
func buildPlan(req *models.PlanRequest) models.TravelPlan {
	n := max(1, req.TravelDays)
	days := make([]models.ItineraryDay, n)
	for i := range days {
		w := weatherCycle[i%len(weatherCycle)]
		days[i] = models.ItineraryDay{Day: i + 1, Weather: &w}
	}

	for i, id := range req.HeritageIDs {
		item := lookup(id)
		d := &days[i%len(days)]
		d.Items = append(d.Items, models.ItineraryItem{
			Name:            item.Name,
			Category:        item.Category,
			Region:          item.Region,
			VisitDuration:   "2h",
			TravelTimeHours: 0.5 + float64(len(d.Items))*0.5,
		})
	}

	var relax []int
	for i := range days {
		if len(days[i].Items) == 0 {
			days[i].Theme = "Free exploration"
			relax = append(relax, days[i].Day)
			continue
		}
		days[i].Theme = days[i].Items[0].Region + " heritage"
	}

	tips := []string{"Check performance schedules before visiting opera and music venues"}
	if len(req.SpecialRequirements) > 0 {
		tips = append(tips, "Requested: "+strings.Join(req.SpecialRequirements, "; "))
	}

	return models.TravelPlan{
		BasicInfo: models.BasicInfo{
			Title:       fmt.Sprintf("Shaanxi intangible heritage tour (%d days)", req.TravelDays),
			Duration:    fmt.Sprintf("%d days", req.TravelDays),
			Departure:   req.DepartureLocation,
			TravelMode:  string(req.TravelMode),
			GroupSize:   req.GroupSize,
			BudgetRange: string(req.BudgetRange),
		},
		Itinerary: days,
		PaceAnalysis: models.PaceAnalysis{
			Highlights: []string{fmt.Sprintf("%d heritage visits", len(req.HeritageIDs))},
			RelaxDays:  relax,
		},
		Recommendations: models.Recommendations{
			TravelTips:     tips,
			PackingList:    []string{"Comfortable walking shoes", "Rain jacket"},
			BudgetEstimate: &models.BudgetEstimate{Description: budgetDescription(req.BudgetRange)},
		},
	}
}

func budgetDescription(b constants.BudgetRange) string {
	if b == "" {
		b = constants.BudgetModerate
	}
	return "Estimated spend: " + b.Label()
}
