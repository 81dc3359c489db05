package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/constants"
	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/models"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true).
			MarginTop(1)

	dayStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Width(14)

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	activeStepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)

	doneStepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

const defaultTitle = "Heritage travel plan"

// Plan renders a finished plan as styled text. Empty sections are left out.
func Plan(plan *models.TravelPlan) string {
	if plan == nil {
		return mutedStyle.Render("No plan data.")
	}

	var b strings.Builder

	title := plan.BasicInfo.Title
	if title == "" {
		title = defaultTitle
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")
	writeOverview(&b, plan.BasicInfo)

	if len(plan.Itinerary) > 0 {
		b.WriteString(sectionStyle.Render("Itinerary"))
		b.WriteString("\n")
		for _, day := range plan.Itinerary {
			writeDay(&b, day)
		}
	}

	if len(plan.PaceAnalysis.Highlights) > 0 || len(plan.PaceAnalysis.RelaxDays) > 0 {
		b.WriteString(sectionStyle.Render("Pace"))
		b.WriteString("\n")
		writeList(&b, plan.PaceAnalysis.Highlights)
		if len(plan.PaceAnalysis.RelaxDays) > 0 {
			days := make([]string, len(plan.PaceAnalysis.RelaxDays))
			for i, d := range plan.PaceAnalysis.RelaxDays {
				days[i] = strconv.Itoa(d)
			}
			b.WriteString(fmt.Sprintf("  Rest days: %s\n", strings.Join(days, ", ")))
		}
	}

	rec := plan.Recommendations
	if len(rec.TravelTips) > 0 {
		b.WriteString(sectionStyle.Render("Travel tips"))
		b.WriteString("\n")
		writeList(&b, rec.TravelTips)
	}
	if len(rec.PackingList) > 0 {
		b.WriteString(sectionStyle.Render("Packing list"))
		b.WriteString("\n")
		writeList(&b, rec.PackingList)
	}
	if rec.BudgetEstimate != nil && rec.BudgetEstimate.Description != "" {
		b.WriteString(sectionStyle.Render("Budget"))
		b.WriteString("\n  ")
		b.WriteString(rec.BudgetEstimate.Description)
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

func writeOverview(b *strings.Builder, info models.BasicInfo) {
	rows := [][2]string{
		{"Duration", info.Duration},
		{"Departure", info.Departure},
		{"Travel mode", constants.TravelMode(info.TravelMode).Label()},
		{"Budget", constants.BudgetRange(info.BudgetRange).Label()},
	}
	if info.GroupSize > 0 {
		rows = append(rows, [2]string{"Group size", fmt.Sprintf("%d people", info.GroupSize)})
	}
	for _, row := range rows {
		if row[1] == "" {
			continue
		}
		b.WriteString(labelStyle.Render(row[0]))
		b.WriteString(row[1])
		b.WriteString("\n")
	}
}

func writeDay(b *strings.Builder, day models.ItineraryDay) {
	header := fmt.Sprintf("Day %d", day.Day)
	if day.Theme != "" {
		header += " · " + day.Theme
	}
	b.WriteString(dayStyle.Render(header))
	if day.Weather != nil && day.Weather.Condition != "" {
		weather := day.Weather.Condition
		if day.Weather.Temperature != "" {
			weather += ", " + day.Weather.Temperature
		}
		b.WriteString(" ")
		b.WriteString(mutedStyle.Render("(" + weather + ")"))
	}
	b.WriteString("\n")

	if len(day.Items) == 0 {
		b.WriteString("  ")
		b.WriteString(mutedStyle.Render("Free day"))
		b.WriteString("\n")
		return
	}
	for _, item := range day.Items {
		b.WriteString("  • ")
		b.WriteString(item.Name)
		var details []string
		for _, d := range []string{item.Category, item.Region} {
			if d != "" {
				details = append(details, d)
			}
		}
		if len(details) > 0 {
			b.WriteString(" ")
			b.WriteString(mutedStyle.Render("[" + strings.Join(details, ", ") + "]"))
		}
		if item.VisitDuration != "" {
			b.WriteString(", visit " + item.VisitDuration)
		}
		if item.TravelTimeHours > 0 {
			b.WriteString(fmt.Sprintf(", %.1fh travel", item.TravelTimeHours))
		}
		b.WriteString("\n")
	}
}

func writeList(b *strings.Builder, items []string) {
	for _, item := range items {
		b.WriteString("  • ")
		b.WriteString(item)
		b.WriteString("\n")
	}
}

// Steps renders the marked step list, one step per line
func Steps(steps []models.StepView) string {
	lines := make([]string, 0, len(steps))
	for _, s := range steps {
		switch s.State {
		case constants.StepCompleted:
			lines = append(lines, doneStepStyle.Render("✓ "+s.Label))
		case constants.StepActive:
			lines = append(lines, activeStepStyle.Render("▶ "+s.Label))
		default:
			lines = append(lines, mutedStyle.Render("○ "+s.Label))
		}
	}
	return strings.Join(lines, "\n")
}
