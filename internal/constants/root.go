package constants

import "time"

// JobStatus is the status string reported by the planning agent
type JobStatus string

// TravelMode identifies how the group moves between heritage sites
type TravelMode string

// BudgetRange identifies the per-day spending tier
type BudgetRange string

// StepState marks where a planning step sits relative to the current step
type StepState string

const (
	AppName           = "heritage-planner"
	Version           = "v0.3.0"
	DefaultConfigDir  = "~/.config/heritage-planner"
	DefaultStoreFile  = "heritage-planner.db"
	DefaultConfigFile = "config.yaml"
	EnvPrefix         = "HERITAGE_PLANNER"

	// DateTimeFormat is used for every timestamp persisted by the store
	DateTimeFormat = time.RFC3339

	// Agent service
	AgentAPIPath        = "/api/travel-plan"
	DefaultAgentURL     = "http://localhost:8001" + AgentAPIPath
	AgentDiscoveryPath  = "/api/agent-service-url/"
	AgentEditPath       = "/api/agent"
	DefaultAgentTimeout = 30 * time.Second
	ExportTimeout       = 120 * time.Second
	DefaultUserID       = "1"

	// Polling
	DefaultPollInterval = 2 * time.Second
	DefaultPollCeiling  = 30 * time.Minute

	// Heritage selection limits
	MinHeritageItems = 1
	MaxHeritageItems = 20

	// Group size limits
	MinGroupSize     = 1
	MaxGroupSize     = 50
	DefaultGroupSize = 2
	DefaultDays      = 3

	// Job statuses
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusRunning    JobStatus = "running"
	StatusCompleted  JobStatus = "completed"
	StatusError      JobStatus = "error"
	StatusCancelled  JobStatus = "cancelled"
	StatusUnknown    JobStatus = "unknown"

	// Travel modes
	TravelSelfDrive     TravelMode = "self-drive"
	TravelPublicTransit TravelMode = "public-transit"
	TravelGroupTour     TravelMode = "group-tour"
	TravelIndependent   TravelMode = "independent"

	// Budget tiers
	BudgetEconomy  BudgetRange = "economy"
	BudgetModerate BudgetRange = "moderate"
	BudgetPremium  BudgetRange = "premium"
	BudgetLuxury   BudgetRange = "luxury"

	// Step states
	StepPending   StepState = "pending"
	StepActive    StepState = "active"
	StepCompleted StepState = "completed"

	// Export formats
	ExportPDF  = "pdf"
	ExportJSON = "json"

	// Session keys
	SessionCurrentJob = "current_job_id"
)

// TravelDayOptions lists the day counts offered by the planning dialog
var TravelDayOptions = []int{1, 2, 3, 4, 5, 7, 10, 14}

// TravelModes lists the accepted travel modes in display order
var TravelModes = []TravelMode{TravelSelfDrive, TravelPublicTransit, TravelGroupTour, TravelIndependent}

// BudgetRanges lists the accepted budget tiers in display order
var BudgetRanges = []BudgetRange{BudgetEconomy, BudgetModerate, BudgetPremium, BudgetLuxury}

// IsTerminal reports whether no further progress is expected for the status
func (s JobStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Label returns the dialog label for a travel mode
func (m TravelMode) Label() string {
	switch m {
	case TravelSelfDrive:
		return "Self-drive"
	case TravelPublicTransit:
		return "Public transit"
	case TravelGroupTour:
		return "Group tour"
	case TravelIndependent:
		return "Independent"
	default:
		return string(m)
	}
}

// Label returns the dialog label for a budget tier
func (b BudgetRange) Label() string {
	switch b {
	case BudgetEconomy:
		return "Economy (500-1000 CNY/day)"
	case BudgetModerate:
		return "Moderate (1000-2000 CNY/day)"
	case BudgetPremium:
		return "Premium (2000-5000 CNY/day)"
	case BudgetLuxury:
		return "Luxury (5000+ CNY/day)"
	default:
		return string(b)
	}
}
