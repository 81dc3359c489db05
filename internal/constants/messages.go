package constants

// Dialog validation messages, checked in this order
const (
	MsgSelectDays      = "please select the number of travel days"
	MsgEnterDeparture  = "please enter a departure location"
	MsgInvalidGroup    = "please enter a valid group size (1-50 people)"
	MsgSelectMode      = "please select a travel mode"
	MsgSelectBudget    = "please select a budget range"
	MsgSubmissionError = "form submission failed, please try again"
)

// Planning flow messages
const (
	MsgAlreadyPlanning  = "a plan is already being generated, please wait"
	MsgNoHeritage       = "select at least one heritage item to visit"
	MsgTooManyHeritage  = "too many heritage items selected, at most 20 are supported"
	MsgPlanStarted      = "planning job started"
	MsgPlanCompleted    = "travel plan completed"
	MsgResultMissing    = "planning completed, but the result could not be retrieved"
	MsgPlanFailedPrefix = "planning failed: "
	MsgPlanCancelled    = "planning cancelled"
	MsgPollTimeout      = "no terminal status received before the polling deadline"
	MsgNothingToResume  = "no planning job to resume"
)

// Plan editing messages
const (
	MsgEditSessionStarted = "edit session started"
	MsgEditSessionMissing = "edit session does not exist or has expired"
	MsgEditNoChanges      = "no changes were made to the plan"
)
