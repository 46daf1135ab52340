package design

import "visionary-spaces/internal/imagedata"

// Outcome distinguishes "ran and found something", "ran and found nothing"
// and "could not run". Callers that only need the sentinel can ignore it.
type Outcome string

const (
	OutcomeFound  Outcome = "found"
	OutcomeEmpty  Outcome = "empty"
	OutcomeFailed Outcome = "failed"
)

type RoomTypeResult struct {
	RoomType string
	Outcome  Outcome
	Err      error
}

type DetectedObject struct {
	Name string `json:"name"`
}

type ObjectsResult struct {
	Objects []DetectedObject
	Outcome Outcome
	Err     error
}

// Request is one design submission: the image plus every form preference.
type Request struct {
	Image              imagedata.Payload
	RoomType           string
	DesignStyle        string
	ColorPalette       string
	FurnitureStyle     string
	BudgetLevel        string
	LightingPreference string
	Description        string
}

type DesignSet struct {
	Images   []imagedata.Payload
	Attempts int
	Skipped  int
	Outcome  Outcome
	Err      error
}
