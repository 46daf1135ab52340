package workflow

import (
	"time"

	"visionary-spaces/internal/design"
	"visionary-spaces/internal/imagedata"
)

type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseAnalyzing  Phase = "analyzing"
	PhaseFormReady  Phase = "form-ready"
	PhaseGenerating Phase = "generating"
	PhaseGenerated  Phase = "generated"
)

// DetectionStatus tracks one detector independently of the other.
type DetectionStatus string

const (
	DetectionNone    DetectionStatus = "none"
	DetectionPending DetectionStatus = "pending"
	DetectionSettled DetectionStatus = "settled"
)

// Form holds the design preferences. Only RoomType and DesignStyle are required.
type Form struct {
	RoomType           string `json:"room_type"`
	DesignStyle        string `json:"design_style"`
	ColorPalette       string `json:"color_palette,omitempty"`
	FurnitureStyle     string `json:"furniture_style,omitempty"`
	BudgetLevel        string `json:"budget_level,omitempty"`
	LightingPreference string `json:"lighting_preference,omitempty"`
	Description        string `json:"description,omitempty"`
}

// State is the whole per-session record. It is stored as one value and every
// transition replaces it through session.Store.Update.
type State struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`

	Phase        Phase             `json:"phase"`
	Image        imagedata.Payload `json:"image"`
	ImageVersion int64             `json:"image_version"`

	RoomType        string                  `json:"room_type,omitempty"`
	RoomTypeStatus  DetectionStatus         `json:"room_type_status"`
	RoomTypeOutcome design.Outcome          `json:"room_type_outcome,omitempty"`
	Objects         []design.DetectedObject `json:"objects"`
	ObjectsStatus   DetectionStatus         `json:"objects_status"`
	ObjectsOutcome  design.Outcome          `json:"objects_outcome,omitempty"`

	Designs       []imagedata.Payload `json:"designs"`
	Attempted     bool                `json:"attempted"`
	GenerationSeq int64               `json:"generation_seq"`
	LastRequest   *Form               `json:"last_request,omitempty"`
	Draft         Form                `json:"draft"`
	Preview       *int                `json:"preview,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newState(id, name string, now time.Time) State {
	return State{
		ID:             id,
		Name:           name,
		Phase:          PhaseIdle,
		RoomTypeStatus: DetectionNone,
		ObjectsStatus:  DetectionNone,
		Objects:        []design.DetectedObject{},
		Designs:        []imagedata.Payload{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// resetImage drops everything derived from the current image.
func (s *State) resetImage() {
	s.Image = imagedata.Payload{}
	s.ImageVersion++
	s.RoomType = ""
	s.RoomTypeStatus = DetectionNone
	s.RoomTypeOutcome = ""
	s.Objects = []design.DetectedObject{}
	s.ObjectsStatus = DetectionNone
	s.ObjectsOutcome = ""
	s.Designs = []imagedata.Payload{}
	s.Attempted = false
	s.LastRequest = nil
	s.Preview = nil
	s.Phase = PhaseIdle
}

func (s State) HasImage() bool {
	return !s.Image.IsZero()
}

// View is the client facing projection of State. The uploaded image itself is
// not echoed back; designs are rendered as data URIs.
type View struct {
	ID              string                  `json:"id"`
	Name            string                  `json:"name,omitempty"`
	Phase           Phase                   `json:"phase"`
	HasImage        bool                    `json:"has_image"`
	ImageMimeType   string                  `json:"image_mime_type,omitempty"`
	RoomType        string                  `json:"room_type,omitempty"`
	RoomTypeStatus  DetectionStatus         `json:"room_type_status"`
	Objects         []design.DetectedObject `json:"objects"`
	ObjectsStatus   DetectionStatus         `json:"objects_status"`
	Designs         []string                `json:"designs"`
	Attempted       bool                    `json:"attempted"`
	CanGenerateMore bool                    `json:"can_generate_more"`
	LastRequest     *Form                   `json:"last_request,omitempty"`
	Draft           Form                    `json:"draft"`
	Preview         *int                    `json:"preview,omitempty"`
	UpdatedAt       time.Time               `json:"updated_at"`
}

func (s State) View() View {
	designs := make([]string, 0, len(s.Designs))
	for _, d := range s.Designs {
		designs = append(designs, d.String())
	}
	objects := s.Objects
	if objects == nil {
		objects = []design.DetectedObject{}
	}

	return View{
		ID:              s.ID,
		Name:            s.Name,
		Phase:           s.Phase,
		HasImage:        s.HasImage(),
		ImageMimeType:   s.Image.MimeType,
		RoomType:        s.RoomType,
		RoomTypeStatus:  s.RoomTypeStatus,
		Objects:         objects,
		ObjectsStatus:   s.ObjectsStatus,
		Designs:         designs,
		Attempted:       s.Attempted,
		CanGenerateMore: s.LastRequest != nil,
		LastRequest:     s.LastRequest,
		Draft:           s.Draft,
		Preview:         s.Preview,
		UpdatedAt:       s.UpdatedAt,
	}
}
