package workflow

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"visionary-spaces/internal/catalog"
	"visionary-spaces/internal/design"
	"visionary-spaces/internal/imagedata"
)

const MaxDescriptionLength = 500

// Normalize trims every field.
func (f Form) Normalize() Form {
	return Form{
		RoomType:           strings.TrimSpace(f.RoomType),
		DesignStyle:        strings.TrimSpace(f.DesignStyle),
		ColorPalette:       strings.TrimSpace(f.ColorPalette),
		FurnitureStyle:     strings.TrimSpace(f.FurnitureStyle),
		BudgetLevel:        strings.TrimSpace(f.BudgetLevel),
		LightingPreference: strings.TrimSpace(f.LightingPreference),
		Description:        strings.TrimSpace(f.Description),
	}
}

// ValidateDraft checks the fields that are set. A draft may be incomplete.
func (f Form) ValidateDraft() error {
	checks := []struct {
		field string
		value string
		ok    func(string) bool
	}{
		{"room type", f.RoomType, catalog.IsRoomType},
		{"design style", f.DesignStyle, catalog.IsDesignStyle},
		{"color palette", f.ColorPalette, func(v string) bool { _, ok := catalog.FindPalette(v); return ok }},
		{"furniture style", f.FurnitureStyle, catalog.IsFurnitureStyle},
		{"budget level", f.BudgetLevel, catalog.IsBudgetLevel},
		{"lighting preference", f.LightingPreference, catalog.IsLightingPreference},
	}
	for _, c := range checks {
		if c.value != "" && !c.ok(c.value) {
			return fmt.Errorf("unknown %s %q", c.field, c.value)
		}
	}
	if n := utf8.RuneCountInString(f.Description); n > MaxDescriptionLength {
		return fmt.Errorf("description must be %d characters or less", MaxDescriptionLength)
	}
	return nil
}

// Validate checks a form that is about to be submitted.
func (f Form) Validate() error {
	switch {
	case f.RoomType == "":
		return fmt.Errorf("room type is required")
	case f.DesignStyle == "":
		return fmt.Errorf("design style is required")
	}
	return f.ValidateDraft()
}

func (f Form) request(img imagedata.Payload) design.Request {
	return design.Request{
		Image:              img,
		RoomType:           f.RoomType,
		DesignStyle:        f.DesignStyle,
		ColorPalette:       f.ColorPalette,
		FurnitureStyle:     f.FurnitureStyle,
		BudgetLevel:        f.BudgetLevel,
		LightingPreference: f.LightingPreference,
		Description:        f.Description,
	}
}
