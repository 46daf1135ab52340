package catalog

import "strings"

// Palette is a named color scheme with its two dominant colors.
type Palette struct {
	Name      string `json:"name"`
	Primary   string `json:"primary"`
	Secondary string `json:"secondary"`
}

var RoomTypes = []string{
	"Living Room",
	"Bedroom",
	"Kitchen",
	"Bathroom",
	"Office",
	"Dining Room",
	"Outdoor Patio",
	"Kids Room",
	"Nursery",
	"Hallway",
	"Basement",
	"Attic",
	"Garage",
	"Entryway",
	"Laundry Room",
	"Sunroom",
	"Home Gym",
	"Playroom",
	"Guest Room",
	"Studio Apartment",
}

var DesignStyles = []string{
	"Minimalist",
	"Scandinavian",
	"Modern",
	"Bohemian (Boho)",
	"Industrial",
	"Farmhouse (Modern Farmhouse)",
	"Coastal (Hamptons)",
	"Mid-Century Modern",
	"Art Deco",
	"Traditional",
	"Contemporary",
	"Rustic",
	"Shabby Chic",
	"Hollywood Glam",
	"Japandi",
	"Biophilic",
	"Maximalist",
	"Eclectic",
	"Transitional",
	"Tropical",
}

var ColorPalettes = []Palette{
	{Name: "Neutral Serenity", Primary: "Light Gray", Secondary: "Beige"},
	{Name: "Cool Blues", Primary: "Navy Blue", Secondary: "Sky Blue"},
	{Name: "Warm Earth Tones", Primary: "Terracotta", Secondary: "Olive Green"},
	{Name: "Monochromatic Grays", Primary: "Charcoal Gray", Secondary: "Light Silver"},
	{Name: "Vibrant Contrast", Primary: "Teal", Secondary: "Mustard Yellow"},
	{Name: "Pastel Dreams", Primary: "Lavender", Secondary: "Mint Green"},
	{Name: "Bold & Dramatic", Primary: "Emerald Green", Secondary: "Deep Plum"},
	{Name: "Earthy Greens", Primary: "Forest Green", Secondary: "Sage Green"},
	{Name: "Sunny Yellows", Primary: "Lemon Yellow", Secondary: "Pale Yellow"},
	{Name: "Romantic Pinks", Primary: "Dusty Rose", Secondary: "Blush Pink"},
}

var FurnitureStyles = []string{
	"Classic & Timeless",
	"Modern & Sleek (IKEA-like)",
	"Luxury & Ornate",
	"Rustic & Reclaimed",
	"Vintage & Retro",
	"Minimalist & Functional",
	"Custom (describe below)",
}

var BudgetLevels = []string{
	"Affordable & Budget-Friendly",
	"Mid-Range & Balanced",
	"Premium & High-End",
}

var LightingPreferences = []string{
	"Warm & Cozy (e.g., soft yellow light)",
	"Cool & Crisp (e.g., bright white light)",
	"Ambient & Diffused (e.g., general, even lighting)",
	"Natural Light Simulation (e.g., bright, airy, sunlit)",
	"Dramatic & Accent (e.g., spotlights, uplighting)",
}

// Options groups every selectable list for transports that render a form.
type Options struct {
	RoomTypes           []string  `json:"room_types"`
	DesignStyles        []string  `json:"design_styles"`
	ColorPalettes       []Palette `json:"color_palettes"`
	FurnitureStyles     []string  `json:"furniture_styles"`
	BudgetLevels        []string  `json:"budget_levels"`
	LightingPreferences []string  `json:"lighting_preferences"`
}

// All returns copies of the option lists so callers cannot mutate the catalog.
func All() Options {
	return Options{
		RoomTypes:           clone(RoomTypes),
		DesignStyles:        clone(DesignStyles),
		ColorPalettes:       append([]Palette(nil), ColorPalettes...),
		FurnitureStyles:     clone(FurnitureStyles),
		BudgetLevels:        clone(BudgetLevels),
		LightingPreferences: clone(LightingPreferences),
	}
}

func IsRoomType(value string) bool { return contains(RoomTypes, value) }

func IsDesignStyle(value string) bool { return contains(DesignStyles, value) }

func IsFurnitureStyle(value string) bool { return contains(FurnitureStyles, value) }

func IsBudgetLevel(value string) bool { return contains(BudgetLevels, value) }

func IsLightingPreference(value string) bool { return contains(LightingPreferences, value) }

func FindPalette(name string) (Palette, bool) {
	for _, p := range ColorPalettes {
		if p.Name == name {
			return p, true
		}
	}
	return Palette{}, false
}

func PaletteNames() []string {
	out := make([]string, 0, len(ColorPalettes))
	for _, p := range ColorPalettes {
		out = append(out, p.Name)
	}
	return out
}

// RoomTypeList renders the room types the way prompts enumerate them.
func RoomTypeList() string {
	return strings.Join(RoomTypes, ", ")
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}

func clone(in []string) []string {
	return append([]string(nil), in...)
}
