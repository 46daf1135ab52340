package design

import (
	"fmt"
	"strings"

	"visionary-spaces/internal/catalog"
	"visionary-spaces/internal/model"
)

func roomTypePrompt() string {
	return fmt.Sprintf(`Analyze the provided image and determine the type of room it depicts.
Your response must be one of the following common room types: %s.
If none of these fit perfectly, choose the closest one.
Only output the room type name in the "roomType" field. Do not add any other text or explanation.`, catalog.RoomTypeList())
}

var roomTypeSchema = &model.Schema{
	Type: model.TypeObject,
	Properties: map[string]*model.Schema{
		"roomType": {
			Type:        model.TypeString,
			Description: "The detected type of the room.",
			Enum:        catalog.RoomTypes,
		},
	},
	Required: []string{"roomType"},
}

const objectsPrompt = `Analyze the provided image of a room.
Identify and list the main furniture and decor items visible in the image.
For each item, provide its name.
The output should be a JSON object with a "detectedObjects" array of objects, where each object has a "name" key.
Example format: {"detectedObjects": [{"name": "Sofa"}, {"name": "Coffee Table"}, {"name": "Floor Lamp"}]}`

var objectsSchema = &model.Schema{
	Type: model.TypeObject,
	Properties: map[string]*model.Schema{
		"detectedObjects": {
			Type:        model.TypeArray,
			Description: "A list of detected objects with their names.",
			Items: &model.Schema{
				Type: model.TypeObject,
				Properties: map[string]*model.Schema{
					"name": {
						Type:        model.TypeString,
						Description: "The name of the detected furniture or decor item, e.g. Sofa, Lamp, Painting.",
					},
				},
				Required: []string{"name"},
			},
		},
	},
	Required: []string{"detectedObjects"},
}

// BuildPrompt composes the image-generation instruction for one variation.
// Optional preferences are included only when set.
func BuildPrompt(req Request) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Generate a high-quality, photorealistic image of a %s. ", req.RoomType)
	fmt.Fprintf(&b, "This room should be redesigned in the %s style. ", req.DesignStyle)

	if palette := strings.TrimSpace(req.ColorPalette); palette != "" {
		if p, ok := catalog.FindPalette(palette); ok {
			fmt.Fprintf(&b, "Prioritize a %s color scheme (%s and %s). ", p.Name, p.Primary, p.Secondary)
		} else {
			fmt.Fprintf(&b, "Prioritize a %s color scheme. ", palette)
		}
	}
	if v := strings.TrimSpace(req.FurnitureStyle); v != "" {
		fmt.Fprintf(&b, "Feature %s furniture. ", v)
	}
	if v := strings.TrimSpace(req.BudgetLevel); v != "" {
		fmt.Fprintf(&b, "The overall aesthetic should feel %s. ", v)
	}
	if v := strings.TrimSpace(req.LightingPreference); v != "" {
		fmt.Fprintf(&b, "The lighting should be %s. ", v)
	}
	if v := strings.TrimSpace(req.Description); v != "" {
		fmt.Fprintf(&b, "Please incorporate these specific details: \"%s\". ", v)
	} else {
		b.WriteString("Focus on a creative and inspiring interpretation of the style, considering all specified preferences. ")
	}

	b.WriteString("Pay attention to realistic lighting, textures, and appropriately scaled furniture. ")
	b.WriteString("The overall scene should be aesthetically pleasing and accurately represent the requested design.")

	return b.String()
}
