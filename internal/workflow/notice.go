package workflow

import (
	"errors"
	"fmt"

	"visionary-spaces/internal/imagedata"
)

type Variant string

const (
	VariantDefault     Variant = "default"
	VariantDestructive Variant = "destructive"
)

// Notice is a transient message for the user. Transports decide how to show it.
type Notice struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Variant     Variant `json:"variant"`
}

func notice(title, description string) Notice {
	return Notice{Title: title, Description: description, Variant: VariantDefault}
}

func alert(title, description string) Notice {
	return Notice{Title: title, Description: description, Variant: VariantDestructive}
}

func uploadNotice(err error) Notice {
	switch {
	case errors.Is(err, imagedata.ErrTooLarge):
		return alert("File Too Large", "Please upload an image smaller than 4MB.")
	case errors.Is(err, imagedata.ErrUnsupportedType):
		return alert("Invalid File Type", "Please upload an image file (e.g., JPG, PNG, WEBP).")
	default:
		return alert("Error Reading File", "Could not read the selected file. Please try again.")
	}
}

func roomTypeNotice(roomType string) Notice {
	if roomType == "" {
		return notice("Room Type Detection", "Could not automatically detect the room type.")
	}
	return notice("Room Type Detected", "AI identified the room as: "+roomType)
}

var (
	noImageNotice      = alert("No Image Uploaded", "Please upload an image of your space first.")
	noPreviousNotice   = notice("No Previous Settings", "Please submit the form once to generate more variations.")
	generatedNotice    = notice("Designs Generated!", "Your visionary spaces are ready.")
	noDesignsNotice    = notice("No Designs Returned", "The AI didn't return any designs. Try adjusting your prompt.")
	generateFailNotice = alert("Error Generating Designs", "An unexpected error occurred. Please try again.")
	objectsEmptyNotice = notice("Object Detection", "No specific objects were identified by the AI.")
	objectsFailNotice  = alert("Object Detection Failed", "Could not identify objects in the image.")
)

func objectsFoundNotice(n int) Notice {
	return notice("Objects Detected", fmt.Sprintf("AI identified %d object(s) in the image.", n))
}

func invalidFormNotice(err error) Notice {
	return alert("Invalid Design Settings", err.Error())
}
