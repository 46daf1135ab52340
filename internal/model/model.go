// Package model describes the hosted generative model as the rest of the
// service sees it: an opaque, possibly failing remote call.
package model

import (
	"context"

	"visionary-spaces/internal/imagedata"
)

// Schema is the JSON schema subset accepted by structured-output endpoints.
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
	Required    []string           `json:"required,omitempty"`
}

const (
	TypeObject = "object"
	TypeArray  = "array"
	TypeString = "string"
)

type StructuredRequest struct {
	Image  imagedata.Payload
	Prompt string
	Schema *Schema
}

type ImageRequest struct {
	Image  imagedata.Payload
	Prompt string
}

type ImageResult struct {
	Text   string
	Images []imagedata.Payload
}

// Vision answers a prompt about an image with raw JSON.
type Vision interface {
	GenerateStructured(ctx context.Context, req StructuredRequest) ([]byte, error)
}

// Renderer produces text and images from an image plus an instruction.
type Renderer interface {
	GenerateImage(ctx context.Context, req ImageRequest) (ImageResult, error)
}
