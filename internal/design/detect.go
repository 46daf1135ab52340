package design

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"visionary-spaces/internal/catalog"
	"visionary-spaces/internal/imagedata"
	"visionary-spaces/internal/model"
)

var (
	errMalformed    = errors.New("malformed model output")
	errOutOfCatalog = errors.New("room type not in catalog")
)

// RoomTypeDetector classifies a photo into one catalog room type.
type RoomTypeDetector struct {
	vision model.Vision
	logger *slog.Logger
}

func NewRoomTypeDetector(vision model.Vision, logger *slog.Logger) *RoomTypeDetector {
	return &RoomTypeDetector{vision: vision, logger: orDiscard(logger).With("component", "room-type-detector")}
}

// Detect never fails: every failure yields an empty RoomType.
func (d *RoomTypeDetector) Detect(ctx context.Context, img imagedata.Payload) RoomTypeResult {
	raw, err := d.vision.GenerateStructured(ctx, model.StructuredRequest{
		Image:  img,
		Prompt: roomTypePrompt(),
		Schema: roomTypeSchema,
	})
	if err != nil {
		d.logger.Error("room type detection failed", "err", err)
		return RoomTypeResult{Outcome: OutcomeFailed, Err: err}
	}

	roomType, err := parseRoomType(raw)
	if err != nil {
		d.logger.Warn("room type detection returned unusable output", "err", err)
		if errors.Is(err, errOutOfCatalog) {
			return RoomTypeResult{Outcome: OutcomeEmpty, Err: err}
		}
		return RoomTypeResult{Outcome: OutcomeFailed, Err: err}
	}
	return RoomTypeResult{RoomType: roomType, Outcome: OutcomeFound}
}

func parseRoomType(raw []byte) (string, error) {
	var out struct {
		RoomType *string `json:"roomType"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("%w: %v", errMalformed, err)
	}
	if out.RoomType == nil {
		return "", fmt.Errorf("%w: roomType missing", errMalformed)
	}

	roomType := strings.TrimSpace(*out.RoomType)
	if !catalog.IsRoomType(roomType) {
		return "", fmt.Errorf("%w: %q", errOutOfCatalog, roomType)
	}
	return roomType, nil
}

// ObjectDetector lists the furniture and decor visible in a photo.
type ObjectDetector struct {
	vision model.Vision
	logger *slog.Logger
}

func NewObjectDetector(vision model.Vision, logger *slog.Logger) *ObjectDetector {
	return &ObjectDetector{vision: vision, logger: orDiscard(logger).With("component", "object-detector")}
}

// Detect never fails: every failure yields an empty list. Model order is kept.
func (d *ObjectDetector) Detect(ctx context.Context, img imagedata.Payload) ObjectsResult {
	raw, err := d.vision.GenerateStructured(ctx, model.StructuredRequest{
		Image:  img,
		Prompt: objectsPrompt,
		Schema: objectsSchema,
	})
	if err != nil {
		d.logger.Error("object detection failed", "err", err)
		return ObjectsResult{Objects: []DetectedObject{}, Outcome: OutcomeFailed, Err: err}
	}

	objects, err := parseObjects(raw)
	if err != nil {
		d.logger.Warn("object detection did not return a valid list, using empty list", "err", err)
		return ObjectsResult{Objects: []DetectedObject{}, Outcome: OutcomeFailed, Err: err}
	}
	if len(objects) == 0 {
		return ObjectsResult{Objects: objects, Outcome: OutcomeEmpty}
	}
	return ObjectsResult{Objects: objects, Outcome: OutcomeFound}
}

func parseObjects(raw []byte) ([]DetectedObject, error) {
	var envelope struct {
		DetectedObjects json.RawMessage `json:"detectedObjects"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformed, err)
	}

	list := strings.TrimSpace(string(envelope.DetectedObjects))
	if list == "" || list == "null" {
		return nil, fmt.Errorf("%w: detectedObjects missing", errMalformed)
	}
	if !strings.HasPrefix(list, "[") {
		return nil, fmt.Errorf("%w: detectedObjects is not a list", errMalformed)
	}

	var items []map[string]json.RawMessage
	if err := json.Unmarshal(envelope.DetectedObjects, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformed, err)
	}

	objects := make([]DetectedObject, 0, len(items))
	for i, item := range items {
		var name string
		rawName, ok := item["name"]
		if !ok || strings.TrimSpace(string(rawName)) == "null" {
			return nil, fmt.Errorf("%w: item %d has no name", errMalformed, i)
		}
		if err := json.Unmarshal(rawName, &name); err != nil {
			return nil, fmt.Errorf("%w: item %d name is not a string", errMalformed, i)
		}
		objects = append(objects, DetectedObject{Name: name})
	}
	return objects, nil
}

func orDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return logger
}
