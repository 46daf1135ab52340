package workflow

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"visionary-spaces/internal/design"
	"visionary-spaces/internal/imagedata"
	"visionary-spaces/internal/model"
	"visionary-spaces/internal/session"
)

// fakeModel answers detector prompts with fixed JSON and renders one image per call.
type fakeModel struct {
	mu sync.Mutex

	roomType    string
	objectsJSON string
	roomErr     error
	objectsErr  error
	renderErrAt int
	noImage     bool
	renderGate  chan struct{}

	// objectsStarted makes the room-type call wait until the object call began.
	objectsStarted chan struct{}
	onDetect       func()
	onRender       func()

	visionCalls atomic.Int32
	renderCalls atomic.Int32
}

func (f *fakeModel) GenerateStructured(ctx context.Context, req model.StructuredRequest) ([]byte, error) {
	f.visionCalls.Add(1)
	if f.onDetect != nil {
		f.onDetect()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if strings.Contains(req.Prompt, "roomType") {
		if f.objectsStarted != nil {
			select {
			case <-f.objectsStarted:
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(2 * time.Second):
				return nil, errors.New("object detection never started")
			}
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.roomErr != nil {
			return nil, f.roomErr
		}
		return []byte(`{"roomType":"` + f.roomType + `"}`), nil
	}

	if f.objectsStarted != nil {
		close(f.objectsStarted)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.objectsErr != nil {
		return nil, f.objectsErr
	}
	return []byte(f.objectsJSON), nil
}

func (f *fakeModel) GenerateImage(ctx context.Context, req model.ImageRequest) (model.ImageResult, error) {
	n := int(f.renderCalls.Add(1))
	if f.onRender != nil {
		f.onRender()
	}
	if f.renderGate != nil {
		select {
		case <-f.renderGate:
		case <-ctx.Done():
			return model.ImageResult{}, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return model.ImageResult{}, err
	}
	if f.renderErrAt == n {
		return model.ImageResult{}, errors.New("upstream unavailable")
	}
	if f.noImage {
		return model.ImageResult{Text: "no image this time"}, nil
	}
	return model.ImageResult{Images: []imagedata.Payload{imagedata.FromBytes("image/jpeg", []byte{byte(n)})}}, nil
}

func newTestController(t *testing.T, m *fakeModel) *Controller {
	t.Helper()
	store := session.NewMemory[State](session.Config{TTL: time.Minute})
	t.Cleanup(func() { _ = store.Close(context.Background()) })

	return NewController(Options{
		Store:     store,
		Validator: imagedata.NewValidator(imagedata.MaxUploadBytes),
		RoomTypes: design.NewRoomTypeDetector(m, nil),
		Objects:   design.NewObjectDetector(m, nil),
		Generator: design.NewGenerator(m, design.GeneratorOptions{}),
	})
}

func newRedisController(t *testing.T, m *fakeModel) *Controller {
	t.Helper()
	mr := miniredis.RunT(t)
	store, err := session.NewRedis[State](session.Config{
		TTL:   time.Minute,
		Redis: &session.RedisConfig{Addr: mr.Addr()},
	})
	if err != nil {
		t.Fatalf("NewRedis: %v", err)
	}
	t.Cleanup(func() { _ = store.Close(context.Background()) })

	return NewController(Options{
		Store:     store,
		RoomTypes: design.NewRoomTypeDetector(m, nil),
		Objects:   design.NewObjectDetector(m, nil),
		Generator: design.NewGenerator(m, design.GeneratorOptions{}),
	})
}

func jpegUpload(t *testing.T) imagedata.Upload {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		img.Set(x, x, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return imagedata.Upload{Data: buf.Bytes(), DeclaredMime: "image/jpeg", Filename: "room.jpg"}
}

func newSession(t *testing.T, c *Controller) string {
	t.Helper()
	res, err := c.NewSession(context.Background(), "Ada")
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return res.View.ID
}

func titles(notices []Notice) []string {
	out := make([]string, 0, len(notices))
	for _, n := range notices {
		out = append(out, n.Title)
	}
	return out
}

func TestSubmitWithoutImage(t *testing.T) {
	m := &fakeModel{}
	c := newTestController(t, m)
	id := newSession(t, c)
	before, _ := c.Get(context.Background(), id)

	res, err := c.Submit(context.Background(), id, Form{RoomType: "Kitchen", DesignStyle: "Modern"})
	if !errors.Is(err, ErrNoImage) {
		t.Fatalf("expected ErrNoImage, got %v", err)
	}
	if len(res.Notices) != 1 || res.Notices[0].Title != "No Image Uploaded" {
		t.Fatalf("expected one notice, got %v", titles(res.Notices))
	}
	if m.visionCalls.Load() != 0 || m.renderCalls.Load() != 0 {
		t.Fatal("no remote call may be made without an image")
	}

	after, _ := c.Get(context.Background(), id)
	if after.View.Attempted || after.View.LastRequest != nil || !after.View.UpdatedAt.Equal(before.View.UpdatedAt) {
		t.Fatalf("state must not change: %+v", after.View)
	}
}

func TestUploadAnalyzeAndGenerate(t *testing.T) {
	m := &fakeModel{roomType: "Living Room", objectsJSON: `{"detectedObjects":[{"name":"Sofa"},{"name":"Rug"}]}`}
	c := newTestController(t, m)
	id := newSession(t, c)
	ctx := context.Background()

	res, err := c.UploadImage(ctx, id, jpegUpload(t))
	if err != nil {
		t.Fatalf("UploadImage: %v", err)
	}
	v := res.View
	if v.RoomType != "Living Room" || v.Draft.RoomType != "Living Room" {
		t.Fatalf("room type should be detected and pre-filled: %+v", v)
	}
	if len(v.Objects) != 2 || v.Objects[0].Name != "Sofa" {
		t.Fatalf("unexpected objects: %+v", v.Objects)
	}
	if v.Phase != PhaseFormReady || v.RoomTypeStatus != DetectionSettled || v.ObjectsStatus != DetectionSettled {
		t.Fatalf("unexpected phase or statuses: %+v", v)
	}
	if got := titles(res.Notices); len(got) != 2 || got[0] != "Room Type Detected" || got[1] != "Objects Detected" {
		t.Fatalf("unexpected notices: %v", got)
	}
	if m.visionCalls.Load() != 2 {
		t.Fatalf("expected two detector calls, got %d", m.visionCalls.Load())
	}

	res, err = c.Submit(ctx, id, Form{RoomType: v.Draft.RoomType, DesignStyle: "Minimalist"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if m.renderCalls.Load() != 5 {
		t.Fatalf("expected 5 render calls, got %d", m.renderCalls.Load())
	}
	if len(res.View.Designs) != 5 || res.View.Phase != PhaseGenerated || !res.View.Attempted {
		t.Fatalf("unexpected generated view: %+v", res.View)
	}
	if !strings.HasPrefix(res.View.Designs[0], "data:image/jpeg;base64,") {
		t.Fatalf("designs should be data URIs: %s", res.View.Designs[0])
	}
	if res.Notices[0].Title != "Designs Generated!" {
		t.Fatalf("unexpected notice: %v", titles(res.Notices))
	}
	if res.View.LastRequest == nil || res.View.LastRequest.DesignStyle != "Minimalist" || !res.View.CanGenerateMore {
		t.Fatalf("last request should be retained: %+v", res.View.LastRequest)
	}
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	m := &fakeModel{}
	c := newTestController(t, m)
	id := newSession(t, c)

	data := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 5<<20)...)
	res, err := c.UploadImage(context.Background(), id, imagedata.Upload{Data: data, DeclaredMime: "image/png"})
	if !errors.Is(err, ErrInvalidUpload) {
		t.Fatalf("expected ErrInvalidUpload, got %v", err)
	}
	if len(res.Notices) != 1 || res.Notices[0].Title != "File Too Large" {
		t.Fatalf("unexpected notices: %v", titles(res.Notices))
	}
	if res.View.HasImage || res.View.Phase != PhaseIdle {
		t.Fatalf("state must be untouched: %+v", res.View)
	}
	if m.visionCalls.Load() != 0 || m.renderCalls.Load() != 0 {
		t.Fatal("no remote call may run for a rejected upload")
	}
}

func TestUploadRejectsNonImage(t *testing.T) {
	c := newTestController(t, &fakeModel{})
	id := newSession(t, c)

	res, err := c.UploadImage(context.Background(), id, imagedata.Upload{Data: []byte("%PDF-1.7"), DeclaredMime: "application/pdf"})
	if !errors.Is(err, ErrInvalidUpload) {
		t.Fatalf("expected ErrInvalidUpload, got %v", err)
	}
	if res.Notices[0].Title != "Invalid File Type" {
		t.Fatalf("unexpected notice: %v", titles(res.Notices))
	}
}

func TestGenerateMoreWithoutPreviousRequest(t *testing.T) {
	m := &fakeModel{roomType: "Office", objectsJSON: `{"detectedObjects":[]}`}
	c := newTestController(t, m)
	id := newSession(t, c)
	ctx := context.Background()

	if _, err := c.UploadImage(ctx, id, jpegUpload(t)); err != nil {
		t.Fatalf("UploadImage: %v", err)
	}
	before, _ := c.Get(ctx, id)
	calls := m.visionCalls.Load()

	res, err := c.GenerateMore(ctx, id)
	if !errors.Is(err, ErrNoPreviousRequest) {
		t.Fatalf("expected ErrNoPreviousRequest, got %v", err)
	}
	if len(res.Notices) != 1 || res.Notices[0].Title != "No Previous Settings" {
		t.Fatalf("unexpected notices: %v", titles(res.Notices))
	}
	if m.renderCalls.Load() != 0 || m.visionCalls.Load() != calls {
		t.Fatal("generate more without settings must not call the model")
	}
	after, _ := c.Get(ctx, id)
	if !after.View.UpdatedAt.Equal(before.View.UpdatedAt) {
		t.Fatal("state must not change")
	}
}

func TestGenerateMoreReplaysLastRequest(t *testing.T) {
	m := &fakeModel{roomType: "Kitchen", objectsJSON: `{"detectedObjects":[]}`}
	c := newTestController(t, m)
	id := newSession(t, c)
	ctx := context.Background()

	if _, err := c.UploadImage(ctx, id, jpegUpload(t)); err != nil {
		t.Fatalf("UploadImage: %v", err)
	}
	form := Form{RoomType: "Kitchen", DesignStyle: "Rustic", ColorPalette: "Warm Earth Tones", Description: "keep the island"}
	if _, err := c.Submit(ctx, id, form); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	// Draft edits after submit must not leak into the replay.
	if _, err := c.UpdateDraft(ctx, id, Form{RoomType: "Kitchen", DesignStyle: "Modern"}); err != nil {
		t.Fatalf("UpdateDraft: %v", err)
	}

	res, err := c.GenerateMore(ctx, id)
	if err != nil {
		t.Fatalf("GenerateMore: %v", err)
	}
	if m.renderCalls.Load() != 10 {
		t.Fatalf("expected 10 render calls in total, got %d", m.renderCalls.Load())
	}
	if *res.View.LastRequest != form {
		t.Fatalf("replayed request changed: %+v", res.View.LastRequest)
	}
}

func TestSubmitEmptyAndFailedGeneration(t *testing.T) {
	ctx := context.Background()

	empty := &fakeModel{roomType: "Bedroom", objectsJSON: `{}`, noImage: true}
	c := newTestController(t, empty)
	id := newSession(t, c)
	res, err := c.UploadImage(ctx, id, jpegUpload(t))
	if err != nil {
		t.Fatalf("UploadImage: %v", err)
	}
	if got := titles(res.Notices); got[1] != "Object Detection Failed" {
		t.Fatalf("missing list should count as a failed detection: %v", got)
	}
	res, err = c.Submit(ctx, id, Form{RoomType: "Bedroom", DesignStyle: "Bohemian (Boho)"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(res.View.Designs) != 0 || !res.View.Attempted || res.Notices[0].Title != "No Designs Returned" {
		t.Fatalf("unexpected empty result: %+v %v", res.View, titles(res.Notices))
	}

	failing := &fakeModel{roomType: "Bedroom", objectsJSON: `{"detectedObjects":[]}`, renderErrAt: 3}
	c = newTestController(t, failing)
	id = newSession(t, c)
	if _, err := c.UploadImage(ctx, id, jpegUpload(t)); err != nil {
		t.Fatalf("UploadImage: %v", err)
	}
	res, err = c.Submit(ctx, id, Form{RoomType: "Bedroom", DesignStyle: "Bohemian (Boho)"})
	if err != nil {
		t.Fatalf("generation failures are not errors: %v", err)
	}
	if len(res.View.Designs) != 0 || res.Notices[0].Title != "Error Generating Designs" {
		t.Fatalf("failure must discard partial designs: %+v %v", res.View, titles(res.Notices))
	}
}

func TestSubmitRejectsInvalidForm(t *testing.T) {
	m := &fakeModel{roomType: "Kitchen", objectsJSON: `{"detectedObjects":[]}`}
	c := newTestController(t, m)
	id := newSession(t, c)
	ctx := context.Background()
	if _, err := c.UploadImage(ctx, id, jpegUpload(t)); err != nil {
		t.Fatalf("UploadImage: %v", err)
	}

	tests := []Form{
		{DesignStyle: "Modern"},
		{RoomType: "Kitchen"},
		{RoomType: "Spaceship", DesignStyle: "Modern"},
		{RoomType: "Kitchen", DesignStyle: "Modern", BudgetLevel: "Unlimited"},
		{RoomType: "Kitchen", DesignStyle: "Modern", Description: strings.Repeat("x", MaxDescriptionLength+1)},
	}
	for _, form := range tests {
		res, err := c.Submit(ctx, id, form)
		if !errors.Is(err, ErrInvalidForm) {
			t.Errorf("form %+v: expected ErrInvalidForm, got %v", form, err)
		}
		if len(res.Notices) != 1 {
			t.Errorf("form %+v: expected a notice", form)
		}
	}
	if m.renderCalls.Load() != 0 {
		t.Fatal("invalid forms must not reach the model")
	}
}

func TestClearImageResetsDerivedState(t *testing.T) {
	m := &fakeModel{roomType: "Bathroom", objectsJSON: `{"detectedObjects":[{"name":"Tub"}]}`}
	c := newTestController(t, m)
	id := newSession(t, c)
	ctx := context.Background()

	if _, err := c.UploadImage(ctx, id, jpegUpload(t)); err != nil {
		t.Fatalf("UploadImage: %v", err)
	}
	if _, err := c.Submit(ctx, id, Form{RoomType: "Bathroom", DesignStyle: "Coastal (Hamptons)"}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := c.OpenPreview(ctx, id, 1); err != nil {
		t.Fatalf("OpenPreview: %v", err)
	}

	res, err := c.ClearImage(ctx, id)
	if err != nil {
		t.Fatalf("ClearImage: %v", err)
	}
	v := res.View
	if v.HasImage || v.Phase != PhaseIdle || v.RoomType != "" || len(v.Objects) != 0 ||
		len(v.Designs) != 0 || v.Attempted || v.LastRequest != nil || v.Preview != nil {
		t.Fatalf("clear should reset derived state: %+v", v)
	}
	if v.Draft.DesignStyle != "Coastal (Hamptons)" {
		t.Fatalf("draft should keep its values: %+v", v.Draft)
	}
}

func TestPreviewAndDownload(t *testing.T) {
	m := &fakeModel{roomType: "Office", objectsJSON: `{"detectedObjects":[]}`}
	c := newTestController(t, m)
	id := newSession(t, c)
	ctx := context.Background()

	if _, err := c.UploadImage(ctx, id, jpegUpload(t)); err != nil {
		t.Fatalf("UploadImage: %v", err)
	}
	if _, err := c.Submit(ctx, id, Form{RoomType: "Office", DesignStyle: "Industrial"}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	res, err := c.OpenPreview(ctx, id, 2)
	if err != nil {
		t.Fatalf("OpenPreview: %v", err)
	}
	if res.View.Preview == nil || *res.View.Preview != 2 {
		t.Fatalf("preview not set: %+v", res.View.Preview)
	}
	if _, err := c.OpenPreview(ctx, id, 9); !errors.Is(err, ErrDesignNotFound) {
		t.Fatalf("expected ErrDesignNotFound, got %v", err)
	}

	res, err = c.ClosePreview(ctx, id)
	if err != nil {
		t.Fatalf("ClosePreview: %v", err)
	}
	if res.View.Preview != nil || len(res.View.Designs) != 5 {
		t.Fatalf("closing the preview only clears the pointer: %+v", res.View)
	}

	dl, err := c.Download(ctx, id, 2)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if dl.FileName != "visionary_space_generated_3.jpeg" || dl.MimeType != "image/jpeg" || len(dl.Data) != 1 {
		t.Fatalf("unexpected download: %+v", dl)
	}
	if _, err := c.Download(ctx, id, 5); !errors.Is(err, ErrDesignNotFound) {
		t.Fatalf("expected ErrDesignNotFound, got %v", err)
	}
}

func TestNewUploadSupersedesGeneration(t *testing.T) {
	m := &fakeModel{roomType: "Kitchen", objectsJSON: `{"detectedObjects":[]}`, renderGate: make(chan struct{})}
	c := newTestController(t, m)
	id := newSession(t, c)
	ctx := context.Background()

	if _, err := c.UploadImage(ctx, id, jpegUpload(t)); err != nil {
		t.Fatalf("UploadImage: %v", err)
	}

	done := make(chan Result, 1)
	go func() {
		res, _ := c.Submit(ctx, id, Form{RoomType: "Kitchen", DesignStyle: "Modern"})
		done <- res
	}()

	for m.renderCalls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	if _, err := c.ClearImage(ctx, id); err != nil {
		t.Fatalf("ClearImage: %v", err)
	}
	close(m.renderGate)

	res := <-done
	if len(res.View.Designs) != 0 || res.View.HasImage || res.View.Phase != PhaseIdle {
		t.Fatalf("results for a cleared image must be discarded: %+v", res.View)
	}
}

func TestSessionLifecycle(t *testing.T) {
	c := newTestController(t, &fakeModel{})
	ctx := context.Background()

	res, err := c.Ensure(ctx, "tg-42", "Ada")
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if res.View.ID != "tg-42" || res.View.Name != "Ada" || res.View.Phase != PhaseIdle {
		t.Fatalf("unexpected view: %+v", res.View)
	}
	if _, err := c.UpdateDraft(ctx, "tg-42", Form{DesignStyle: "Scandinavian"}); err != nil {
		t.Fatalf("UpdateDraft: %v", err)
	}
	res, err = c.Ensure(ctx, "tg-42", "Someone Else")
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if res.View.Name != "Ada" || res.View.Draft.DesignStyle != "Scandinavian" {
		t.Fatalf("Ensure must not recreate an existing session: %+v", res.View)
	}

	if err := c.End(ctx, "tg-42"); err != nil {
		t.Fatalf("End: %v", err)
	}
	if _, err := c.Get(ctx, "tg-42"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if _, err := c.UpdateDraft(ctx, "tg-42", Form{}); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestDetectorsSettleIndependently(t *testing.T) {
	tests := []struct {
		name        string
		roomErr     error
		objectsErr  error
		want        []string
		wantRoom    string
		wantObjects int
	}{
		{
			name:        "room type call fails",
			roomErr:     errors.New("quota exceeded"),
			want:        []string{"Room Type Detection", "Objects Detected"},
			wantObjects: 1,
		},
		{
			name:       "object call fails",
			objectsErr: errors.New("quota exceeded"),
			want:       []string{"Room Type Detected", "Object Detection Failed"},
			wantRoom:   "Office",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &fakeModel{
				roomType:    "Office",
				objectsJSON: `{"detectedObjects":[{"name":"Desk"}]}`,
				roomErr:     tt.roomErr,
				objectsErr:  tt.objectsErr,
			}
			c := newTestController(t, m)
			id := newSession(t, c)

			res, err := c.UploadImage(context.Background(), id, jpegUpload(t))
			if err != nil {
				t.Fatalf("detector failures are not errors: %v", err)
			}
			got := titles(res.Notices)
			if len(got) != 2 || got[0] != tt.want[0] || got[1] != tt.want[1] {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}

			v := res.View
			if v.RoomType != tt.wantRoom || v.Draft.RoomType != tt.wantRoom || len(v.Objects) != tt.wantObjects {
				t.Fatalf("unexpected analysis: %+v", v)
			}
			if v.RoomTypeStatus != DetectionSettled || v.ObjectsStatus != DetectionSettled || v.Phase != PhaseFormReady {
				t.Fatalf("both detectors must settle: %+v", v)
			}
		})
	}
}

func TestDetectorsRunConcurrently(t *testing.T) {
	m := &fakeModel{
		roomType:       "Office",
		objectsJSON:    `{"detectedObjects":[{"name":"Desk"}]}`,
		objectsStarted: make(chan struct{}),
	}
	c := newTestController(t, m)
	id := newSession(t, c)

	res, err := c.UploadImage(context.Background(), id, jpegUpload(t))
	if err != nil {
		t.Fatalf("UploadImage: %v", err)
	}
	if got := titles(res.Notices); got[0] != "Room Type Detected" || res.View.RoomType != "Office" {
		t.Fatalf("room type call should have been released by the object call: %v", got)
	}
}

func TestSettlesAfterRequestContextEnds(t *testing.T) {
	m := &fakeModel{roomType: "Office", objectsJSON: `{"detectedObjects":[]}`}
	c := newRedisController(t, m)
	id := newSession(t, c)

	uploadCtx, cancelUpload := context.WithCancel(context.Background())
	defer cancelUpload()
	m.onDetect = cancelUpload

	res, err := c.UploadImage(uploadCtx, id, jpegUpload(t))
	if err != nil {
		t.Fatalf("an expired upload request must still settle: %v", err)
	}
	if res.View.RoomTypeStatus != DetectionSettled || res.View.ObjectsStatus != DetectionSettled {
		t.Fatalf("detections left pending: %+v", res.View)
	}
	if got := titles(res.Notices); got[0] != "Room Type Detection" || got[1] != "Object Detection Failed" {
		t.Fatalf("unexpected notices: %v", got)
	}

	m.onDetect = nil
	if _, err := c.UploadImage(context.Background(), id, jpegUpload(t)); err != nil {
		t.Fatalf("UploadImage: %v", err)
	}

	genCtx, cancelGen := context.WithCancel(context.Background())
	defer cancelGen()
	m.onRender = cancelGen

	res, err = c.Submit(genCtx, id, Form{RoomType: "Office", DesignStyle: "Modern"})
	if err != nil {
		t.Fatalf("an expired generation request must still settle: %v", err)
	}
	if res.View.Phase != PhaseGenerated || len(res.View.Designs) != 0 {
		t.Fatalf("unexpected state: %+v", res.View)
	}
	if len(res.Notices) != 1 || res.Notices[0].Title != "Error Generating Designs" {
		t.Fatalf("unexpected notices: %v", titles(res.Notices))
	}

	stored, err := c.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.View.Phase != PhaseGenerated {
		t.Fatalf("stored session stuck in %s", stored.View.Phase)
	}
}
