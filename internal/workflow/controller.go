package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"visionary-spaces/internal/design"
	"visionary-spaces/internal/imagedata"
	"visionary-spaces/internal/session"
)

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrInvalidUpload     = errors.New("invalid upload")
	ErrNoImage           = errors.New("no image uploaded")
	ErrInvalidForm       = errors.New("invalid design form")
	ErrNoPreviousRequest = errors.New("no previous design request")
	ErrDesignNotFound    = errors.New("design not found")
)

// errSuperseded aborts a store update whose result belongs to an older image
// or an older generation.
var errSuperseded = errors.New("superseded")

type RoomTypeDetector interface {
	Detect(ctx context.Context, img imagedata.Payload) design.RoomTypeResult
}

type ObjectDetector interface {
	Detect(ctx context.Context, img imagedata.Payload) design.ObjectsResult
}

type DesignGenerator interface {
	Generate(ctx context.Context, req design.Request) design.DesignSet
}

type Options struct {
	Store     session.Store[State]
	Validator *imagedata.Validator
	RoomTypes RoomTypeDetector
	Objects   ObjectDetector
	Generator DesignGenerator
	Logger    *slog.Logger
}

// Result is what every operation hands back to a transport.
type Result struct {
	View    View     `json:"session"`
	Notices []Notice `json:"notices"`
}

// Download is one generated design ready to be written out as a file.
type Download struct {
	FileName string
	MimeType string
	Data     []byte
}

// Controller drives one session through upload, analysis and generation.
// Remote calls never run inside a store update.
type Controller struct {
	store     session.Store[State]
	validator *imagedata.Validator
	roomTypes RoomTypeDetector
	objects   ObjectDetector
	generator DesignGenerator
	logger    *slog.Logger
	now       func() time.Time
}

func NewController(opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	validator := opts.Validator
	if validator == nil {
		validator = imagedata.NewValidator(imagedata.MaxUploadBytes)
	}
	return &Controller{
		store:     opts.Store,
		validator: validator,
		roomTypes: opts.RoomTypes,
		objects:   opts.Objects,
		generator: opts.Generator,
		logger:    logger.With("component", "workflow"),
		now:       time.Now,
	}
}

func (c *Controller) NewSession(ctx context.Context, name string) (Result, error) {
	return c.create(ctx, uuid.NewString(), name)
}

// Ensure returns the session with the given id, creating it when missing.
// Chat front ends use it with a stable per-user id.
func (c *Controller) Ensure(ctx context.Context, id, name string) (Result, error) {
	st, err := c.store.Get(ctx, id)
	if err == nil {
		return Result{View: st.View()}, nil
	}
	if !errors.Is(err, session.ErrNotFound) {
		return Result{}, fmt.Errorf("load session: %w", err)
	}
	return c.create(ctx, id, name)
}

func (c *Controller) create(ctx context.Context, id, name string) (Result, error) {
	st := newState(id, strings.TrimSpace(name), c.now())
	if err := c.store.Create(ctx, id, st); err != nil {
		return Result{}, fmt.Errorf("create session: %w", err)
	}
	c.logger.Info("session created", "session", id)
	return Result{View: st.View()}, nil
}

func (c *Controller) Get(ctx context.Context, id string) (Result, error) {
	st, err := c.load(ctx, id)
	if err != nil {
		return Result{}, err
	}
	return Result{View: st.View()}, nil
}

func (c *Controller) End(ctx context.Context, id string) error {
	if _, err := c.load(ctx, id); err != nil {
		return err
	}
	if err := c.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// UploadImage validates the upload, resets everything derived from a previous
// image and runs both detectors. An invalid upload leaves the state untouched.
func (c *Controller) UploadImage(ctx context.Context, id string, upload imagedata.Upload) (Result, error) {
	current, err := c.load(ctx, id)
	if err != nil {
		return Result{}, err
	}

	img, err := c.validator.Validate(upload)
	if err != nil {
		c.logger.Warn("upload rejected", "session", id, "file", upload.Filename, "err", err)
		return Result{View: current.View(), Notices: []Notice{uploadNotice(err)}}, fmt.Errorf("%w: %v", ErrInvalidUpload, err)
	}

	st, err := c.update(ctx, id, func(s *State) error {
		s.resetImage()
		s.Image = img
		s.Phase = PhaseAnalyzing
		s.RoomTypeStatus = DetectionPending
		s.ObjectsStatus = DetectionPending
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	version := st.ImageVersion

	var (
		room    design.RoomTypeResult
		objects design.ObjectsResult
	)
	// Both goroutines always return nil so one detector never cancels the other.
	var eg errgroup.Group
	eg.Go(func() error {
		room = c.roomTypes.Detect(ctx, img)
		return nil
	})
	eg.Go(func() error {
		objects = c.objects.Detect(ctx, img)
		return nil
	})
	_ = eg.Wait()

	// The request may have expired while the detectors ran; their outcome
	// must still be written so the session does not stay pending.
	settleCtx := context.WithoutCancel(ctx)
	st, err = c.update(settleCtx, id, func(s *State) error {
		if s.ImageVersion != version {
			return errSuperseded
		}
		s.RoomType = room.RoomType
		s.RoomTypeOutcome = room.Outcome
		s.RoomTypeStatus = DetectionSettled
		s.Objects = objects.Objects
		s.ObjectsOutcome = objects.Outcome
		s.ObjectsStatus = DetectionSettled
		if room.RoomType != "" {
			s.Draft.RoomType = room.RoomType
		}
		if s.Phase == PhaseAnalyzing {
			s.Phase = PhaseFormReady
		}
		return nil
	})
	if errors.Is(err, errSuperseded) {
		c.logger.Info("analysis superseded by a newer image", "session", id, "image_version", version)
		return c.Get(settleCtx, id)
	}
	if err != nil {
		return Result{}, err
	}

	c.logger.Info("image analyzed",
		"session", id,
		"room_type", room.RoomType,
		"room_type_outcome", room.Outcome,
		"objects", len(objects.Objects),
		"objects_outcome", objects.Outcome)

	return Result{View: st.View(), Notices: analysisNotices(room, objects)}, nil
}

func analysisNotices(room design.RoomTypeResult, objects design.ObjectsResult) []Notice {
	notices := []Notice{roomTypeNotice(room.RoomType)}
	switch objects.Outcome {
	case design.OutcomeFound:
		notices = append(notices, objectsFoundNotice(len(objects.Objects)))
	case design.OutcomeEmpty:
		notices = append(notices, objectsEmptyNotice)
	default:
		notices = append(notices, objectsFailNotice)
	}
	return notices
}

// RejectUpload reports an upload the transport could not read in full, with
// the notice UploadImage gives for the same cause. The state is left as is.
func (c *Controller) RejectUpload(ctx context.Context, id string, cause error) (Result, error) {
	current, err := c.load(ctx, id)
	if err != nil {
		return Result{}, err
	}
	c.logger.Warn("upload rejected", "session", id, "err", cause)
	return Result{View: current.View(), Notices: []Notice{uploadNotice(cause)}}, fmt.Errorf("%w: %v", ErrInvalidUpload, cause)
}

// ClearImage returns the session to idle. The draft form keeps its values.
func (c *Controller) ClearImage(ctx context.Context, id string) (Result, error) {
	st, err := c.update(ctx, id, func(s *State) error {
		s.resetImage()
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return Result{View: st.View()}, nil
}

func (c *Controller) UpdateDraft(ctx context.Context, id string, form Form) (Result, error) {
	form = form.Normalize()
	if err := form.ValidateDraft(); err != nil {
		current, loadErr := c.load(ctx, id)
		if loadErr != nil {
			return Result{}, loadErr
		}
		return Result{View: current.View(), Notices: []Notice{invalidFormNotice(err)}}, fmt.Errorf("%w: %v", ErrInvalidForm, err)
	}

	st, err := c.update(ctx, id, func(s *State) error {
		s.Draft = form
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return Result{View: st.View()}, nil
}

// Submit runs the generator for form against the current image. Without an
// image nothing is dispatched and the state is left as is.
func (c *Controller) Submit(ctx context.Context, id string, form Form) (Result, error) {
	current, err := c.load(ctx, id)
	if err != nil {
		return Result{}, err
	}
	if !current.HasImage() {
		return Result{View: current.View(), Notices: []Notice{noImageNotice}}, ErrNoImage
	}

	form = form.Normalize()
	if err := form.Validate(); err != nil {
		return Result{View: current.View(), Notices: []Notice{invalidFormNotice(err)}}, fmt.Errorf("%w: %v", ErrInvalidForm, err)
	}

	var img imagedata.Payload
	st, err := c.update(ctx, id, func(s *State) error {
		if !s.HasImage() {
			return ErrNoImage
		}
		submitted := form
		s.LastRequest = &submitted
		s.Draft = form
		s.Attempted = true
		s.Designs = []imagedata.Payload{}
		s.Preview = nil
		s.Phase = PhaseGenerating
		s.GenerationSeq++
		img = s.Image
		return nil
	})
	if errors.Is(err, ErrNoImage) {
		return Result{View: current.View(), Notices: []Notice{noImageNotice}}, ErrNoImage
	}
	if err != nil {
		return Result{}, err
	}
	version, seq := st.ImageVersion, st.GenerationSeq

	c.logger.Info("design generation started",
		"session", id,
		"room_type", form.RoomType,
		"design_style", form.DesignStyle,
		"generation", seq)

	set := c.generator.Generate(ctx, form.request(img))

	settleCtx := context.WithoutCancel(ctx)
	st, err = c.update(settleCtx, id, func(s *State) error {
		if s.ImageVersion != version || s.GenerationSeq != seq {
			return errSuperseded
		}
		s.Designs = set.Images
		s.Phase = PhaseGenerated
		return nil
	})
	if errors.Is(err, errSuperseded) {
		c.logger.Info("generation superseded", "session", id, "generation", seq)
		return c.Get(settleCtx, id)
	}
	if err != nil {
		return Result{}, err
	}

	var n Notice
	switch {
	case len(set.Images) > 0:
		n = generatedNotice
	case set.Outcome == design.OutcomeFailed:
		n = generateFailNotice
	default:
		n = noDesignsNotice
	}
	return Result{View: st.View(), Notices: []Notice{n}}, nil
}

// GenerateMore replays the last submitted form verbatim.
func (c *Controller) GenerateMore(ctx context.Context, id string) (Result, error) {
	current, err := c.load(ctx, id)
	if err != nil {
		return Result{}, err
	}
	if current.LastRequest == nil {
		return Result{View: current.View(), Notices: []Notice{noPreviousNotice}}, ErrNoPreviousRequest
	}
	return c.Submit(ctx, id, *current.LastRequest)
}

// OpenPreview points the preview at the index-th (zero based) design.
func (c *Controller) OpenPreview(ctx context.Context, id string, index int) (Result, error) {
	st, err := c.update(ctx, id, func(s *State) error {
		if index < 0 || index >= len(s.Designs) {
			return ErrDesignNotFound
		}
		i := index
		s.Preview = &i
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return Result{View: st.View()}, nil
}

func (c *Controller) ClosePreview(ctx context.Context, id string) (Result, error) {
	st, err := c.update(ctx, id, func(s *State) error {
		s.Preview = nil
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return Result{View: st.View()}, nil
}

func (c *Controller) Download(ctx context.Context, id string, index int) (Download, error) {
	st, err := c.load(ctx, id)
	if err != nil {
		return Download{}, err
	}
	if index < 0 || index >= len(st.Designs) {
		return Download{}, ErrDesignNotFound
	}

	p := st.Designs[index]
	data, err := p.Bytes()
	if err != nil {
		return Download{}, fmt.Errorf("decode design %d: %w", index+1, err)
	}
	return Download{
		FileName: imagedata.DownloadName(index, p),
		MimeType: p.MimeType,
		Data:     data,
	}, nil
}

// Stats reports the session store's counters for health checks.
func (c *Controller) Stats(ctx context.Context) (map[string]any, error) {
	stats, err := c.store.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("session stats: %w", err)
	}
	return stats, nil
}

func (c *Controller) load(ctx context.Context, id string) (State, error) {
	st, err := c.store.Get(ctx, id)
	if errors.Is(err, session.ErrNotFound) {
		return State{}, ErrSessionNotFound
	}
	if err != nil {
		return State{}, fmt.Errorf("load session: %w", err)
	}
	return st, nil
}

func (c *Controller) update(ctx context.Context, id string, fn func(*State) error) (State, error) {
	st, err := c.store.Update(ctx, id, func(s *State) error {
		if err := fn(s); err != nil {
			return err
		}
		s.UpdatedAt = c.now()
		return nil
	})
	if errors.Is(err, session.ErrNotFound) {
		return State{}, ErrSessionNotFound
	}
	return st, err
}
