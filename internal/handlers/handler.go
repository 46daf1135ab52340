package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"visionary-spaces/internal/imagedata"
	"visionary-spaces/internal/telegram"
	"visionary-spaces/internal/workflow"
)

// Messenger is the part of the Telegram client the handlers use.
type Messenger interface {
	SendText(chatID int64, text string) error
	SendTyping(chatID int64)
	SendTextWithKeyboard(chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) (int, error)
	EditTextWithKeyboard(chatID int64, messageID int, text string, kb tgbotapi.InlineKeyboardMarkup) error
	AnswerCallback(callbackID, text string, alert bool) error
	SendPhotoDataURL(chatID int64, dataURL string, caption string) error
	SendDocument(chatID int64, name string, data []byte, caption string) error
	DownloadFile(ctx context.Context, fileID string) ([]byte, string, error)
}

type Options struct {
	Telegram   Messenger
	Controller *workflow.Controller
	Logger     *slog.Logger
}

type Handler struct {
	tg     Messenger
	ctrl   *workflow.Controller
	menus  *menuStore
	logger *slog.Logger
}

func New(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		tg:     opts.Telegram,
		ctrl:   opts.Controller,
		menus:  newMenuStore(),
		logger: logger.With("component", "handlers"),
	}
}

func (h *Handler) HandleUpdate(ctx context.Context, update telegram.Update) error {
	if update.CallbackQuery != nil {
		return h.handleCallback(ctx, update.CallbackQuery)
	}
	if update.Message == nil || update.Message.From == nil {
		return nil
	}

	msg := update.Message
	chatID := msg.Chat.ID
	user := msg.From

	h.logger.Debug("update received", "chat_id", chatID, "user_id", user.ID, "username", user.UserName)

	if msg.IsCommand() {
		return h.handleCommand(ctx, chatID, user, msg)
	}
	if len(msg.Photo) > 0 {
		// The last size is the largest one.
		photo := msg.Photo[len(msg.Photo)-1]
		return h.handleImage(ctx, chatID, user, photo.FileID, "", "photo.jpg")
	}
	if doc := msg.Document; doc != nil {
		if !strings.HasPrefix(strings.ToLower(doc.MimeType), "image/") {
			return h.tg.SendText(chatID, "📎 Please send a photo or an image file of your room.")
		}
		return h.handleImage(ctx, chatID, user, doc.FileID, doc.MimeType, doc.FileName)
	}
	if text := strings.TrimSpace(msg.Text); text != "" {
		return h.handleText(ctx, chatID, user, text)
	}
	return nil
}

func (h *Handler) handleCommand(ctx context.Context, chatID int64, user *tgbotapi.User, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		h.menus.Reset(chatID, user.ID)
		if _, err := h.ensure(ctx, chatID, user); err != nil {
			return err
		}
		if err := h.tg.SendText(chatID, welcomeText(user.FirstName)); err != nil {
			return err
		}
		return h.showMenu(ctx, chatID, user, false)
	case "help":
		return h.tg.SendText(chatID, helpText)
	case "design":
		h.menus.Update(chatID, user.ID, func(st *menuState) { st.Menu = menuMain })
		return h.showMenu(ctx, chatID, user, false)
	case "more":
		return h.generate(ctx, chatID, user, h.ctrl.GenerateMore)
	case "clear":
		if _, err := h.ensure(ctx, chatID, user); err != nil {
			return err
		}
		if _, err := h.ctrl.ClearImage(ctx, sessionID(chatID, user.ID)); err != nil {
			return err
		}
		if err := h.tg.SendText(chatID, "🗑 Photo removed. Send a new one whenever you are ready."); err != nil {
			return err
		}
		return h.showMenu(ctx, chatID, user, false)
	case "cancel":
		h.menus.Update(chatID, user.ID, func(st *menuState) { st.AwaitingDescription = false })
		return h.tg.SendText(chatID, "Cancelled.")
	default:
		return h.tg.SendText(chatID, "Unknown command. Try /help.")
	}
}

func (h *Handler) handleText(ctx context.Context, chatID int64, user *tgbotapi.User, text string) error {
	ui := h.menus.Get(chatID, user.ID)
	if !ui.AwaitingDescription {
		return h.tg.SendText(chatID, "📷 Send a photo of your room, or use /design to open the settings.")
	}

	view, err := h.ensure(ctx, chatID, user)
	if err != nil {
		return err
	}
	form := view.Draft
	form.Description = text

	res, err := h.ctrl.UpdateDraft(ctx, sessionID(chatID, user.ID), form)
	if err != nil {
		h.sendNotices(chatID, res.Notices)
		return ignoreUserError(err)
	}

	h.menus.Update(chatID, user.ID, func(st *menuState) { st.AwaitingDescription = false })
	if err := h.tg.SendText(chatID, "📝 Description saved."); err != nil {
		return err
	}
	return h.showMenu(ctx, chatID, user, false)
}

func (h *Handler) handleImage(ctx context.Context, chatID int64, user *tgbotapi.User, fileID, declaredMime, filename string) error {
	if _, err := h.ensure(ctx, chatID, user); err != nil {
		return err
	}

	h.tg.SendTyping(chatID)
	data, mimeType, err := h.tg.DownloadFile(ctx, fileID)
	if err != nil {
		_ = h.tg.SendText(chatID, "⚠️ Could not download the image. Please try again.")
		return fmt.Errorf("download image: %w", err)
	}
	if declaredMime == "" {
		declaredMime = mimeType
	}

	_ = h.tg.SendText(chatID, "🔎 Analyzing your room…")

	res, err := h.ctrl.UploadImage(ctx, sessionID(chatID, user.ID), imagedata.Upload{
		Data:         data,
		DeclaredMime: declaredMime,
		Filename:     filename,
	})
	h.sendNotices(chatID, res.Notices)
	if err != nil {
		return ignoreUserError(err)
	}

	h.menus.Update(chatID, user.ID, func(st *menuState) {
		st.Menu = menuMain
		st.AwaitingDescription = false
	})
	return h.showMenu(ctx, chatID, user, false)
}

func (h *Handler) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) error {
	if q == nil || q.Message == nil || q.From == nil {
		return nil
	}
	c, ok := parseCallback(q.Data)
	if !ok {
		return nil
	}
	if c.Owner != q.From.ID {
		_ = h.tg.AnswerCallback(q.ID, "This menu is not for you.", true)
		return nil
	}

	chatID := q.Message.Chat.ID
	user := q.From
	id := sessionID(chatID, user.ID)
	h.menus.Update(chatID, user.ID, func(st *menuState) { st.MessageID = q.Message.MessageID })

	switch c.Action {
	case "menu":
		menu := menuMain
		if len(c.Args) > 0 {
			menu = c.Args[0]
		}
		h.menus.Update(chatID, user.ID, func(st *menuState) { st.Menu = menu })
		_ = h.tg.AnswerCallback(q.ID, "", false)
	case "set":
		if len(c.Args) < 2 {
			return nil
		}
		idx, err := strconv.Atoi(c.Args[1])
		if err != nil {
			return nil
		}
		view, err := h.ensure(ctx, chatID, user)
		if err != nil {
			return err
		}
		form, ok := applyChoice(view.Draft, c.Args[0], idx)
		if !ok {
			_ = h.tg.AnswerCallback(q.ID, "That option is no longer available.", false)
			return nil
		}
		res, err := h.ctrl.UpdateDraft(ctx, id, form)
		if err != nil {
			h.sendNotices(chatID, res.Notices)
			_ = h.tg.AnswerCallback(q.ID, "", false)
			return ignoreUserError(err)
		}
		h.menus.Update(chatID, user.ID, func(st *menuState) { st.Menu = menuMain })
		_ = h.tg.AnswerCallback(q.ID, "Saved", false)
	case "desc":
		h.menus.Update(chatID, user.ID, func(st *menuState) { st.AwaitingDescription = true })
		_ = h.tg.AnswerCallback(q.ID, "Send a description", false)
		return h.tg.SendText(chatID, fmt.Sprintf("📝 Describe what you want in up to %d characters (cancel: /cancel).", workflow.MaxDescriptionLength))
	case "gen":
		_ = h.tg.AnswerCallback(q.ID, "Generating…", false)
		return h.generate(ctx, chatID, user, func(ctx context.Context, id string) (workflow.Result, error) {
			res, err := h.ctrl.Get(ctx, id)
			if err != nil {
				return res, err
			}
			return h.ctrl.Submit(ctx, id, res.View.Draft)
		})
	case "more":
		_ = h.tg.AnswerCallback(q.ID, "Generating…", false)
		return h.generate(ctx, chatID, user, h.ctrl.GenerateMore)
	case "dl":
		if len(c.Args) < 1 {
			return nil
		}
		idx, err := strconv.Atoi(c.Args[0])
		if err != nil {
			return nil
		}
		_ = h.tg.AnswerCallback(q.ID, "Sending file…", false)
		return h.sendDownload(ctx, chatID, id, idx)
	case "clear":
		if _, err := h.ctrl.ClearImage(ctx, id); err != nil && !errors.Is(err, workflow.ErrSessionNotFound) {
			return err
		}
		_ = h.tg.AnswerCallback(q.ID, "Photo removed", false)
	default:
		_ = h.tg.AnswerCallback(q.ID, "", false)
		return nil
	}

	return h.showMenu(ctx, chatID, user, true)
}

// generate runs a blocking generation and posts every design as a photo
// followed by a fresh menu below them.
func (h *Handler) generate(ctx context.Context, chatID int64, user *tgbotapi.User, run func(context.Context, string) (workflow.Result, error)) error {
	if _, err := h.ensure(ctx, chatID, user); err != nil {
		return err
	}

	h.tg.SendTyping(chatID)
	_ = h.tg.SendText(chatID, "🎨 Generating your designs, this can take a minute…")

	res, err := run(ctx, sessionID(chatID, user.ID))
	h.sendNotices(chatID, res.Notices)
	if err != nil {
		return ignoreUserError(err)
	}

	total := len(res.View.Designs)
	for i, d := range res.View.Designs {
		caption := fmt.Sprintf("Design %d of %d", i+1, total)
		if err := h.tg.SendPhotoDataURL(chatID, d, caption); err != nil {
			h.logger.Warn("send design failed", "chat_id", chatID, "index", i, "err", err)
		}
	}

	h.menus.Update(chatID, user.ID, func(st *menuState) { st.Menu = menuMain })
	return h.showMenu(ctx, chatID, user, false)
}

func (h *Handler) sendDownload(ctx context.Context, chatID int64, id string, index int) error {
	if _, err := h.ctrl.OpenPreview(ctx, id, index); err != nil {
		if errors.Is(err, workflow.ErrDesignNotFound) || errors.Is(err, workflow.ErrSessionNotFound) {
			return h.tg.SendText(chatID, "⚠️ That design is no longer available.")
		}
		return err
	}
	defer func() {
		if _, err := h.ctrl.ClosePreview(ctx, id); err != nil {
			h.logger.Debug("close preview failed", "session", id, "err", err)
		}
	}()

	dl, err := h.ctrl.Download(ctx, id, index)
	if err != nil {
		if errors.Is(err, workflow.ErrDesignNotFound) {
			return h.tg.SendText(chatID, "⚠️ That design is no longer available.")
		}
		return err
	}
	return h.tg.SendDocument(chatID, dl.FileName, dl.Data, fmt.Sprintf("Design %d", index+1))
}

// showMenu edits the last menu message when edit is set and that works,
// otherwise it posts a new one and remembers its id.
func (h *Handler) showMenu(ctx context.Context, chatID int64, user *tgbotapi.User, edit bool) error {
	view, err := h.ensure(ctx, chatID, user)
	if err != nil {
		return err
	}
	ui := h.menus.Get(chatID, user.ID)

	text := menuText(view, ui.Menu)
	kb := menuKeyboard(user.ID, ui.Menu, view)

	if edit && ui.MessageID != 0 {
		if err := h.tg.EditTextWithKeyboard(chatID, ui.MessageID, text, kb); err == nil {
			return nil
		}
	}

	msgID, err := h.tg.SendTextWithKeyboard(chatID, text, kb)
	if err != nil {
		return err
	}
	h.menus.Update(chatID, user.ID, func(st *menuState) { st.MessageID = msgID })
	return nil
}

func (h *Handler) ensure(ctx context.Context, chatID int64, user *tgbotapi.User) (workflow.View, error) {
	res, err := h.ctrl.Ensure(ctx, sessionID(chatID, user.ID), user.FirstName)
	if err != nil {
		return workflow.View{}, fmt.Errorf("ensure session: %w", err)
	}
	return res.View, nil
}

func (h *Handler) sendNotices(chatID int64, notices []workflow.Notice) {
	for _, n := range notices {
		if err := h.tg.SendText(chatID, noticeText(n)); err != nil {
			h.logger.Warn("send notice failed", "chat_id", chatID, "err", err)
		}
	}
}

func sessionID(chatID, userID int64) string {
	return fmt.Sprintf("tg-%d-%d", chatID, userID)
}

// ignoreUserError drops errors the user has already been told about.
func ignoreUserError(err error) error {
	switch {
	case errors.Is(err, workflow.ErrInvalidUpload),
		errors.Is(err, workflow.ErrNoImage),
		errors.Is(err, workflow.ErrInvalidForm),
		errors.Is(err, workflow.ErrNoPreviousRequest):
		return nil
	default:
		return err
	}
}

func welcomeText(name string) string {
	greeting := "Welcome to Visionary Spaces!"
	if name = strings.TrimSpace(name); name != "" {
		greeting = fmt.Sprintf("Welcome to Visionary Spaces, %s!", name)
	}
	return greeting + "\n\n📷 Send a photo of your room and I will detect the room type and the objects in it. " +
		"Then pick a style in the menu and press Generate to get new design ideas."
}

const helpText = `Commands:
/start - start over
/design - open the design settings
/more - generate more designs with the last settings
/clear - remove the current photo
/cancel - stop waiting for a description
/help - this message

Send a photo (or an image file up to 4 MB) to analyze a room.`
