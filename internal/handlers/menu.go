package handlers

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"visionary-spaces/internal/catalog"
	"visionary-spaces/internal/workflow"
)

const (
	callbackPrefix = "vs"
	menuMain       = "main"
)

// menuState is the chat-only UI state. The design session itself lives in the
// workflow store.
type menuState struct {
	MessageID           int
	Menu                string
	AwaitingDescription bool
	UpdatedAt           time.Time
}

type menuKey struct {
	chatID int64
	userID int64
}

type menuStore struct {
	mu sync.Mutex
	m  map[menuKey]*menuState
}

func newMenuStore() *menuStore {
	return &menuStore{m: make(map[menuKey]*menuState)}
}

func (s *menuStore) Get(chatID, userID int64) menuState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.getOrCreateLocked(chatID, userID)
}

func (s *menuStore) Update(chatID, userID int64, fn func(*menuState)) menuState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.getOrCreateLocked(chatID, userID)
	fn(st)
	st.UpdatedAt = time.Now()
	return *st
}

func (s *menuStore) Reset(chatID, userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, menuKey{chatID: chatID, userID: userID})
}

func (s *menuStore) getOrCreateLocked(chatID, userID int64) *menuState {
	k := menuKey{chatID: chatID, userID: userID}
	st, ok := s.m[k]
	if !ok {
		st = &menuState{Menu: menuMain, UpdatedAt: time.Now()}
		s.m[k] = st
	}
	return st
}

// formField binds one selectable draft field to its catalog list.
type formField struct {
	Key      string
	Title    string
	Required bool
	options  func() []string
	get      func(workflow.Form) string
	set      func(*workflow.Form, string)
}

var formFields = []formField{
	{
		Key: "room", Title: "Room type", Required: true,
		options: func() []string { return catalog.RoomTypes },
		get:     func(f workflow.Form) string { return f.RoomType },
		set:     func(f *workflow.Form, v string) { f.RoomType = v },
	},
	{
		Key: "style", Title: "Design style", Required: true,
		options: func() []string { return catalog.DesignStyles },
		get:     func(f workflow.Form) string { return f.DesignStyle },
		set:     func(f *workflow.Form, v string) { f.DesignStyle = v },
	},
	{
		Key: "palette", Title: "Color palette",
		options: catalog.PaletteNames,
		get:     func(f workflow.Form) string { return f.ColorPalette },
		set:     func(f *workflow.Form, v string) { f.ColorPalette = v },
	},
	{
		Key: "furniture", Title: "Furniture",
		options: func() []string { return catalog.FurnitureStyles },
		get:     func(f workflow.Form) string { return f.FurnitureStyle },
		set:     func(f *workflow.Form, v string) { f.FurnitureStyle = v },
	},
	{
		Key: "budget", Title: "Budget",
		options: func() []string { return catalog.BudgetLevels },
		get:     func(f workflow.Form) string { return f.BudgetLevel },
		set:     func(f *workflow.Form, v string) { f.BudgetLevel = v },
	},
	{
		Key: "lighting", Title: "Lighting",
		options: func() []string { return catalog.LightingPreferences },
		get:     func(f workflow.Form) string { return f.LightingPreference },
		set:     func(f *workflow.Form, v string) { f.LightingPreference = v },
	},
}

func findField(key string) (formField, bool) {
	for _, f := range formFields {
		if f.Key == key {
			return f, true
		}
	}
	return formField{}, false
}

// applyChoice sets field key to the idx-th option. idx -1 clears an optional field.
func applyChoice(form workflow.Form, key string, idx int) (workflow.Form, bool) {
	f, ok := findField(key)
	if !ok {
		return form, false
	}
	if idx == -1 && !f.Required {
		f.set(&form, "")
		return form, true
	}
	opts := f.options()
	if idx < 0 || idx >= len(opts) {
		return form, false
	}
	f.set(&form, opts[idx])
	return form, true
}

type callback struct {
	Owner  int64
	Action string
	Args   []string
}

func cb(ownerID int64, parts ...string) string {
	return fmt.Sprintf("%s:%d:%s", callbackPrefix, ownerID, strings.Join(parts, ":"))
}

func parseCallback(data string) (callback, bool) {
	parts := strings.Split(strings.TrimSpace(data), ":")
	if len(parts) < 3 || parts[0] != callbackPrefix || parts[2] == "" {
		return callback{}, false
	}
	owner, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return callback{}, false
	}
	return callback{Owner: owner, Action: parts[2], Args: parts[3:]}, true
}

func menuText(v workflow.View, menu string) string {
	var b strings.Builder
	b.WriteString("🏠 Visionary Spaces\n\n")

	if v.HasImage {
		b.WriteString("Photo: ✅ uploaded\n")
	} else {
		b.WriteString("Photo: not uploaded yet, send one to start\n")
	}

	switch {
	case v.RoomTypeStatus == workflow.DetectionPending:
		b.WriteString("Detected room: analyzing…\n")
	case v.RoomType != "":
		b.WriteString("Detected room: " + v.RoomType + "\n")
	case v.RoomTypeStatus == workflow.DetectionSettled:
		b.WriteString("Detected room: unknown\n")
	}
	if len(v.Objects) > 0 {
		names := make([]string, 0, len(v.Objects))
		for _, o := range v.Objects {
			names = append(names, o.Name)
		}
		b.WriteString("Objects: " + truncateLine(strings.Join(names, ", "), 200) + "\n")
	}

	b.WriteString("\nDesign settings\n")
	for _, f := range formFields {
		b.WriteString(fmt.Sprintf("%s: %s\n", f.Title, orDash(f.get(v.Draft))))
	}
	b.WriteString("Description: " + orDash(truncateLine(v.Draft.Description, 120)) + "\n")

	if v.Attempted {
		b.WriteString(fmt.Sprintf("\nDesigns: %d ready\n", len(v.Designs)))
	}

	if f, ok := findField(menu); ok {
		b.WriteString("\nChoose " + strings.ToLower(f.Title) + ":")
	}
	return strings.TrimSpace(b.String())
}

func menuKeyboard(ownerID int64, menu string, v workflow.View) tgbotapi.InlineKeyboardMarkup {
	if f, ok := findField(menu); ok {
		return fieldKeyboard(ownerID, f, v.Draft)
	}
	return mainKeyboard(ownerID, v)
}

func mainKeyboard(ownerID int64, v workflow.View) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, f := range formFields {
		label := f.Title
		if f.get(v.Draft) != "" {
			label = "✅ " + label
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, cb(ownerID, "menu", f.Key)))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	rows = append(rows, []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("📝 Description", cb(ownerID, "desc")),
	})

	actions := []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("🎨 Generate", cb(ownerID, "gen")),
	}
	if v.CanGenerateMore {
		actions = append(actions, tgbotapi.NewInlineKeyboardButtonData("🔁 More", cb(ownerID, "more")))
	}
	rows = append(rows, actions)

	if len(v.Designs) > 0 {
		var dl []tgbotapi.InlineKeyboardButton
		for i := range v.Designs {
			dl = append(dl, tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("⬇ %d", i+1), cb(ownerID, "dl", strconv.Itoa(i))))
		}
		rows = append(rows, dl)
	}

	if v.HasImage {
		rows = append(rows, []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("🗑 Remove photo", cb(ownerID, "clear")),
		})
	}

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func fieldKeyboard(ownerID int64, f formField, draft workflow.Form) tgbotapi.InlineKeyboardMarkup {
	current := f.get(draft)

	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for i, opt := range f.options() {
		label := opt
		if opt == current {
			label = "✅ " + label
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, cb(ownerID, "set", f.Key, strconv.Itoa(i))))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	last := []tgbotapi.InlineKeyboardButton{}
	if !f.Required {
		label := "None"
		if current == "" {
			label = "✅ None"
		}
		last = append(last, tgbotapi.NewInlineKeyboardButtonData(label, cb(ownerID, "set", f.Key, "-1")))
	}
	last = append(last, tgbotapi.NewInlineKeyboardButtonData("⬅ Back", cb(ownerID, "menu", menuMain)))
	rows = append(rows, last)

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func noticeText(n workflow.Notice) string {
	icon := "ℹ️"
	if n.Variant == workflow.VariantDestructive {
		icon = "⚠️"
	}
	if n.Description == "" {
		return icon + " " + n.Title
	}
	return fmt.Sprintf("%s %s\n%s", icon, n.Title, n.Description)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "not set"
	}
	return s
}

func truncateLine(s string, max int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if max <= 0 || len(runes) <= max {
		return s
	}
	return strings.TrimSpace(string(runes[:max])) + "…"
}
