package form

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/kalambet/prefkeep/internal/prefs"
)

// Action names a user action on the form.
type Action string

const (
	ActionSave   Action = "save"
	ActionLoad   Action = "load"
	ActionDelete Action = "delete"
	ActionStart  Action = "start"
)

var aliases = map[string]Action{
	"save":   ActionSave,
	"simpan": ActionSave,
	"load":   ActionLoad,
	"muat":   ActionLoad,
	"delete": ActionDelete,
	"hapus":  ActionDelete,
	"start":  ActionStart,
}

// ParseAction accepts action names and the form's button labels, ignoring case.
func ParseAction(s string) (Action, error) {
	a, ok := aliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
	}
	return a, nil
}

// Handler is the shape shared by every form action.
type Handler func(View, prefs.Reader) (View, prefs.Edit)

var handlers = map[Action]Handler{
	ActionSave:   Save,
	ActionLoad:   Load,
	ActionDelete: Delete,
	ActionStart:  LoadOnStart,
}

// Dispatch runs action against v without touching the store.
func Dispatch(action Action, v View, r prefs.Reader) (View, prefs.Edit, error) {
	h, ok := handlers[action]
	if !ok {
		return v, prefs.Edit{}, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	next, edit := h(v, r)
	return next, edit, nil
}

// Controller owns the form's view and applies each action's edit to the
// injected store. Actions run one at a time.
type Controller struct {
	store  prefs.Store
	logger *slog.Logger

	mu   sync.Mutex
	view View
}

// NewController creates a Controller over store and runs the start action once.
func NewController(store prefs.Store) *Controller {
	c := &Controller{
		store:  store,
		logger: slog.Default(),
	}
	c.view, _ = LoadOnStart(View{}, store)
	return c
}

// Handle runs action with the current view, applies its edit and returns the
// resulting view. The notice of a previous action never carries over.
func (c *Controller) Handle(action Action) (View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handle(action)
}

// Submit sets the inputs to in and then runs action, as one step.
func (c *Controller) Submit(action Action, in Entry) (View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.view.Name, c.view.Email = in.Name, in.Email
	return c.handle(action)
}

func (c *Controller) handle(action Action) (View, error) {
	cur := c.view
	cur.Notice = ""
	next, edit, err := Dispatch(action, cur, c.store)
	if err != nil {
		return c.view, err
	}
	if !edit.Empty() {
		c.store.Apply(edit)
	}
	c.view = next
	c.logger.Debug("form action handled", "action", string(action), "ops", len(edit.Ops), "notice", next.Notice)
	return next, nil
}

// SetInputs replaces the text in the two input fields.
func (c *Controller) SetInputs(in Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.view.Name, c.view.Email = in.Name, in.Email
}

// View returns the current view.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}
