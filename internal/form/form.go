// Package form implements the name/email form: each user action is a pure
// function from the current view and a preference reader to a new view and
// the edit to persist.
package form

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kalambet/prefkeep/internal/prefs"
)

// DefaultNamespace is the preference namespace the form stores its entry in.
const DefaultNamespace = "UserPreferences"

const (
	KeyName  = "nama"
	KeyEmail = "email"
)

// User-visible messages.
const (
	MsgEmptyInput    = "Nama dan Email tidak boleh kosong!"
	MsgSaved         = "Data berhasil disimpan!"
	MsgLoaded        = "Data berhasil dimuat!"
	MsgNoData        = "Tidak ada data tersimpan"
	MsgDeleted       = "Data telah dihapus"
	MsgDeletedNotice = "Data berhasil dihapus!"
)

// ErrUnknownAction is returned by Dispatch and ParseAction for actions the
// form does not define.
var ErrUnknownAction = errors.New("unknown form action")

// Entry is the record the form persists.
type Entry struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Trimmed returns e with surrounding whitespace removed from both fields.
func (e Entry) Trimmed() Entry {
	return Entry{Name: strings.TrimSpace(e.Name), Email: strings.TrimSpace(e.Email)}
}

// View is everything the form displays: the two inputs, the result area and
// the notice produced by the last action.
type View struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Result string `json:"result"`
	Notice string `json:"notice"`
}

// Inputs returns the entry currently typed into the form.
func (v View) Inputs() Entry {
	return Entry{Name: v.Name, Email: v.Email}
}

// Summary renders a stored entry for the result area.
func Summary(e Entry) string {
	return fmt.Sprintf("Data Tersimpan:\n\nNama: %s\nEmail: %s", e.Name, e.Email)
}

// ReadEntry reads the stored entry, using empty strings for missing keys.
func ReadEntry(r prefs.Reader) Entry {
	return Entry{
		Name:  r.GetString(KeyName, ""),
		Email: r.GetString(KeyEmail, ""),
	}
}

// Save validates the inputs and, when both are non-empty after trimming,
// returns an edit writing them and a view with cleared inputs.
func Save(v View, _ prefs.Reader) (View, prefs.Edit) {
	in := v.Inputs().Trimmed()
	if in.Name == "" || in.Email == "" {
		v.Notice = MsgEmptyInput
		return v, prefs.Edit{}
	}

	var e prefs.Edit
	e.Put(KeyName, in.Name).Put(KeyEmail, in.Email)

	v.Name, v.Email = "", ""
	v.Notice = MsgSaved
	return v, e
}

// Load shows the stored entry, or the no-data state when both keys are empty.
func Load(v View, r prefs.Reader) (View, prefs.Edit) {
	stored := ReadEntry(r)
	if stored.Name == "" && stored.Email == "" {
		v.Result = MsgNoData
		v.Notice = MsgNoData
		return v, prefs.Edit{}
	}
	v.Result = Summary(stored)
	v.Notice = MsgLoaded
	return v, prefs.Edit{}
}

// Delete removes both keys one by one; it never clears the namespace.
func Delete(v View, _ prefs.Reader) (View, prefs.Edit) {
	var e prefs.Edit
	e.Remove(KeyName).Remove(KeyEmail)

	v.Result = MsgDeleted
	v.Name, v.Email = "", ""
	v.Notice = MsgDeletedNotice
	return v, e
}

// LoadOnStart shows the stored entry only when both fields are present.
// Otherwise the view is returned untouched.
func LoadOnStart(v View, r prefs.Reader) (View, prefs.Edit) {
	stored := ReadEntry(r)
	if stored.Name != "" && stored.Email != "" {
		v.Result = Summary(stored)
	}
	return v, prefs.Edit{}
}
