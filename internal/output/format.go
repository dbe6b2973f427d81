// Package output provides formatters for REPL output.
package output

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"firetodo/internal/screens"
	"firetodo/internal/service"
)

const (
	// Separator frames screen headers.
	Separator = "------------"

	// NoImage is shown when the profile has no picture.
	NoImage = "No Image"
)

// FormatHeader formats a screen header.
func FormatHeader(w io.Writer, title string) {
	fmt.Fprintln(w, Separator)
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, Separator)
}

// FormatTask formats a task line.
// Format: "{N:>4}  [x] {TEXT}\n" (4-wide right-aligned number, two spaces, checkbox, text)
func FormatTask(w io.Writer, num int, task service.Task) {
	box := "[ ]"
	if task.Completed {
		box = "[x]"
	}
	fmt.Fprintf(w, "%4d  %s %s\n", num, box, normalizeText(task.Text))
}

// FormatTasks formats the task list with 1-based numbers.
func FormatTasks(w io.Writer, tasks []service.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, "(no tasks)")
		return
	}
	for i, task := range tasks {
		FormatTask(w, i+1, task)
	}
}

// FormatProfile formats the profile screen.
func FormatProfile(w io.Writer, view screens.ProfileView) {
	name := view.DisplayName
	if strings.TrimSpace(name) == "" {
		name = "(not set)"
	}
	picture := view.PictureURL
	if picture == "" {
		picture = NoImage
	}
	fmt.Fprintf(w, "Email:    %s\n", view.Email)
	fmt.Fprintf(w, "Username: %s\n", name)
	fmt.Fprintf(w, "Picture:  %s\n", picture)
	if view.Uploading {
		fmt.Fprintln(w, "Uploading...")
	}
}

// FormatError formats an alert as "error: {TITLE}: {MESSAGE}".
func FormatError(w io.Writer, title string, err error) {
	fmt.Fprintf(w, "error: %s: %s\n", title, Message(err))
}

// Message returns the user-facing text of err. Validation errors are shown
// verbatim; everything else keeps its full chain.
func Message(err error) string {
	var v *screens.ValidationError
	if errors.As(err, &v) {
		return v.Msg
	}
	return err.Error()
}

// normalizeText normalizes task text for display.
// - Empty or whitespace-only text becomes "(untitled)"
// - Newlines are replaced with spaces
func normalizeText(text string) string {
	// Replace newlines with spaces
	text = strings.ReplaceAll(text, "\r", " ")
	text = strings.ReplaceAll(text, "\n", " ")

	// Trim and check for empty
	if strings.TrimSpace(text) == "" {
		return "(untitled)"
	}
	return text
}
