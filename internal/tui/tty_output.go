package tui

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/mattn/go-runewidth"

	fezerrors "github.com/cmeister2/fez/internal/errors"
)

// TTYOutput provides styled terminal output using Lip Gloss.
type TTYOutput struct {
	w      io.Writer
	styles *OutputStyles
}

// NewTTYOutput creates a new TTYOutput. It respects NO_COLOR via CheckNoColor.
func NewTTYOutput(w io.Writer) *TTYOutput {
	CheckNoColor()

	return &TTYOutput{
		w:      w,
		styles: NewOutputStyles(),
	}
}

// Success prints a success message.
func (o *TTYOutput) Success(msg string) {
	_, _ = fmt.Fprintln(o.w, o.styles.Success.Render(IconSuccess+" "+msg))
}

// Error prints an error message followed by the suggested action, if any.
func (o *TTYOutput) Error(err error) {
	_, _ = fmt.Fprintln(o.w, o.styles.Error.Render(IconError+" "+err.Error()))
	if _, action := fezerrors.Actionable(err); action != "" {
		_, _ = fmt.Fprintln(o.w, o.styles.Dim.Render("  "+action))
	}
}

// Warning prints a warning message.
func (o *TTYOutput) Warning(msg string) {
	_, _ = fmt.Fprintln(o.w, o.styles.Warning.Render(IconWarning+" "+msg))
}

// Info prints an informational message.
func (o *TTYOutput) Info(msg string) {
	_, _ = fmt.Fprintln(o.w, o.styles.Info.Render(msg))
}

// Fields prints one "key: value" line per field, keys padded to align on
// display width.
func (o *TTYOutput) Fields(fields []Field) {
	width := 0
	for _, f := range fields {
		width = max(width, runewidth.StringWidth(f.Key))
	}
	for _, f := range fields {
		key := "  " + runewidth.FillRight(f.Key+":", width+1)
		_, _ = fmt.Fprintln(o.w, o.styles.Key.Render(key)+" "+f.Value)
	}
}

// JSON outputs a value as formatted JSON.
func (o *TTYOutput) JSON(v any) error {
	encoder := json.NewEncoder(o.w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}
