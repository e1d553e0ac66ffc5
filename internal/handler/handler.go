// Package handler implements the diagnostic-collection policy from the
// error handling design: every stage (tokenizer, parser, resolver,
// layout, interpreter) appends to a shared Handler instead of returning
// a Go error per call. The producing stage always recovers from a
// parse issue on its own; some of those issues (an unterminated
// comment, an unmatched end tag, a tokenizer hitting its step bound)
// are still recorded here as warnings. Script errors are recorded as
// errors, and fatal engineering errors through Fatal.
package handler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kbrowse/kbrowse/internal/loc"
)

type Handler struct {
	sourcetext string
	filename   string
	errors     []error
	warnings   []error
	infos      []error
	hints      []error
	fatal      error
}

func NewHandler(sourcetext string, filename string) *Handler {
	return &Handler{
		sourcetext: sourcetext,
		filename:   filename,
		errors:     make([]error, 0),
		warnings:   make([]error, 0),
		infos:      make([]error, 0),
		hints:      make([]error, 0),
	}
}

func (h *Handler) HasErrors() bool { return len(h.errors) > 0 || h.fatal != nil }

func (h *Handler) AppendError(err error) {
	if err == nil {
		return
	}
	h.errors = append(h.errors, err)
}

func (h *Handler) AppendWarning(err error) {
	if err == nil {
		return
	}
	h.warnings = append(h.warnings, err)
}

func (h *Handler) AppendInfo(err error) {
	if err == nil {
		return
	}
	h.infos = append(h.infos, err)
}

func (h *Handler) AppendHint(err error) {
	if err == nil {
		return
	}
	h.hints = append(h.hints, err)
}

// Fatal records a fatal engineering error (invariant violation, internal
// index out of bounds). Only the first one sticks: it is what the
// status surface shows for the current frame.
func (h *Handler) Fatal(err error) {
	if h.fatal == nil {
		h.fatal = err
	}
}

// FirstFatal reports the status-surface message for the current
// render: the first fatal diagnostic recorded, if any.
func (h *Handler) FirstFatal() (string, bool) {
	if h.fatal == nil {
		return "", false
	}
	return h.fatal.Error(), true
}

func (h *Handler) Errors() []loc.DiagnosticMessage {
	return h.toMessages(h.errors, loc.ErrorSeverity)
}

func (h *Handler) Warnings() []loc.DiagnosticMessage {
	return h.toMessages(h.warnings, loc.WarningSeverity)
}

func (h *Handler) Diagnostics() []loc.DiagnosticMessage {
	msgs := h.toMessages(h.errors, loc.ErrorSeverity)
	msgs = append(msgs, h.toMessages(h.warnings, loc.WarningSeverity)...)
	msgs = append(msgs, h.toMessages(h.infos, loc.InformationSeverity)...)
	msgs = append(msgs, h.toMessages(h.hints, loc.HintSeverity)...)
	return msgs
}

func (h *Handler) toMessages(errs []error, severity loc.DiagnosticSeverity) []loc.DiagnosticMessage {
	msgs := make([]loc.DiagnosticMessage, 0, len(errs))
	for _, err := range errs {
		if err == nil {
			continue
		}
		msgs = append(msgs, h.errorToMessage(severity, err))
	}
	return msgs
}

func (h *Handler) errorToMessage(severity loc.DiagnosticSeverity, err error) loc.DiagnosticMessage {
	var rangedError *loc.ErrorWithRange
	if errors.As(err, &rangedError) {
		pos := loc.PositionOf(h.sourcetext, rangedError.Range.Loc.Start)
		location := &loc.DiagnosticLocation{
			File:   h.filename,
			Line:   pos.Line,
			Column: pos.Column,
			Length: rangedError.Range.Len,
		}
		msg := rangedError.ToMessage(location)
		msg.Severity = severity
		return msg
	}
	return loc.DiagnosticMessage{Text: err.Error(), Severity: severity}
}

// String renders all diagnostics for debugging/CLI output, one per
// line.
func (h *Handler) String() string {
	var b strings.Builder
	for _, msg := range h.Diagnostics() {
		if msg.Location != nil {
			fmt.Fprintf(&b, "%s:%d:%d: %s\n", msg.Location.File, msg.Location.Line, msg.Location.Column, msg.Text)
		} else {
			fmt.Fprintf(&b, "%s\n", msg.Text)
		}
	}
	return b.String()
}
