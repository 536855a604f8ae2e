package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID    = "build_id"
	KeyStage      = "stage"
	KeyDurationMS = "duration_ms"
	KeyPost       = "post"
	KeyFilter     = "filter"
	KeyPlugin     = "plugin"
	KeyPriority   = "priority"
	KeyTemplate   = "template"
	KeyPath       = "path"
	KeyCategory   = "category"
	KeyCount      = "count"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BuildID(id string) slog.Attr     { return slog.String(KeyBuildID, id) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Post(filename string) slog.Attr  { return slog.String(KeyPost, filename) }
func Filter(name string) slog.Attr    { return slog.String(KeyFilter, name) }
func Plugin(id string) slog.Attr      { return slog.String(KeyPlugin, id) }
func Priority(p float64) slog.Attr    { return slog.Float64(KeyPriority, p) }
func Template(id string) slog.Attr    { return slog.String(KeyTemplate, id) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Category(name string) slog.Attr  { return slog.String(KeyCategory, name) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
