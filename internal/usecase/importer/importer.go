package importer

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/johnquangdev/meeting-intel/internal/domain/entities"
	ucerrors "github.com/johnquangdev/meeting-intel/internal/usecase/errors"
)

var (
	// ErrEmptyDocument is returned for documents with no non-whitespace bytes
	ErrEmptyDocument = errors.New("document is empty")
	// ErrUnreadable is returned for documents that are not valid UTF-8
	ErrUnreadable = errors.New("document is not valid UTF-8 text")
)

// ParseError reports a document that could not yield a minimal transcript
type ParseError struct {
	Path   string
	Format entities.TranscriptSource
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s as %s: %v", e.Path, e.Format, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Importer turns one raw document into a Transcript
type Importer interface {
	Source() entities.TranscriptSource
	Parse(name string, raw []byte) (*entities.Transcript, error)
}

// Option configures a Registry
type Option func(*Registry)

// WithClock overrides the processing-date source used for date fallbacks
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.clock = now
	}
}

// WithLogger sets the logger used for per-file failures
func WithLogger(logger *zap.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithFieldMapping sets the synonym table used for automation payloads
func WithFieldMapping(m *FieldMapping) Option {
	return func(r *Registry) {
		r.mapping = m
	}
}

// Registry selects an importer by extension and, for text files, by a
// content sniff.
type Registry struct {
	clock   func() time.Time
	logger  *zap.Logger
	mapping *FieldMapping

	plaintext *PlaintextImporter
	markdown  *MarkdownImporter
	html      *HTMLImporter
	drive     *DriveExportImporter
	zapier    *ZapierImporter
}

// NewRegistry creates a registry holding one instance of every importer
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{clock: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	if r.mapping == nil {
		r.mapping = DefaultFieldMapping()
	}

	r.plaintext = &PlaintextImporter{now: r.clock}
	r.markdown = &MarkdownImporter{now: r.clock}
	r.html = &HTMLImporter{now: r.clock}
	r.drive = &DriveExportImporter{now: r.clock}
	r.zapier = &ZapierImporter{
		now:       r.clock,
		mapping:   r.mapping,
		plaintext: r.plaintext,
		markdown:  r.markdown,
		html:      r.html,
	}
	return r
}

var supportedExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".html": true,
	".htm":  true,
	".json": true,
}

// SupportedExtensions returns the file extensions the registry can import
func SupportedExtensions() []string {
	exts := make([]string, 0, len(supportedExtensions))
	for ext := range supportedExtensions {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// IsSupported reports whether a file name has an importable extension
func IsSupported(name string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(name))]
}

// Zapier returns the automation-payload importer
func (r *Registry) Zapier() *ZapierImporter {
	return r.zapier
}

// Select picks the importer for a document
func (r *Registry) Select(name string, raw []byte) (Importer, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt":
		if looksLikeDriveExport(raw) {
			return r.drive, nil
		}
		return r.plaintext, nil
	case ".md":
		if looksLikeDriveExport(raw) {
			return r.drive, nil
		}
		return r.markdown, nil
	case ".html", ".htm":
		return r.html, nil
	case ".json":
		return r.zapier, nil
	default:
		return nil, fmt.Errorf("%w: %s", ucerrors.ErrUnsupportedFormat, name)
	}
}

// Parse imports one document held in memory
func (r *Registry) Parse(name string, raw []byte) (*entities.Transcript, error) {
	imp, err := r.Select(name, raw)
	if err != nil {
		return nil, err
	}
	return imp.Parse(name, raw)
}

// ImportFile reads and imports one file from disk
func (r *Registry) ImportFile(path string) (*entities.Transcript, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return r.Parse(path, raw)
}

// ImportDir imports every supported file under dir. A failing file is
// logged and reported in the returned error slice; the walk continues.
func (r *Registry) ImportDir(dir string) ([]*entities.Transcript, []error) {
	var (
		transcripts []*entities.Transcript
		failures    []error
	)

	walkErr := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			failures = append(failures, err)
			return nil
		}
		if d.IsDir() || !IsSupported(path) {
			return nil
		}

		t, err := r.ImportFile(path)
		if err != nil {
			if r.logger != nil {
				r.logger.Warn("failed to import transcript",
					zap.String("path", path),
					zap.Error(err),
				)
			}
			failures = append(failures, err)
			return nil
		}
		transcripts = append(transcripts, t)
		return nil
	})
	if walkErr != nil {
		failures = append(failures, walkErr)
	}

	return transcripts, failures
}

// driveSniffWindow is how far into a text file the metadata signature is looked for
const driveSniffWindow = 200

func looksLikeDriveExport(raw []byte) bool {
	head := raw
	if len(head) > driveSniffWindow {
		head = head[:driveSniffWindow]
	}
	if bytes.Contains(head, []byte("```json")) && bytes.Contains(head, []byte("granola_note_id")) {
		return true
	}
	return bytes.Contains(raw, []byte("\n## Enhanced Notes")) || bytes.Contains(raw, []byte("\n## Full Transcript"))
}

// decode validates raw bytes and normalises line endings
func decode(raw []byte) (string, error) {
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", ErrEmptyDocument
	}
	if !utf8.Valid(raw) {
		return "", ErrUnreadable
	}
	text := strings.ReplaceAll(string(raw), "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n"), nil
}

// meetingIDFromName derives a stable id from a file name
func meetingIDFromName(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// finish applies the shared minimum-content check
func finish(name string, t *entities.Transcript) (*entities.Transcript, error) {
	if err := t.Validate(); err != nil {
		return nil, &ParseError{Path: name, Format: t.Source, Err: err}
	}
	return t, nil
}
