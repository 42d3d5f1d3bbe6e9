package ocr

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ironsheep/template-tools-mcp/internal/decompose"
)

// ErrUnavailable is returned when the binary was built without Tesseract.
var ErrUnavailable = errors.New("ocr unavailable: built without cgo")

// Level is the granularity of recognised regions.
type Level string

const (
	LevelWord  Level = "word"
	LevelLine  Level = "line"
	LevelBlock Level = "block"
)

// ParseLevel maps a level name; the empty string means LevelLine.
func ParseLevel(s string) (Level, error) {
	switch Level(s) {
	case "", LevelLine:
		return LevelLine, nil
	case LevelWord, LevelBlock:
		return Level(s), nil
	}
	return "", fmt.Errorf("unknown ocr level %q (valid: word, line, block)", s)
}

// Options configures an Oracle.
type Options struct {
	// Language is a Tesseract language code. Empty means "eng".
	Language string

	// Level defaults to LevelLine: one text zone per line reads best as a
	// template field.
	Level Level

	// TessdataPrefix overrides the training data directory.
	TessdataPrefix string

	Logger zerolog.Logger
}

func (o Options) withDefaults() Options {
	if o.Language == "" {
		o.Language = "eng"
	}
	if o.Level == "" {
		o.Level = LevelLine
	}
	return o
}

// Oracle is a decompose.Oracle returning "text" regions with the recognised
// text and Tesseract's confidence scaled to 0-1.
type Oracle struct {
	opts Options
}

var _ decompose.Oracle = (*Oracle)(nil)

// New creates an Oracle.
func New(opts Options) *Oracle {
	return &Oracle{opts: opts.withDefaults()}
}

// Name implements decompose.Oracle.
func (o *Oracle) Name() string { return "ocr" }

// Info describes the OCR subsystem.
type Info struct {
	Available bool   `json:"available"`
	Version   string `json:"version,omitempty"`
	Backend   string `json:"backend"`
	Language  string `json:"language"`
	Error     string `json:"error,omitempty"`
}

func regionID(n int) string { return fmt.Sprintf("text-%d", n) }
