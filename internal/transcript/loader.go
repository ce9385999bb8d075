// Package transcript loads recorded conversations from CSV files.
package transcript

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"transcript-restream-service/internal/models"
	"transcript-restream-service/internal/observability/logging"
)

var (
	ErrInvalidFilename    = errors.New("transcript: invalid filename")
	ErrTranscriptNotFound = errors.New("transcript: not found")
	ErrMissingColumn      = errors.New("transcript: missing column")
)

// Header spellings accepted for the time code column.
var timeColumns = []string{"time", "time_code", "seconds"}

// Loader reads transcripts from a single directory.
type Loader struct {
	dir string
}

// NewLoader creates a loader rooted at dir.
func NewLoader(dir string) *Loader {
	return &Loader{dir: dir}
}

// Dir returns the transcript directory.
func (l *Loader) Dir() string {
	return l.dir
}

// Load reads one transcript by bare filename.
func (l *Loader) Load(filename string) ([]models.TranscriptRecord, error) {
	if filename == "" || filename != filepath.Base(filename) || filename == "." || filename == ".." {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFilename, filename)
	}

	f, err := os.Open(filepath.Join(l.dir, filename))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrTranscriptNotFound, filename)
		}
		return nil, fmt.Errorf("open transcript %s: %w", filename, err)
	}
	defer f.Close()

	records, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse transcript %s: %w", filename, err)
	}
	return records, nil
}

// List loads every CSV file in the directory, sorted by filename.
// Files that fail to parse are logged and skipped. A missing directory is empty.
func (l *Loader) List() ([]models.TranscriptFile, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []models.TranscriptFile{}, nil
		}
		return nil, fmt.Errorf("read transcript dir: %w", err)
	}

	logger := logging.WithComponent("transcript-loader")
	files := make([]models.TranscriptFile, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		records, err := l.Load(e.Name())
		if err != nil {
			logger.Error().Err(err).Str("filename", e.Name()).Msg("Skipping transcript")
			continue
		}
		files = append(files, models.TranscriptFile{Filename: e.Name(), Records: records})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Filename < files[j].Filename })
	return files, nil
}

// Parse reads a CSV document with a header row naming its columns.
// Row order is preserved.
func Parse(r io.Reader) ([]models.TranscriptRecord, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty file has no header", ErrMissingColumn)
		}
		return nil, err
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}

	timeIdx := -1
	for _, name := range timeColumns {
		if i, ok := cols[name]; ok {
			timeIdx = i
			break
		}
	}
	speakerIdx, hasSpeaker := cols["speaker"]
	sentenceIdx, hasSentence := cols["sentence"]
	switch {
	case timeIdx < 0:
		return nil, fmt.Errorf("%w: time", ErrMissingColumn)
	case !hasSpeaker:
		return nil, fmt.Errorf("%w: speaker", ErrMissingColumn)
	case !hasSentence:
		return nil, fmt.Errorf("%w: sentence", ErrMissingColumn)
	}
	width := max(timeIdx, speakerIdx, sentenceIdx) + 1

	records := []models.TranscriptRecord{}
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(row) < width {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("line %d: expected at least %d fields, got %d", line, width, len(row))
		}
		records = append(records, models.TranscriptRecord{
			TimeCode: strings.TrimSpace(row[timeIdx]),
			Speaker:  row[speakerIdx],
			Sentence: row[sentenceIdx],
		})
	}
	return records, nil
}
