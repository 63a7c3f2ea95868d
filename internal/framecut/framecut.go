// Package framecut indexes the frame-cut table that splits one continuous
// capture into labeled per-style ranges.
//
// The table is CSV with a header row naming the columns file, style,
// start_frame and end_frame (start and end are accepted as aliases) plus an
// optional subject column. Column order and header case are free. Ranges are
// half-open: start is the first frame of the clip, end is one past its last.
package framecut

import (
	"cmp"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"mocap/internal/mocaperr"
)

// Entry is one row of the frame-cut table.
type Entry struct {
	File    string `json:"file"`
	Subject string `json:"subject,omitempty"`
	Style   string `json:"style"`
	Start   int    `json:"start_frame"`
	End     int    `json:"end_frame"`
}

// Frames is the number of frames the entry covers.
func (e Entry) Frames() int { return e.End - e.Start }

// Index groups frame-cut entries by capture file ID.
type Index struct {
	byFile map[string][]Entry
}

type column int

const (
	colFile column = iota
	colSubject
	colStyle
	colStart
	colEnd
	numColumns
)

var headerAliases = map[string]column{
	"file":        colFile,
	"file_id":     colFile,
	"subject":     colSubject,
	"style":       colStyle,
	"start_frame": colStart,
	"start":       colStart,
	"end_frame":   colEnd,
	"end":         colEnd,
}

var columnNames = [numColumns]string{"file", "subject", "style", "start_frame", "end_frame"}

// FileID normalizes a capture path to the key used by the frame-cut table:
// the base name without a .bvh extension.
func FileID(path string) string {
	base := filepath.Base(strings.TrimSpace(path))
	if ext := filepath.Ext(base); strings.EqualFold(ext, ".bvh") {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}

// New indexes entries. File IDs are normalized with FileID. Two entries for
// the same file and style are rejected.
func New(entries []Entry) (*Index, error) {
	idx := &Index{byFile: make(map[string][]Entry)}
	for i, e := range entries {
		if err := idx.add(e); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
	}
	idx.sort()
	return idx, nil
}

func (idx *Index) add(e Entry) error {
	e.File = FileID(e.File)
	e.Subject = strings.TrimSpace(e.Subject)
	e.Style = strings.TrimSpace(e.Style)
	if e.File == "" || e.File == "." {
		return errors.New("file is empty")
	}
	if e.Style == "" {
		return errors.New("style is empty")
	}
	for _, existing := range idx.byFile[e.File] {
		if existing.Style == e.Style {
			return fmt.Errorf("duplicate cut for %s/%s", e.File, e.Style)
		}
	}
	idx.byFile[e.File] = append(idx.byFile[e.File], e)
	return nil
}

func (idx *Index) sort() {
	for _, entries := range idx.byFile {
		slices.SortStableFunc(entries, func(a, b Entry) int {
			return cmp.Or(cmp.Compare(a.Start, b.Start), cmp.Compare(a.End, b.End))
		})
	}
}

// Load reads a frame-cut table. Lines starting with # are ignored.
func Load(r io.Reader) (*Index, error) {
	reader := csv.NewReader(r)
	reader.Comment = '#'
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &mocaperr.ParseError{Msg: "frame-cut table is empty"}
		}
		return nil, csvError(err)
	}
	cols, err := mapHeader(header)
	if err != nil {
		return nil, err
	}

	idx := &Index{byFile: make(map[string][]Entry)}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, csvError(err)
		}
		line, _ := reader.FieldPos(0)
		e, err := parseRecord(record, cols)
		if err != nil {
			return nil, &mocaperr.ParseError{Line: line, Msg: err.Error()}
		}
		if err := idx.add(e); err != nil {
			return nil, &mocaperr.ParseError{Line: line, Msg: err.Error()}
		}
	}
	idx.sort()
	return idx, nil
}

// LoadFile reads the frame-cut table at path.
func LoadFile(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open frame-cut table %q: %w", path, err)
	}
	defer f.Close()

	idx, err := Load(f)
	if err != nil {
		var perr *mocaperr.ParseError
		if errors.As(err, &perr) {
			perr.Path = path
		}
		return nil, err
	}
	return idx, nil
}

func mapHeader(header []string) ([numColumns]int, error) {
	var cols [numColumns]int
	for i := range cols {
		cols[i] = -1
	}
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		c, ok := headerAliases[key]
		if !ok {
			continue
		}
		if cols[c] >= 0 {
			return cols, &mocaperr.ParseError{Line: 1, Msg: fmt.Sprintf("column %s appears twice in header", columnNames[c])}
		}
		cols[c] = i
	}
	for c, pos := range cols {
		if pos < 0 && column(c) != colSubject {
			return cols, &mocaperr.ParseError{Line: 1, Msg: fmt.Sprintf("header is missing column %s (expected: file,subject,style,start_frame,end_frame)", columnNames[c])}
		}
	}
	return cols, nil
}

func parseRecord(record []string, cols [numColumns]int) (Entry, error) {
	field := func(c column) string {
		if cols[c] < 0 || cols[c] >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[cols[c]])
	}
	start, err := strconv.Atoi(field(colStart))
	if err != nil {
		return Entry{}, fmt.Errorf("start_frame %q is not an integer", field(colStart))
	}
	end, err := strconv.Atoi(field(colEnd))
	if err != nil {
		return Entry{}, fmt.Errorf("end_frame %q is not an integer", field(colEnd))
	}
	return Entry{
		File:    field(colFile),
		Subject: field(colSubject),
		Style:   field(colStyle),
		Start:   start,
		End:     end,
	}, nil
}

func csvError(err error) error {
	var perr *csv.ParseError
	if errors.As(err, &perr) {
		return &mocaperr.ParseError{Line: perr.Line, Msg: "malformed frame-cut table", Err: perr.Err}
	}
	return &mocaperr.ParseError{Msg: "read frame-cut table", Err: err}
}

// RangesFor returns the entries for fileID sorted by start frame. A file with
// no cuts yields an empty slice.
func (idx *Index) RangesFor(fileID string) []Entry {
	return slices.Clone(idx.byFile[FileID(fileID)])
}

// Files returns every file ID in the table, sorted.
func (idx *Index) Files() []string {
	files := make([]string, 0, len(idx.byFile))
	for f := range idx.byFile {
		files = append(files, f)
	}
	slices.Sort(files)
	return files
}

// Len returns the total number of entries.
func (idx *Index) Len() int {
	n := 0
	for _, entries := range idx.byFile {
		n += len(entries)
	}
	return n
}

// ValidateAgainst checks the cuts of fileID against a capture with
// totalFrames frames: every range must be non-empty and lie inside
// [0, totalFrames), and no two ranges may share a frame.
func (idx *Index) ValidateAgainst(fileID string, totalFrames int) error {
	return ValidateRanges(idx.RangesFor(fileID), totalFrames)
}

// ValidateRanges applies the ValidateAgainst checks to entries, which must be
// sorted by start frame.
func ValidateRanges(entries []Entry, totalFrames int) error {
	for _, e := range entries {
		if err := CheckRange(e, totalFrames); err != nil {
			return err
		}
	}
	for i := 1; i < len(entries); i++ {
		prev, cur := entries[i-1], entries[i]
		if cur.Start < prev.End {
			return &mocaperr.OverlapError{
				File:        cur.File,
				FirstStyle:  prev.Style,
				FirstStart:  prev.Start,
				FirstEnd:    prev.End,
				SecondStyle: cur.Style,
				SecondStart: cur.Start,
				SecondEnd:   cur.End,
			}
		}
	}
	return nil
}

// CheckRange verifies a single entry against a capture of totalFrames frames.
func CheckRange(e Entry, totalFrames int) error {
	if e.Start < 0 || e.End <= e.Start || e.End > totalFrames {
		return &mocaperr.RangeOutOfBoundsError{
			File:   e.File,
			Style:  e.Style,
			Start:  e.Start,
			End:    e.End,
			Frames: totalFrames,
		}
	}
	return nil
}
