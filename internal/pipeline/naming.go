package pipeline

import (
	"fmt"
	"path/filepath"
	"strings"

	"mocap/internal/framecut"
	"mocap/internal/textutil"
)

// ClipExtension is the file extension of written clips.
const ClipExtension = ".bvh"

// ClipName renders the clip file name for entry, the index-th (1-based) clip
// of its capture, from a template using {file}, {subject}, {style} and
// {index}.
func ClipName(tmpl string, entry framecut.Entry, index int) string {
	name := strings.NewReplacer(
		"{file}", textutil.SanitizeToken(entry.File),
		"{subject}", textutil.SanitizeToken(entry.Subject),
		"{style}", textutil.SanitizeToken(entry.Style),
		"{index}", fmt.Sprintf("%02d", index),
	).Replace(tmpl)
	return textutil.SanitizeFileName(name) + ClipExtension
}

// clipNames renders every entry's name and fails when two entries map to the
// same file, which happens when styles differ only in punctuation or case.
func clipNames(tmpl string, entries []framecut.Entry) ([]string, error) {
	names := make([]string, len(entries))
	seen := make(map[string]string, len(entries))
	for i, e := range entries {
		name := ClipName(tmpl, e, i+1)
		if prev, dup := seen[name]; dup {
			return nil, fmt.Errorf("styles %q and %q both produce clip name %q", prev, e.Style, name)
		}
		seen[name] = e.Style
		names[i] = name
	}
	return names, nil
}

// CaptureDir is the directory, below the output root, holding one capture's
// clips.
func CaptureDir(outputRoot, fileID string) string {
	return filepath.Join(outputRoot, textutil.SanitizeToken(fileID))
}
