package gateway

import (
	"github.com/sahilm/fuzzy"
)

// fileNames adapts a file list to fuzzy.Source
type fileNames []File

func (f fileNames) String(i int) string { return f[i].Name }
func (f fileNames) Len() int            { return len(f) }

// FilterFiles returns the files whose names fuzzy-match query, best match
// first. An empty query returns files unchanged.
func FilterFiles(files []File, query string) []File {
	if query == "" {
		return files
	}
	matches := fuzzy.FindFrom(query, fileNames(files))
	out := make([]File, len(matches))
	for i, match := range matches {
		out[i] = files[match.Index]
	}
	return out
}
