// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ingestion

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/poiesic/ragprep/core"
	"github.com/saintfish/chardet"
	"github.com/tmc/langchaingo/documentloaders"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DefaultGlob selects the files a Loader reads.
const DefaultGlob = "*.txt"

// SkippedFile is a file the loader could not decode.
type SkippedFile struct {
	Path string
	Err  error
}

// LoadReport lists what a load read and what it skipped.
type LoadReport struct {
	Loaded  []string
	Skipped []SkippedFile
}

// Loader reads the matching files of one directory as documents.
type Loader struct {
	dir    string
	glob   string
	strict bool
	logger *slog.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithGlob sets the file name pattern. Default is DefaultGlob.
func WithGlob(glob string) LoaderOption {
	return func(l *Loader) {
		if glob != "" {
			l.glob = glob
		}
	}
}

// WithStrict makes any undecodable file fail the whole load instead of
// being skipped.
func WithStrict(strict bool) LoaderOption {
	return func(l *Loader) {
		l.strict = strict
	}
}

// NewLoader creates a loader for dir.
func NewLoader(dir string, opts ...LoaderOption) *Loader {
	l := &Loader{
		dir:    dir,
		glob:   DefaultGlob,
		logger: slog.Default().With("component", "loader"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Dir returns the directory the loader reads.
func (l *Loader) Dir() string {
	return l.dir
}

// Load reads every matching file, sorted by name, and returns one document
// per file. See LoadWithReport for the skip policy.
func (l *Loader) Load(ctx context.Context) ([]core.Document, error) {
	docs, _, err := l.LoadWithReport(ctx)
	return docs, err
}

// LoadWithReport is Load plus a report of skipped files.
//
// Files whose encoding cannot be detected or decoded are skipped with a
// warning unless the loader is strict. The load fails with
// ErrDocumentsNotFound when the directory is missing or has no matching
// files, and with ErrUndecodable when every matching file was skipped.
func (l *Loader) LoadWithReport(ctx context.Context) ([]core.Document, *LoadReport, error) {
	info, err := os.Stat(l.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, fmt.Errorf("%w: the directory %s does not exist: %w", ErrDocumentsNotFound, l.dir, fs.ErrNotExist)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("stat documents directory: %w", err)
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("%w: %s is not a directory: %w", ErrDocumentsNotFound, l.dir, fs.ErrNotExist)
	}

	names, err := fs.Glob(os.DirFS(l.dir), l.glob)
	if err != nil {
		return nil, nil, fmt.Errorf("bad glob %q: %w", l.glob, err)
	}
	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = filepath.Join(l.dir, name)
	}
	paths = regularFiles(paths)
	if len(paths) == 0 {
		return nil, nil, fmt.Errorf("%w: no %s files found in %s: %w", ErrDocumentsNotFound, l.glob, l.dir, fs.ErrNotExist)
	}
	sort.Strings(paths)

	report := &LoadReport{}
	docs := make([]core.Document, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, report, err
		}

		doc, err := l.loadFile(ctx, path)
		if err != nil {
			if l.strict {
				return nil, report, err
			}
			l.logger.Warn("skipping document", "path", path, "err", err)
			report.Skipped = append(report.Skipped, SkippedFile{Path: path, Err: err})
			continue
		}
		docs = append(docs, doc)
		report.Loaded = append(report.Loaded, path)
	}

	if len(docs) == 0 {
		return nil, report, fmt.Errorf("%w: none of the %d files in %s could be decoded", ErrUndecodable, len(paths), l.dir)
	}

	l.logger.Info("loaded documents", "dir", l.dir, "loaded", len(docs), "skipped", len(report.Skipped))
	return docs, report, nil
}

func (l *Loader) loadFile(ctx context.Context, path string) (core.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return core.Document{}, err
	}

	r, charset, err := decoder(data)
	if err != nil {
		return core.Document{}, fmt.Errorf("%w: %s: %w", ErrUndecodable, path, err)
	}

	loaded, err := documentloaders.NewText(r).Load(ctx)
	if err != nil {
		return core.Document{}, fmt.Errorf("%w: %s: %w", ErrUndecodable, path, err)
	}
	var content strings.Builder
	for _, d := range loaded {
		content.WriteString(d.PageContent)
	}
	text := content.String()
	if strings.ContainsRune(text, 0) {
		return core.Document{}, fmt.Errorf("%w: %s: binary content", ErrUndecodable, path)
	}

	l.logger.Debug("decoded document", "path", path, "charset", charset, "bytes", len(data))
	return core.Document{Source: path, Content: text}, nil
}

// decoder returns a reader yielding data as UTF-8. A byte order mark or
// valid UTF-8 wins; anything else goes through charset detection.
func decoder(data []byte) (io.Reader, string, error) {
	if hasBOM(data) || utf8.Valid(data) {
		return transform.NewReader(bytes.NewReader(data), unicode.BOMOverride(transform.Nop)), "UTF-8", nil
	}

	result, err := chardet.NewTextDetector().DetectBest(data)
	if err != nil {
		return nil, "", fmt.Errorf("detect charset: %w", err)
	}
	if result.Confidence <= 0 {
		return nil, "", errors.New("no charset matched")
	}

	enc, err := htmlindex.Get(result.Charset)
	if err != nil {
		return nil, "", fmt.Errorf("unsupported charset %s: %w", result.Charset, err)
	}
	return transform.NewReader(bytes.NewReader(data), enc.NewDecoder()), result.Charset, nil
}

func hasBOM(data []byte) bool {
	return bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}) ||
		bytes.HasPrefix(data, []byte{0xFE, 0xFF}) ||
		bytes.HasPrefix(data, []byte{0xFF, 0xFE})
}

func regularFiles(paths []string) []string {
	files := paths[:0]
	for _, p := range paths {
		if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() {
			files = append(files, p)
		}
	}
	return files
}
