// Package loader turns files on disk into page-level documents.
package loader

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docchat/internal/document"
)

// Parser converts raw file bytes into page documents attributed to source.
type Parser interface {
	Parse(r io.Reader, source string) ([]document.Document, error)
}

// SupportedExtensions lists file extensions the loader can handle.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".csv":      true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// Options tunes individual parsers.
type Options struct {
	FallbackPdftotext bool
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string, opts Options) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".csv":
		return &CSVParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{FallbackPdftotext: opts.FallbackPdftotext}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// Loader reads supported files from disk.
type Loader struct {
	opts Options
	log  *slog.Logger
}

func New(opts Options, log *slog.Logger) *Loader {
	return &Loader{opts: opts, log: log}
}

// LoadDir loads every supported file under dir in lexical path order.
// Hidden files and directories are skipped. A file that fails to parse is
// logged and skipped so one bad upload does not block the rest.
func (l *Loader) LoadDir(ctx context.Context, dir string) ([]document.Document, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("stat source dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source %s is not a directory", dir)
	}

	var paths []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !IsSupportedExtension(path) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk source dir: %w", err)
	}

	var docs []document.Document
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fileDocs, err := l.LoadFile(ctx, path)
		if err != nil {
			l.log.Warn("skipping unreadable file", "path", path, "error", err)
			continue
		}
		docs = append(docs, fileDocs...)
	}

	l.log.Info("loaded documents", "dir", dir, "files", len(paths), "pages", len(docs))
	return docs, nil
}

// LoadFile loads a single file. The cleaned path is used as the source, so
// "./data/a.txt" and the "data/a.txt" seen by LoadDir map to the same ids.
func (l *Loader) LoadFile(ctx context.Context, path string) ([]document.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path = filepath.Clean(path)
	p, err := ForFile(path, l.opts)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	docs, err := p.Parse(f, path)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	l.log.Debug("loaded file", "path", path, "pages", len(docs))
	return docs, nil
}

// baseTitle strips directory and extension from a source path.
func baseTitle(source string) string {
	base := filepath.Base(source)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
