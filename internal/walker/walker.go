// Package walker applies a raw.Rewriter to every Markdown file of a tree.
package walker

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/gobwas/glob"

	"github.com/ezerfernandes/rawfence/internal/mdcode"
	"github.com/ezerfernandes/rawfence/internal/raw"
)

// DefaultExtension selects the files a Walker visits when none is set.
const DefaultExtension = ".md"

// FS is a file system the walker can read from and write back to.
type FS interface {
	fs.FS
	WriteFile(name string, data []byte, perm fs.FileMode) error
}

type dirFS struct {
	fs.FS
	root string
}

// DirFS returns an FS rooted at the given directory of the host file system.
func DirFS(root string) FS {
	return &dirFS{FS: os.DirFS(root), root: root}
}

func (d *dirFS) WriteFile(name string, data []byte, perm fs.FileMode) error {
	if !fs.ValidPath(name) {
		return &fs.PathError{Op: "write", Path: name, Err: fs.ErrInvalid}
	}

	return os.WriteFile(filepath.Join(d.root, filepath.FromSlash(name)), data, perm)
}

// Event identifies the kind of status line reported by a Walker.
type Event int

const (
	EventCheck Event = iota
	EventWrap
	EventFix
)

// Walker rewrites the selected files of FS in place.
type Walker struct {
	FS FS
	// Extension is the literal, case-sensitive suffix of selected file names.
	Extension string
	// Exclude holds glob patterns matched against slash-separated paths
	// relative to the root. Matching directories are not descended.
	Exclude []glob.Glob
	// Rewriter is used for every file; a nil Rewriter uses default settings.
	Rewriter *raw.Rewriter
	// Status, when set, is called with trace lines about the walk.
	Status func(event Event, format string, args ...interface{})
	// DryRun reports what would change without writing anything.
	DryRun bool
	// KeepGoing records per-file failures and continues with the next file
	// instead of halting the walk.
	KeepGoing bool
}

// FileResult describes the outcome for one visited file.
type FileResult struct {
	Path    string
	Blocks  int
	Escaped int
	Skipped int
	Wrapped mdcode.Blocks
	Changed bool
	Err     error
}

// Report collects the results of a walk in visiting order.
type Report struct {
	Files []*FileResult
}

// Changed returns the files whose content was (or, in dry-run, would be)
// rewritten.
func (r *Report) Changed() []*FileResult {
	return r.collect(func(f *FileResult) bool { return f.Changed })
}

// Failed returns the files that could not be processed.
func (r *Report) Failed() []*FileResult {
	return r.collect(func(f *FileResult) bool { return f.Err != nil })
}

func (r *Report) collect(pred func(*FileResult) bool) []*FileResult {
	var res []*FileResult

	for _, f := range r.Files {
		if pred(f) {
			res = append(res, f)
		}
	}

	return res
}

// CompileExcludes compiles slash-separated glob patterns for [Walker.Exclude].
func CompileExcludes(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))

	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("exclude %q: %w", pattern, err)
		}

		globs = append(globs, g)
	}

	return globs, nil
}

// Files returns the slash-separated paths, relative to the root of FS, of
// every regular file the walker selects, in lexical order. Symbolic links
// to regular files are selected too; they are not followed into
// directories.
func (w *Walker) Files() ([]string, error) {
	var files []string

	err := fs.WalkDir(sortedFS{w.FS}, ".", func(name string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if name != "." && w.excluded(name) {
			if entry.IsDir() {
				return fs.SkipDir
			}

			return nil
		}

		if strings.HasSuffix(entry.Name(), w.extension()) && w.regular(name, entry) {
			files = append(files, name)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return files, nil
}

// Walk visits every file returned by [Walker.Files] and rewrites it when
// needed. The returned report is complete up to the point a failure halted
// the walk.
func (w *Walker) Walk() (*Report, error) {
	report := new(Report)

	files, err := w.Files()
	if err != nil {
		return report, err
	}

	for _, name := range files {
		result := w.visit(name)
		report.Files = append(report.Files, result)

		if result.Err != nil && !w.KeepGoing {
			return report, result.Err
		}
	}

	if failed := report.Failed(); len(failed) > 0 {
		return report, fmt.Errorf("%w: %d file(s)", ErrFailed, len(failed))
	}

	return report, nil
}

// sortedFS lists directories in lexical order whatever the underlying FS
// guarantees.
type sortedFS struct {
	fs.FS
}

func (s sortedFS) ReadDir(name string) ([]fs.DirEntry, error) {
	entries, err := fs.ReadDir(s.FS, name)
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	return entries, nil
}

func (w *Walker) visit(name string) *FileResult {
	result := &FileResult{Path: name}

	w.status(EventCheck, "Checking: %s", name)

	info, err := fs.Stat(w.FS, name)
	if err != nil {
		result.Err = err

		return result
	}

	orig, err := fs.ReadFile(w.FS, name)
	if err != nil {
		result.Err = err

		return result
	}

	if !utf8.Valid(orig) {
		result.Err = fmt.Errorf("%s: %w", name, ErrInvalidEncoding)

		return result
	}

	fixed, res, err := w.rewriter().Rewrite(orig)
	if err != nil {
		result.Err = fmt.Errorf("%s: %w", name, err)

		return result
	}

	result.Blocks, result.Escaped, result.Skipped, result.Wrapped = res.Blocks, res.Escaped, res.Skipped, res.Wrapped

	for _, block := range res.Wrapped {
		w.status(EventWrap, "Wrapping block with {{ ... }} (%s:%d-%d)", name, block.StartLine, block.EndLine)
	}

	if len(res.Wrapped) == 0 {
		return result
	}

	result.Changed = true

	if w.DryRun {
		w.status(EventFix, "Would fix: %s", name)

		return result
	}

	if err := w.FS.WriteFile(name, fixed, info.Mode().Perm()); err != nil {
		result.Err = fmt.Errorf("%s: %w", name, err)

		return result
	}

	w.status(EventFix, "Fixed: %s", name)

	return result
}

func (w *Walker) regular(name string, entry fs.DirEntry) bool {
	if entry.Type().IsRegular() {
		return true
	}

	if entry.Type()&fs.ModeSymlink == 0 {
		return false
	}

	info, err := fs.Stat(w.FS, name)

	return err == nil && info.Mode().IsRegular()
}

func (w *Walker) excluded(name string) bool {
	for _, g := range w.Exclude {
		if g.Match(name) || g.Match(path.Base(name)) {
			return true
		}
	}

	return false
}

func (w *Walker) extension() string {
	if len(w.Extension) == 0 {
		return DefaultExtension
	}

	return w.Extension
}

func (w *Walker) rewriter() *raw.Rewriter {
	if w.Rewriter == nil {
		return new(raw.Rewriter)
	}

	return w.Rewriter
}

func (w *Walker) status(event Event, format string, args ...interface{}) {
	if w.Status != nil {
		w.Status(event, format, args...)
	}
}

var (
	// ErrInvalidEncoding is returned for files that are not valid UTF-8.
	ErrInvalidEncoding = errors.New("not valid UTF-8 text")
	// ErrFailed is returned by [Walker.Walk] in KeepGoing mode when at least
	// one file could not be processed.
	ErrFailed = errors.New("failed to process")
)
