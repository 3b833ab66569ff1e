// Package raw wraps fenced code blocks holding template delimiters in
// raw-escape markers, so a template engine renders them verbatim.
package raw

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ezerfernandes/rawfence/internal/mdcode"
)

// Markers is the pair of literals the target template engine uses to
// suppress directive interpretation.
type Markers struct {
	Open  string
	Close string
}

// Liquid holds the Jekyll/Liquid raw tags.
var Liquid = Markers{Open: "{% raw %}", Close: "{% endraw %}"} //nolint:gochecknoglobals

// DefaultTriggers lists the sequences that make a block template-sensitive.
func DefaultTriggers() []string {
	return []string{"{{", "}}"}
}

// MetaKey is the info-string metadata key controlling a single block.
// A block declared with rawfence=skip is never wrapped.
const (
	MetaKey  = "rawfence"
	MetaSkip = "skip"
)

const (
	newline     = "\n"
	crlfNewline = "\r\n"
)

// Rewriter wraps template-sensitive blocks. The zero value uses the Liquid
// markers, the default triggers and the [mdcode.Fences] finder.
type Rewriter struct {
	Markers  Markers
	Triggers []string
	Find     mdcode.Finder
	// Filter, when set, restricts wrapping to the blocks it accepts.
	Filter func(block *mdcode.Block) bool
}

// Result describes what a single Rewrite call did.
type Result struct {
	Blocks  int
	Escaped int
	Skipped int
	Wrapped mdcode.Blocks
}

// State classifies a template-sensitive block.
type State string

const (
	stateNone    State = ""
	StateWrap    State = "wrap"
	StateEscaped State = "escaped"
	StateSkipped State = "skipped"
)

// Rewrite wraps the template-sensitive blocks of text with the default
// settings.
func Rewrite(text string) string {
	var rewriter Rewriter

	res, _, err := rewriter.Rewrite([]byte(text))
	if err != nil {
		return text
	}

	return string(res)
}

// Validate reports whether the rewriter settings can produce output.
func (r *Rewriter) Validate() error {
	markers := r.markers()

	if len(markers.Open) == 0 || len(markers.Close) == 0 {
		return fmt.Errorf("%w: open and close must not be empty", ErrInvalidMarkers)
	}

	if markers.Open == markers.Close {
		return fmt.Errorf("%w: open and close must differ", ErrInvalidMarkers)
	}

	triggers := r.triggers()
	if len(triggers) == 0 {
		return ErrNoTriggers
	}

	for _, trigger := range triggers {
		if len(trigger) == 0 {
			return fmt.Errorf("%w: empty trigger", ErrNoTriggers)
		}
	}

	return nil
}

// Rewrite returns source with every template-sensitive block wrapped in the
// raw markers. Blocks already containing the open marker, and blocks inside
// a raw region opened in the surrounding text, are left untouched. When
// nothing is wrapped, source itself is returned.
func (r *Rewriter) Rewrite(source []byte) ([]byte, *Result, error) {
	if err := r.Validate(); err != nil {
		return nil, nil, err
	}

	res := new(Result)

	changed, out, err := r.walk(source, func(block *mdcode.Block, state State) {
		res.Blocks++

		switch state {
		case StateEscaped:
			res.Escaped++
		case StateSkipped:
			res.Skipped++
		case StateWrap:
			block.Raw = r.wrap(block)
			res.Wrapped = append(res.Wrapped, block)
		}
	})
	if err != nil {
		return nil, nil, err
	}

	if !changed {
		return source, res, nil
	}

	return out, res, nil
}

// Finding is a template-sensitive block and what Rewrite would do with it.
type Finding struct {
	Block *mdcode.Block
	State State
}

// Inspect classifies every template-sensitive block of source without
// modifying it.
func (r *Rewriter) Inspect(source []byte) ([]Finding, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	var findings []Finding

	_, _, err := r.walk(source, func(block *mdcode.Block, state State) {
		if state != stateNone {
			findings = append(findings, Finding{Block: block, State: state})
		}
	})
	if err != nil {
		return nil, err
	}

	return findings, nil
}

// walk calls visit for every block with its state; state is empty for
// blocks holding no trigger.
func (r *Rewriter) walk(source []byte, visit func(*mdcode.Block, State)) (bool, []byte, error) {
	var (
		prev  int
		inRaw bool
	)

	return mdcode.Walk(source, r.finder(), func(block *mdcode.Block) error {
		inRaw = r.scanRegion(source[prev:block.Start], inRaw)
		prev = block.End

		visit(block, r.classify(block, inRaw))

		return nil
	})
}

func (r *Rewriter) classify(block *mdcode.Block, inRaw bool) State {
	if !r.sensitive(block.Raw) {
		return stateNone
	}

	if inRaw || bytes.Contains(block.Raw, []byte(r.markers().Open)) {
		return StateEscaped
	}

	if block.Meta.Get(MetaKey) == MetaSkip || (r.Filter != nil && !r.Filter(block)) {
		return StateSkipped
	}

	return StateWrap
}

func (r *Rewriter) sensitive(raw []byte) bool {
	for _, trigger := range r.triggers() {
		if bytes.Contains(raw, []byte(trigger)) {
			return true
		}
	}

	return false
}

// scanRegion follows open and close markers through text lying outside
// code blocks and returns whether a raw region is open at its end.
func (r *Rewriter) scanRegion(text []byte, open bool) bool {
	markers := r.markers()

	for {
		marker := markers.Open
		if open {
			marker = markers.Close
		}

		idx := bytes.Index(text, []byte(marker))
		if idx < 0 {
			return open
		}

		open = !open
		text = text[idx+len(marker):]
	}
}

func (r *Rewriter) wrap(block *mdcode.Block) []byte {
	markers := r.markers()

	eol := lineEnding(block.Raw)

	var buff bytes.Buffer

	buff.Grow(len(markers.Open) + len(markers.Close) + len(block.Raw) + 2*(len(block.Indent)+len(eol)))

	buff.WriteString(markers.Open)
	buff.WriteString(eol)
	buff.Write(block.Indent)
	buff.Write(block.Raw)
	buff.WriteString(eol)
	buff.Write(block.Indent)
	buff.WriteString(markers.Close)

	return buff.Bytes()
}

// lineEnding returns the line ending of the opening fence line.
func lineEnding(raw []byte) string {
	if idx := bytes.IndexByte(raw, '\n'); idx > 0 && raw[idx-1] == '\r' {
		return crlfNewline
	}

	return newline
}

func (r *Rewriter) markers() Markers {
	if len(r.Markers.Open) == 0 && len(r.Markers.Close) == 0 {
		return Liquid
	}

	return r.Markers
}

func (r *Rewriter) triggers() []string {
	if r.Triggers == nil {
		return DefaultTriggers()
	}

	return r.Triggers
}

func (r *Rewriter) finder() mdcode.Finder {
	if r.Find == nil {
		return mdcode.Fences
	}

	return r.Find
}

var (
	// ErrInvalidMarkers is returned when the raw markers cannot delimit a region.
	ErrInvalidMarkers = errors.New("invalid raw markers")
	// ErrNoTriggers is returned when no trigger sequence is configured.
	ErrNoTriggers = errors.New("no trigger sequences")
)
