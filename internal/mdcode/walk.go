package mdcode

import (
	"bytes"
)

// Walker is a callback invoked for each fenced code block found in a Markdown
// document. The walker may replace block.Raw; any changes are written back
// into the document by [Walk].
type Walker func(block *Block) error

type change struct {
	start int
	stop  int
	raw   []byte
}

func (c *change) sizeIncrement() int {
	return len(c.raw) - (c.stop - c.start)
}

// Walk locates the blocks of a Markdown document with find and calls walker
// for every one of them, in document order. If the walker replaces any
// block's Raw text, Walk returns true and the updated document. When no
// blocks are modified, it returns false and a nil slice.
func Walk(source []byte, find Finder, walker Walker) (bool, []byte, error) {
	blocks, err := find(source)
	if err != nil {
		return false, nil, err
	}

	var changes []*change

	for _, block := range blocks {
		start, stop, raw := block.Start, block.End, block.Raw

		if err := walker(block); err != nil {
			return false, nil, err
		}

		if !bytes.Equal(raw, block.Raw) {
			changes = append(changes, &change{start: start, stop: stop, raw: block.Raw})
		}
	}

	if len(changes) == 0 {
		return false, nil, nil
	}

	return true, applyChanges(changes, source), nil
}

func applyChanges(changes []*change, source []byte) []byte {
	resSize := len(source)

	for _, change := range changes {
		resSize += change.sizeIncrement()
	}

	result := make([]byte, resSize)

	var srcIdx, resIdx int

	for _, change := range changes {
		copy(result[resIdx:], source[srcIdx:change.start])
		resIdx += (change.start - srcIdx)

		copy(result[resIdx:], change.raw)
		resIdx += len(change.raw)

		srcIdx = change.stop
	}

	copy(result[resIdx:], source[srcIdx:])

	return result
}

func lineAt(source []byte, offset int) int {
	if offset > len(source) {
		offset = len(source)
	}

	return bytes.Count(source[:offset], []byte("\n")) + 1
}
