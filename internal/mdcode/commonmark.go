package mdcode

import (
	"bytes"
	"regexp"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

const fenceChars = "`~"

// CommonMark finds fenced code blocks the way a CommonMark renderer sees
// them, including fences nested in lists and block quotes, tilde fences and
// fences embedded in commented markdown script elements. A fence that is
// never closed is not reported.
func CommonMark(source []byte) (Blocks, error) {
	parser := goldmark.DefaultParser()
	root := parser.Parse(text.NewReader(source)).OwnerDocument()

	var blocks Blocks

	err := ast.Walk(root, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		node = transformCommentedCodeBlock(node, entering, source)

		fcb := asFencedCodeBlock(node, entering)
		if fcb == nil {
			return ast.WalkContinue, nil
		}

		if block := extractBlock(fcb, source); block != nil {
			blocks = append(blocks, block)
		}

		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(blocks, func(i, j int) bool { return blocks[i].Start < blocks[j].Start })

	return dropOverlaps(blocks), nil
}

func dropOverlaps(blocks Blocks) Blocks {
	res := blocks[:0]
	end := -1

	for _, block := range blocks {
		if block.Start < end {
			continue
		}

		res = append(res, block)
		end = block.End
	}

	return res
}

func asFencedCodeBlock(node ast.Node, entering bool) *ast.FencedCodeBlock {
	if entering || node.Kind() != ast.KindFencedCodeBlock {
		return nil
	}

	if fcb, ok := node.(*ast.FencedCodeBlock); ok {
		return fcb
	}

	return nil
}

func extractBlock(fcb *ast.FencedCodeBlock, source []byte) *Block {
	start, afterOpening, ok := openingFence(fcb, source)
	if !ok {
		return nil
	}

	closeStart, end, ok := closingFence(fcb, source, afterOpening)
	if !ok {
		return nil
	}

	block := &Block{
		Indent:    indentAt(source, start),
		Raw:       source[start:end],
		Code:      extractCode(fcb, source),
		Start:     start,
		End:       end,
		StartLine: lineAt(source, start),
		EndLine:   lineAt(source, closeStart),
	}

	if fcb.Info != nil {
		block.Lang, block.Meta = parseInfo(fcb.Info.Text(source))
	}

	return block
}

// openingFence returns the offset of the first fence character of the
// opening line and the offset just past that line.
func openingFence(fcb *ast.FencedCodeBlock, source []byte) (int, int, bool) {
	if fcb.Info != nil {
		idx := fcb.Info.Segment.Start
		for idx > 0 && (source[idx-1] == ' ' || source[idx-1] == '\t') {
			idx--
		}

		for idx > 0 && strings.IndexByte(fenceChars, source[idx-1]) >= 0 {
			idx--
		}

		return idx, lineEnd(source, fcb.Info.Segment.Stop), true
	}

	lines := fcb.Lines()
	if lines.Len() == 0 {
		return 0, 0, false
	}

	eol := bytes.LastIndexByte(source[:lines.At(0).Start], '\n')
	if eol < 0 {
		return 0, 0, false
	}

	bol := bytes.LastIndexByte(source[:eol], '\n') + 1

	idx := bytes.IndexAny(source[bol:eol], fenceChars)
	if idx < 0 {
		return 0, 0, false
	}

	return bol + idx, eol + 1, true
}

// closingFence locates the closing fence line after the block content and
// returns the offsets of its first and one past its last fence character.
func closingFence(fcb *ast.FencedCodeBlock, source []byte, afterOpening int) (int, int, bool) {
	pos := afterOpening

	if lines := fcb.Lines(); lines.Len() > 0 {
		pos = lineEnd(source, lines.At(lines.Len()-1).Stop-1)
	}

	if pos >= len(source) {
		return 0, 0, false
	}

	eol := bytes.IndexByte(source[pos:], '\n')
	if eol < 0 {
		eol = len(source)
	} else {
		eol += pos
	}

	line := source[pos:eol]

	idx := bytes.IndexAny(line, fenceChars)
	if idx < 0 || len(bytes.Trim(line[:idx], " \t>")) != 0 {
		return 0, 0, false
	}

	stop := idx
	for stop < len(line) && line[stop] == line[idx] {
		stop++
	}

	const minFence = 3

	if stop-idx < minFence || len(bytes.TrimSpace(line[stop:])) != 0 {
		return 0, 0, false
	}

	return pos + idx, pos + stop, true
}

func indentAt(source []byte, offset int) []byte {
	bol := bytes.LastIndexByte(source[:offset], '\n') + 1

	prefix := source[bol:offset]
	if len(bytes.Trim(prefix, " \t>")) != 0 {
		return nil
	}

	return prefix
}

// lineEnd returns the offset just past the newline ending the line that
// holds offset, or len(source) on the last line.
func lineEnd(source []byte, offset int) int {
	if offset < 0 {
		offset = 0
	}

	if offset >= len(source) {
		return len(source)
	}

	idx := bytes.IndexByte(source[offset:], '\n')
	if idx < 0 {
		return len(source)
	}

	return offset + idx + 1
}

func extractCode(fcb *ast.FencedCodeBlock, source []byte) []byte {
	var buff bytes.Buffer

	lines := fcb.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)

		buff.Write(seg.Value(source))
	}

	return buff.Bytes()
}

var (
	reCommentedCodeBlock = regexp.MustCompile(`^\s*(<!--)?\s*<script\s*type=["']text/markdown["']\s*>\s*$`)
	reFences             = regexp.MustCompile("^\\s*```")
)

func transformCommentedCodeBlock(node ast.Node, entering bool, source []byte) ast.Node { //nolint:ireturn
	if entering || node.Kind() != ast.KindHTMLBlock {
		return node
	}

	html, ok := node.(*ast.HTMLBlock)
	if !ok {
		return node
	}

	const minLines = 2

	lines := html.Lines()
	if lines.Len() < minLines {
		return node
	}

	seg := lines.At(0)
	if !reCommentedCodeBlock.Match(seg.Value(source)) {
		return node
	}

	seg = lines.At(1)

	loc := reFences.FindIndex(seg.Value(source))
	if loc == nil {
		return node
	}

	info := ast.NewTextSegment(text.NewSegment(seg.Start+loc[1], seg.Stop-1))
	fcb := ast.NewFencedCodeBlock(info)

	seg = lines.At(lines.Len() - 1)
	if !reFences.Match(seg.Value(source)) {
		return node
	}

	segs := text.NewSegments()

	for i := 2; i < lines.Len()-1; i++ {
		segs.Append(lines.At(i))
	}

	fcb.SetLines(segs)

	return fcb
}
