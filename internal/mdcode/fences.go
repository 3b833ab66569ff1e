package mdcode

import (
	"bytes"
	"regexp"
)

// reFenced matches an opening fence line, the shortest run of content lines
// and the nearest closing line made of backticks only. Group 1 is the info
// string, group 2 the closing backticks.
var reFenced = regexp.MustCompile("(?m)^`{3,}([^\\n]*)\\n(?:[\\s\\S]*?\\n)??(`{3,})[ \\t]*\\r?$")

// Fences finds fenced code blocks with a line-oriented scan. An opening fence
// without a closing line is not reported.
func Fences(source []byte) (Blocks, error) {
	var blocks Blocks

	for _, loc := range reFenced.FindAllSubmatchIndex(source, -1) {
		start, infoStart, infoStop := loc[0], loc[2], loc[3]
		closeStart, closeStop := loc[4], loc[5]

		block := &Block{
			Raw:       source[start:closeStop],
			Code:      source[infoStop+1 : closeStart],
			Start:     start,
			End:       closeStop,
			StartLine: lineAt(source, start),
			EndLine:   lineAt(source, closeStart),
		}
		block.Lang, block.Meta = parseInfo(bytes.TrimSuffix(source[infoStart:infoStop], []byte("\r")))

		blocks = append(blocks, block)
	}

	return blocks, nil
}
