package mdcode

// Block is a fenced code block located in a Markdown document. Raw spans
// from the first opening fence character to the last closing one. Indent is
// the container prefix (blanks, block quote markers) preceding the opening
// fence on its line.
type Block struct {
	Lang      string
	Indent    []byte
	Meta      Meta
	Raw       []byte
	Code      []byte
	Start     int
	End       int
	StartLine int
	EndLine   int
}

type Blocks []*Block

// Finder locates the fenced code blocks of a document. Blocks are returned
// in document order and never overlap.
type Finder func(source []byte) (Blocks, error)
