package mdcode

// Unfence returns all fenced code blocks located by find without modifying
// the source.
func Unfence(source []byte, find Finder) (Blocks, error) {
	var blocks Blocks

	_, _, err := Walk(source, find, func(block *Block) error {
		blocks = append(blocks, block)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return blocks, nil
}
