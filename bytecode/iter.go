package bytecode

// WordIter iterates over the complete words of a bytecode image. Trailing
// bytes that do not form a full word are skipped and reported by Remainder.
type WordIter struct {
	image []byte
	pos   int
}

// NewWordIter creates a new word iterator for the given image.
func NewWordIter(image []byte) *WordIter {
	return &WordIter{image: image}
}

// Next returns the index and value of the next word.
// Returns false when there are no more complete words.
func (i *WordIter) Next() (int, Word, bool) {
	if i.pos+WordSize > len(i.image) {
		return 0, Word{}, false
	}
	index := i.pos / WordSize
	w, _ := DecodeWord(i.image[i.pos : i.pos+WordSize])
	i.pos += WordSize
	return index, w, true
}

// All returns all words as a newly allocated slice.
// This is a convenience method that collects all results from Next().
func (i *WordIter) All() []Word {
	var results []Word
	for {
		_, w, ok := i.Next()
		if !ok {
			break
		}
		results = append(results, w)
	}
	return results
}

// Count returns the number of complete words in the image.
func (i *WordIter) Count() int {
	return len(i.image) / WordSize
}

// Remainder returns the number of trailing bytes that do not form a word.
func (i *WordIter) Remainder() int {
	return len(i.image) % WordSize
}
