package riblt

// Encoder produces coded symbols for a set.
type Encoder struct {
	window codingWindow
}

// AddSymbol adds a symbol to the set. All symbols must be added before the
// first coded symbol is produced.
func (e *Encoder) AddSymbol(s uint64) {
	e.window.addSymbol(newHashedSymbol(s))
}

// Len returns the number of symbols in the set.
func (e *Encoder) Len() int {
	return len(e.window.symbols)
}

// ProduceNextCodedSymbol returns the next coded symbol of the stream.
func (e *Encoder) ProduceNextCodedSymbol() CodedSymbol {
	return e.window.apply(CodedSymbol{}, add)
}

// Reset empties the encoder.
func (e *Encoder) Reset() {
	e.window.reset()
}
