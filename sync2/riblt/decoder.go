package riblt

// Decoder recovers the difference between its set and the encoder set.
type Decoder struct {
	// coded symbols received so far, with known symbols peeled off
	cs []CodedSymbol
	// symbols of the local set
	window codingWindow
	// decoded symbols present only in the local set
	local codingWindow
	// decoded symbols present only in the remote set
	remote codingWindow
	// indices of coded symbols that may be pure
	decodable []int
}

// AddSymbol adds a symbol of the local set. All symbols must be added before
// the first coded symbol.
func (d *Decoder) AddSymbol(s uint64) {
	d.window.addSymbol(newHashedSymbol(s))
}

// Len returns the number of local symbols.
func (d *Decoder) Len() int {
	return len(d.window.symbols)
}

// AddCodedSymbol adds the next coded symbol of the remote stream.
func (d *Decoder) AddCodedSymbol(c CodedSymbol) {
	c = d.window.apply(c, remove)
	c = d.remote.apply(c, remove)
	c = d.local.apply(c, add)
	d.cs = append(d.cs, c)
	if c.pure() || c.zero() {
		d.decodable = append(d.decodable, len(d.cs)-1)
	}
}

// Received returns the number of coded symbols added.
func (d *Decoder) Received() int {
	return len(d.cs)
}

func (d *Decoder) peel(s HashedSymbol, direction int64) mapping {
	m := mapping{prng: s.Hash}
	for m.last < uint64(len(d.cs)) {
		i := int(m.last)
		d.cs[i] = d.cs[i].apply(s, direction)
		if d.cs[i].pure() {
			d.decodable = append(d.decodable, i)
		}
		m.nextIndex()
	}
	return m
}

// TryDecode peels every pure coded symbol. It returns ErrInvalidDegree if a
// candidate cell turned out to hold several symbols; this is not fatal, the
// decoder needs more coded symbols.
func (d *Decoder) TryDecode() error {
	var invalid bool
	for k := 0; k < len(d.decodable); k++ {
		c := d.cs[d.decodable[k]]
		switch {
		case c.zero():
		case c.Count == 1 && c.pure():
			s := HashedSymbol{Symbol: c.Sum, Hash: c.Checksum}
			d.remote.addWithMapping(s, d.peel(s, remove))
		case c.Count == -1 && c.pure():
			s := HashedSymbol{Symbol: c.Sum, Hash: c.Checksum}
			d.local.addWithMapping(s, d.peel(s, add))
		case c.Count < -1 || c.Count > 1:
			invalid = true
		}
	}
	d.decodable = d.decodable[:0]
	if invalid && !d.Decoded() {
		return ErrInvalidDegree
	}
	return nil
}

// Decoded returns true once every received coded symbol is fully peeled. The
// difference is then complete if at least one coded symbol was received.
func (d *Decoder) Decoded() bool {
	if len(d.cs) == 0 {
		return false
	}
	for _, c := range d.cs {
		if !c.zero() {
			return false
		}
	}
	return true
}

// RemoteSymbols returns the symbols present only in the remote set.
func (d *Decoder) RemoteSymbols() []uint64 {
	return d.remote.values()
}

// LocalSymbols returns the symbols present only in the local set.
func (d *Decoder) LocalSymbols() []uint64 {
	return d.local.values()
}

// Reset empties the decoder.
func (d *Decoder) Reset() {
	clear(d.cs)
	d.cs = d.cs[:0]
	d.decodable = d.decodable[:0]
	d.window.reset()
	d.local.reset()
	d.remote.reset()
}
