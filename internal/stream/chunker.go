// Package stream repackages variable-sized model output fragments into
// bounded, client-friendly pieces.
package stream

// Chunker accumulates text fragments and re-emits them as fixed-maximum-size
// chunks. Every byte pushed is emitted exactly once, in arrival order: either
// inside a full-size chunk or in the final Flush. A Chunker is single-pass and
// not safe for concurrent use; each stream gets its own.
type Chunker struct {
	buf []byte
	max int
}

func NewChunker(max int) *Chunker {
	if max < 1 {
		max = 1
	}
	return &Chunker{max: max}
}

// Push appends fragment to the buffer and returns every full chunk that is now
// available. Fragments may be of arbitrary, non-uniform size.
func (c *Chunker) Push(fragment string) []string {
	c.buf = append(c.buf, fragment...)
	if len(c.buf) < c.max {
		return nil
	}
	var out []string
	for len(c.buf) >= c.max {
		out = append(out, string(c.buf[:c.max]))
		c.buf = c.buf[c.max:]
	}
	return out
}

// Flush returns the buffered remainder, if any, as a final possibly-short
// chunk. After Flush the chunker is empty.
func (c *Chunker) Flush() (string, bool) {
	if len(c.buf) == 0 {
		return "", false
	}
	out := string(c.buf)
	c.buf = c.buf[:0]
	return out, true
}

// ChunkAll runs a whole fragment sequence through a fresh chunker. Useful when
// the input is already fully buffered, e.g. re-chunking a stored report.
func ChunkAll(fragments []string, max int) []string {
	c := NewChunker(max)
	var out []string
	for _, f := range fragments {
		out = append(out, c.Push(f)...)
	}
	if rest, ok := c.Flush(); ok {
		out = append(out, rest)
	}
	return out
}

// Emitter pipes chunker output into a write callback, the same shape the SSE
// stream writers use. Close flushes the remainder.
type Emitter struct {
	chunker *Chunker
	emit    func(chunk string) error
}

func NewEmitter(max int, emit func(chunk string) error) *Emitter {
	return &Emitter{chunker: NewChunker(max), emit: emit}
}

func (e *Emitter) Write(fragment string) error {
	for _, chunk := range e.chunker.Push(fragment) {
		if err := e.emit(chunk); err != nil {
			return err
		}
	}
	return nil
}

func (e *Emitter) Close() error {
	rest, ok := e.chunker.Flush()
	if !ok {
		return nil
	}
	return e.emit(rest)
}
