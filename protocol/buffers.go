package protocol

// Buffer is a fixed-capacity byte region with its filled length tracked
// alongside. The backing storage is supplied by the caller so that boards can
// place it in a statically allocated array.
type Buffer struct {
	data []byte
	n    int
}

// NewBuffer wraps storage; the buffer's capacity is len(storage)
func NewBuffer(storage []byte) *Buffer {
	return &Buffer{data: storage}
}

// Append stores b at the current length. Returns false if the buffer is full.
func (b *Buffer) Append(v byte) bool {
	if b.n >= len(b.data) {
		return false
	}
	b.data[b.n] = v
	b.n++
	return true
}

// At returns the byte at offset i of the storage, filled or not
func (b *Buffer) At(i int) byte {
	return b.data[i]
}

// Bytes returns the filled region
func (b *Buffer) Bytes() []byte {
	return b.data[:b.n]
}

// Len returns the number of filled bytes
func (b *Buffer) Len() int {
	return b.n
}

// Cap returns the buffer capacity
func (b *Buffer) Cap() int {
	return len(b.data)
}

// Full reports whether no more bytes can be appended
func (b *Buffer) Full() bool {
	return b.n >= len(b.data)
}

// Reset clears the buffer logically; storage contents are left in place
func (b *Buffer) Reset() {
	b.n = 0
}

// FifoBuffer is a circular buffer for serial I/O
type FifoBuffer struct {
	buf   []byte
	read  int
	write int
	size  int
}

// NewFifoBuffer creates a new FifoBuffer with the specified capacity
func NewFifoBuffer(capacity int) *FifoBuffer {
	return &FifoBuffer{
		buf:  make([]byte, capacity),
		size: capacity,
	}
}

// Write appends data to the FIFO buffer
func (f *FifoBuffer) Write(data []byte) int {
	written := 0
	for _, b := range data {
		nextWrite := (f.write + 1) % f.size
		if nextWrite == f.read {
			// Buffer full
			break
		}
		f.buf[f.write] = b
		f.write = nextWrite
		written++
	}
	return written
}

// Read reads up to len(data) bytes from the FIFO buffer
func (f *FifoBuffer) Read(data []byte) int {
	read := 0
	for i := range data {
		if f.read == f.write {
			break
		}
		data[i] = f.buf[f.read]
		f.read = (f.read + 1) % f.size
		read++
	}
	return read
}

// Available returns the number of bytes available for reading
func (f *FifoBuffer) Available() int {
	if f.write >= f.read {
		return f.write - f.read
	}
	return f.size - f.read + f.write
}

// Free returns the number of bytes available for writing
func (f *FifoBuffer) Free() int {
	return f.size - f.Available() - 1
}

// IsEmpty returns true if the buffer is empty
func (f *FifoBuffer) IsEmpty() bool {
	return f.read == f.write
}

// Reset clears the buffer
func (f *FifoBuffer) Reset() {
	f.read = 0
	f.write = 0
}
