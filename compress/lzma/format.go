package lzma

import (
	"amlkit/kernel"
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"io"
)

const (
	// HeaderSize is the size of the .lzma file header: the properties
	// byte, the dictionary size and the uncompressed size.
	HeaderSize = 13

	// FooterSize is the size of the optional integrity footer: the
	// uncompressed size and the CRC-32 of the compressed and uncompressed
	// bytes.
	FooterSize = 16

	unknownSize = ^uint64(0)

	writerQueueSize = 1 << 16
	readerChunkSize = 1 << 15
)

// Header is the .lzma file header.
type Header struct {
	Props    Props
	DictSize uint32

	// Size is the uncompressed size or -1 if it is not known, in which
	// case the stream ends with an end marker.
	Size int64
}

// ParseHeader decodes the first HeaderSize bytes of b.
func ParseHeader(b []byte) (Header, *kernel.Error) {
	if len(b) < HeaderSize {
		return Header{}, errInputEOF.WithDetail("short file header")
	}

	props, err := PropsFromByte(b[0])
	if err != nil {
		return Header{}, err
	}

	h := Header{
		Props:    props,
		DictSize: binary.LittleEndian.Uint32(b[1:5]),
		Size:     -1,
	}
	if size := binary.LittleEndian.Uint64(b[5:13]); size != unknownSize {
		if size > 1<<62 {
			return Header{}, errCorrupt.WithDetail("uncompressed size out of range")
		}
		h.Size = int64(size)
	}
	return h, nil
}

// Bytes encodes the header.
func (h Header) Bytes() []byte {
	b := make([]byte, HeaderSize)
	b[0] = h.Props.Byte()
	binary.LittleEndian.PutUint32(b[1:5], h.DictSize)
	size := unknownSize
	if h.Size >= 0 {
		size = uint64(h.Size)
	}
	binary.LittleEndian.PutUint64(b[5:13], size)
	return b
}

// Footer is the optional trailer that follows the packet stream.
type Footer struct {
	Size          uint64
	CompressedCRC uint32
	CRC           uint32
}

// ParseFooter decodes the first FooterSize bytes of b.
func ParseFooter(b []byte) Footer {
	return Footer{
		Size:          binary.LittleEndian.Uint64(b[0:8]),
		CompressedCRC: binary.LittleEndian.Uint32(b[8:12]),
		CRC:           binary.LittleEndian.Uint32(b[12:16]),
	}
}

// Bytes encodes the footer.
func (f Footer) Bytes() []byte {
	b := make([]byte, FooterSize)
	binary.LittleEndian.PutUint64(b[0:8], f.Size)
	binary.LittleEndian.PutUint32(b[8:12], f.CompressedCRC)
	binary.LittleEndian.PutUint32(b[12:16], f.CRC)
	return b
}

// WriterOptions configure a Writer.
type WriterOptions struct {
	Options

	// Size is the number of bytes that will be written. Zero or a
	// negative value means unknown; the stream then always carries an
	// end marker.
	Size int64

	// Footer appends the integrity footer on Close.
	Footer bool
}

// queue is the source of a streaming Encoder fed by Writer.Write. It
// reports "nothing yet" while open and EOF once closed.
type queue struct {
	buf    bytes.Buffer
	closed bool
}

func (q *queue) Read(p []byte) (int, error) {
	if q.buf.Len() == 0 {
		if q.closed {
			return 0, io.EOF
		}
		return 0, nil
	}
	return q.buf.Read(p)
}

// Writer compresses everything written to it into a .lzma file.
type Writer struct {
	w      io.Writer
	enc    *Encoder
	q      queue
	size   int64
	footer bool
	closed bool
	err    *kernel.Error
}

// NewWriter writes the file header to w and returns a Writer for the
// payload.
func NewWriter(w io.Writer, opts WriterOptions) (*Writer, error) {
	size := opts.Size
	if size <= 0 {
		size = -1
		opts.EndMarker = true
	}

	zw := &Writer{w: w, size: size, footer: opts.Footer}
	enc, err := NewEncoder(w, &zw.q, opts.Options)
	if err != nil {
		return nil, err
	}
	zw.enc = enc

	h := Header{Props: enc.Props(), DictSize: enc.DictSize(), Size: size}
	if _, werr := w.Write(h.Bytes()); werr != nil {
		return nil, errWrite.WithDetail(werr.Error())
	}
	return zw, nil
}

// Write queues p for compression.
func (zw *Writer) Write(p []byte) (int, error) {
	if zw.err != nil {
		return 0, zw.err
	}
	if zw.closed {
		return 0, errFinished
	}

	zw.q.buf.Write(p)
	for zw.q.buf.Len() >= writerQueueSize {
		if err := zw.enc.Encode(false); err != nil {
			zw.err = err
			return len(p), err
		}
	}
	return len(p), nil
}

// Close compresses the queued bytes, finishes the stream and writes the
// footer if one was requested. It does not close the underlying writer.
func (zw *Writer) Close() error {
	if zw.closed {
		return nil
	}
	zw.closed = true
	if zw.err != nil {
		return zw.err
	}

	zw.q.closed = true
	if err := zw.enc.Finish(); err != nil {
		zw.err = err
		return err
	}
	if zw.size >= 0 && zw.enc.InSize() != zw.size {
		zw.err = errSizeMismatch.WithDetail("written byte count differs from the declared size")
		return zw.err
	}

	if zw.footer {
		f := Footer{
			Size:          uint64(zw.enc.InSize()),
			CompressedCRC: zw.enc.OutCRC(),
			CRC:           zw.enc.InCRC(),
		}
		if _, err := zw.w.Write(f.Bytes()); err != nil {
			zw.err = errWrite.WithDetail(err.Error())
			return zw.err
		}
	}
	return nil
}

// Reader decompresses a .lzma file.
type Reader struct {
	r      io.Reader
	header Header
	dec    *Decoder

	in     []byte
	inPos  int
	inEnd  int
	srcEOF bool

	out      int64
	crc      uint32
	inCRC    uint32
	finished bool
	err      error
}

// NewReader reads the file header from r and returns a Reader for the
// payload.
func NewReader(r io.Reader) (*Reader, error) {
	var hdr [HeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, errInputEOF.WithDetail(err.Error())
	}
	h, kerr := ParseHeader(hdr[:])
	if kerr != nil {
		return nil, kerr
	}

	dec, kerr := NewDecoder(h.Props, h.DictSize)
	if kerr != nil {
		return nil, kerr
	}
	return &Reader{
		r:      r,
		header: h,
		dec:    dec,
		in:     make([]byte, readerChunkSize),
	}, nil
}

// Header returns the file header.
func (zr *Reader) Header() Header { return zr.header }

// Read decompresses into p.
func (zr *Reader) Read(p []byte) (int, error) {
	if zr.err != nil {
		return 0, zr.err
	}
	if zr.finished {
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}

	if zr.header.Size >= 0 {
		if left := zr.header.Size - zr.out; left < int64(len(p)) {
			p = p[:left]
		}
	}

	n := 0
	for {
		if zr.header.Size >= 0 && zr.out+int64(n) == zr.header.Size {
			zr.account(p[:n])
			return n, zr.finish()
		}

		if zr.inPos == zr.inEnd && !zr.srcEOF {
			if err := zr.fill(); err != nil {
				zr.err = err
				return n, err
			}
		}

		written, consumed, status, err := zr.dec.DecodeStream(p[n:], zr.in[zr.inPos:zr.inEnd])
		zr.consume(consumed)
		n += written
		if err != nil {
			zr.err = err
			return n, err
		}

		switch status {
		case StatusFinishedWithMark:
			zr.account(p[:n])
			if zr.header.Size >= 0 && zr.out != zr.header.Size {
				zr.err = errSizeMismatch.WithDetail("end marker before the declared size")
				return n, zr.err
			}
			return n, zr.finish()
		case StatusMaybeFinishedWithoutMark, StatusNeedsMoreInput:
			if zr.srcEOF && zr.inPos == zr.inEnd {
				if status == StatusMaybeFinishedWithoutMark && zr.header.Size < 0 {
					zr.account(p[:n])
					return n, zr.finish()
				}
				if zr.header.Size < 0 || zr.out+int64(n) < zr.header.Size {
					zr.err = errInputEOF
					return n, zr.err
				}
			}
		}

		if n == len(p) {
			if zr.header.Size >= 0 && zr.out+int64(n) == zr.header.Size {
				continue
			}
			zr.account(p[:n])
			return n, nil
		}
	}
}

func (zr *Reader) account(p []byte) {
	zr.out += int64(len(p))
	zr.crc = crc32.Update(zr.crc, crc32.IEEETable, p)
}

func (zr *Reader) consume(n int) {
	zr.inCRC = crc32.Update(zr.inCRC, crc32.IEEETable, zr.in[zr.inPos:zr.inPos+n])
	zr.inPos += n
}

func (zr *Reader) fill() error {
	n, err := io.ReadAtLeast(zr.r, zr.in, 1)
	zr.inPos, zr.inEnd = 0, n
	switch err {
	case nil:
		return nil
	case io.EOF, io.ErrUnexpectedEOF:
		zr.srcEOF = true
		return nil
	default:
		return errRead.WithDetail(err.Error())
	}
}

// finish consumes an optional end marker after a stream of known size and
// verifies the footer, if any.
func (zr *Reader) finish() error {
	zr.finished = true

	if zr.header.Size >= 0 && !zr.dec.marked {
		for !zr.dec.started || zr.dec.rc.code != 0 || zr.dec.tmpLen > 0 {
			if zr.inPos == zr.inEnd {
				if zr.srcEOF {
					break
				}
				if err := zr.fill(); err != nil {
					zr.err = err
					return err
				}
				continue
			}

			_, consumed, status, err := zr.dec.decode(nil, zr.in[zr.inPos:zr.inEnd], FinishEnd)
			zr.consume(consumed)
			if err != nil {
				zr.err = err
				return err
			}
			if status != StatusNeedsMoreInput {
				break
			}
		}
		if !zr.dec.started {
			zr.err = errInputEOF
			return zr.err
		}
		if zr.dec.rc.code != 0 && !zr.dec.marked {
			zr.err = errCorrupt.WithDetail("trailing data after the declared size")
			return zr.err
		}
	}

	var tail [FooterSize + 1]byte
	n := copy(tail[:], zr.in[zr.inPos:zr.inEnd])
	if n < len(tail) && !zr.srcEOF {
		m, err := io.ReadFull(zr.r, tail[n:])
		if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
			zr.err = errRead.WithDetail(err.Error())
			return zr.err
		}
		n += m
	}

	switch n {
	case 0:
		return io.EOF
	case FooterSize:
		f := ParseFooter(tail[:])
		switch {
		case f.Size != uint64(zr.out):
			zr.err = errSizeMismatch.WithDetail("footer size differs from the decoded size")
		case f.CompressedCRC != zr.inCRC || f.CRC != zr.crc:
			zr.err = errChecksum
		default:
			return io.EOF
		}
		return zr.err
	default:
		zr.err = errCorrupt.WithDetail("unexpected data after the compressed stream")
		return zr.err
	}
}

// Compress encodes data into a .lzma file with a known size and an
// integrity footer.
func Compress(data []byte, opts Options) ([]byte, *kernel.Error) {
	var out bytes.Buffer
	enc, err := NewEncoderBytes(&out, data, opts)
	if err != nil {
		return nil, err
	}

	h := Header{Props: enc.Props(), DictSize: enc.DictSize(), Size: int64(len(data))}
	out.Write(h.Bytes())
	if err := enc.Finish(); err != nil {
		return nil, err
	}

	f := Footer{Size: uint64(len(data)), CompressedCRC: enc.OutCRC(), CRC: enc.InCRC()}
	out.Write(f.Bytes())
	return out.Bytes(), nil
}

// Decompress decodes a .lzma file produced by Compress or Writer.
func Decompress(data []byte) ([]byte, *kernel.Error) {
	zr, err := NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err.(*kernel.Error)
	}

	out, rerr := io.ReadAll(zr)
	if rerr != nil {
		if kerr, ok := rerr.(*kernel.Error); ok {
			return nil, kerr
		}
		return nil, errRead.WithDetail(rerr.Error())
	}
	return out, nil
}
