package lzma

import (
	"amlkit/kernel"
	"bytes"
	"hash/crc32"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestHeader(t *testing.T) {
	specs := []struct {
		h   Header
		exp []byte
	}{
		{
			Header{Props: DefaultProps, DictSize: 1 << 16, Size: 5},
			[]byte{0x5d, 0, 0, 1, 0, 5, 0, 0, 0, 0, 0, 0, 0},
		},
		{
			Header{Props: Props{LC: 0, LP: 0, PB: 0}, DictSize: 1 << 12, Size: -1},
			[]byte{0, 0, 0x10, 0, 0, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff},
		},
	}

	for specIndex, spec := range specs {
		got := spec.h.Bytes()
		if !bytes.Equal(got, spec.exp) {
			t.Errorf("[spec %d] expected header %x; got %x", specIndex, spec.exp, got)
			continue
		}
		back, err := ParseHeader(got)
		if err != nil {
			t.Errorf("[spec %d] unexpected error: %v", specIndex, err)
			continue
		}
		if diff := cmp.Diff(spec.h, back); diff != "" {
			t.Errorf("[spec %d] header mismatch (-want +got):\n%s", specIndex, diff)
		}
	}

	if _, err := ParseHeader([]byte{0x5d, 0}); err == nil || err.Kind != kernel.KindReadEOF {
		t.Fatalf("expected a read EOF error for a short header; got %v", err)
	}
	if _, err := ParseHeader(append([]byte{0xff}, make([]byte, 12)...)); err == nil {
		t.Fatal("expected an error for an invalid properties byte")
	}
}

func TestCompressDecompress(t *testing.T) {
	for name, in := range roundTripInputs() {
		t.Run(name, func(t *testing.T) {
			file, err := Compress(in, Options{})
			if err != nil {
				t.Fatal(err)
			}

			h, _ := ParseHeader(file)
			if h.Size != int64(len(in)) {
				t.Fatalf("expected header size %d; got %d", len(in), h.Size)
			}

			footer := ParseFooter(file[len(file)-FooterSize:])
			payload := file[HeaderSize : len(file)-FooterSize]
			exp := Footer{Size: uint64(len(in)), CompressedCRC: crc32.ChecksumIEEE(payload), CRC: crc32.ChecksumIEEE(in)}
			if diff := cmp.Diff(exp, footer); diff != "" {
				t.Fatalf("footer mismatch (-want +got):\n%s", diff)
			}

			out, err := Decompress(file)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(out, in) {
				t.Fatal("decompressed data differs from the input")
			}
		})
	}
}

func TestCompressPropsByte(t *testing.T) {
	in := bytes.Repeat([]byte("literal context "), 64)

	specs := []struct {
		opts Options
		exp  byte
	}{
		{Options{}, 0x5d},
		{Options{Props: &Props{}}, 0x00},
		{Options{Props: &Props{LC: 8, LP: 4, PB: 4}}, 224},
	}

	for specIndex, spec := range specs {
		file, err := Compress(in, spec.opts)
		if err != nil {
			t.Errorf("[spec %d] unexpected error: %v", specIndex, err)
			continue
		}
		if file[0] != spec.exp {
			t.Errorf("[spec %d] expected props byte 0x%02x; got 0x%02x", specIndex, spec.exp, file[0])
		}

		out, err := Decompress(file)
		if err != nil {
			t.Errorf("[spec %d] unexpected error: %v", specIndex, err)
			continue
		}
		if !bytes.Equal(out, in) {
			t.Errorf("[spec %d] decompressed data differs from the input", specIndex)
		}
	}
}

// writeInPieces feeds data to w in writes of at most piece bytes.
func writeInPieces(t *testing.T, w io.Writer, data []byte, piece int) {
	t.Helper()
	for len(data) > 0 {
		n := piece
		if n > len(data) {
			n = len(data)
		}
		if _, err := w.Write(data[:n]); err != nil {
			t.Fatal(err)
		}
		data = data[n:]
	}
}

func TestWriterReader(t *testing.T) {
	in := testCorpus(300000, 21)

	specs := []struct {
		opts WriterOptions
	}{
		{WriterOptions{Options: Options{DictSize: 1 << 16}}},
		{WriterOptions{Options: Options{DictSize: 1 << 16}, Footer: true}},
		{WriterOptions{Options: Options{DictSize: 1 << 16, MatchFinder: HC4}, Size: int64(len(in)), Footer: true}},
		{WriterOptions{Options: Options{DictSize: 1 << 16, EndMarker: true}, Size: int64(len(in))}},
	}

	for specIndex, spec := range specs {
		var file bytes.Buffer
		zw, err := NewWriter(&file, spec.opts)
		if err != nil {
			t.Fatalf("[spec %d] %v", specIndex, err)
		}
		writeInPieces(t, zw, in, 40000)
		if err := zw.Close(); err != nil {
			t.Fatalf("[spec %d] close: %v", specIndex, err)
		}

		zr, err := NewReader(bytes.NewReader(file.Bytes()))
		if err != nil {
			t.Fatalf("[spec %d] %v", specIndex, err)
		}
		expSize := spec.opts.Size
		if expSize == 0 {
			expSize = -1
		}
		if got := zr.Header().Size; got != expSize {
			t.Errorf("[spec %d] expected header size %d; got %d", specIndex, expSize, got)
		}

		var out bytes.Buffer
		buf := make([]byte, 777)
		for {
			n, err := zr.Read(buf)
			out.Write(buf[:n])
			if err == io.EOF {
				break
			}
			if err != nil {
				t.Fatalf("[spec %d] read: %v", specIndex, err)
			}
		}
		if !bytes.Equal(out.Bytes(), in) {
			t.Errorf("[spec %d] decompressed data differs from the input", specIndex)
		}
	}
}

func TestWriterSizeMismatch(t *testing.T) {
	var file bytes.Buffer
	zw, err := NewWriter(&file, WriterOptions{Options: Options{DictSize: 1 << 12}, Size: 10})
	if err != nil {
		t.Fatal(err)
	}
	zw.Write([]byte("short"))

	cerr := zw.Close()
	kerr, ok := cerr.(*kernel.Error)
	if !ok || kerr.Kind != kernel.KindMalformedData {
		t.Fatalf("expected a size mismatch error; got %v", cerr)
	}
	if _, err := zw.Write([]byte("more")); err == nil {
		t.Fatal("expected writes after a failed close to fail")
	}
}

func TestReaderFooterErrors(t *testing.T) {
	in := testCorpus(20000, 23)
	file, _ := Compress(in, Options{})

	specs := []struct {
		mutate  func([]byte) []byte
		expKind kernel.ErrorKind
	}{
		// Uncompressed CRC.
		{func(b []byte) []byte { b[len(b)-1] ^= 1; return b }, kernel.KindMalformedData},
		// Compressed CRC.
		{func(b []byte) []byte { b[len(b)-5] ^= 1; return b }, kernel.KindMalformedData},
		// Footer size.
		{func(b []byte) []byte { b[len(b)-FooterSize]++; return b }, kernel.KindMalformedData},
		// Partial footer.
		{func(b []byte) []byte { return b[:len(b)-3] }, kernel.KindMalformedData},
		// Truncated payload without a footer.
		{func(b []byte) []byte { return b[:len(b)/2] }, kernel.KindReadEOF},
	}

	for specIndex, spec := range specs {
		data := spec.mutate(append([]byte(nil), file...))
		_, err := Decompress(data)
		if err == nil || err.Kind != spec.expKind {
			t.Errorf("[spec %d] expected error of kind %v; got %v", specIndex, spec.expKind, err)
		}
	}
}

func TestReaderWithoutFooter(t *testing.T) {
	in := testCorpus(5000, 29)
	file, _ := Compress(in, Options{})

	out, err := Decompress(file[:len(file)-FooterSize])
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, in) {
		t.Fatal("decompressed data differs from the input")
	}
}
