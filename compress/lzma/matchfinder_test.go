package lzma

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func testCorpus(size int, seed int64) []byte {
	words := []string{"Device", "Method", "Scope", "_SB_", "PCI0", "Return", "Store", " ", "\n", "0x1f", "(", ")"}
	rnd := rand.New(rand.NewSource(seed))
	var buf bytes.Buffer
	for buf.Len() < size {
		if rnd.Intn(10) == 0 {
			buf.WriteByte(byte(rnd.Intn(256)))
			continue
		}
		buf.WriteString(words[rnd.Intn(len(words))])
	}
	return buf.Bytes()[:size]
}

func collectMatches(mf *matchFinder, n int) [][]match {
	all := make([][]match, n)
	for i := range all {
		all[i] = append([]match(nil), mf.matches(nil)...)
	}
	return all
}

func TestMatchFinderMatches(t *testing.T) {
	data := testCorpus(20000, 1)

	for _, kind := range []MatchFinder{BT2, BT3, BT4, HC4} {
		t.Run(kind.String(), func(t *testing.T) {
			mf := newMatchFinder(kind, 1<<12, 64, 32)
			mf.setBytes(data)

			found := 0
			for p, ms := range collectMatches(mf, len(data)) {
				prevLen := uint32(1)
				for _, m := range ms {
					if m.len <= prevLen {
						t.Fatalf("[pos %d] expected strictly increasing lengths; got %v", p, ms)
					}
					prevLen = m.len
					if m.len > 64 || int(m.dist) >= p || m.dist >= 1<<12 {
						t.Fatalf("[pos %d] match %+v out of range", p, m)
					}
					src := p - int(m.dist) - 1
					if !bytes.Equal(data[p:p+int(m.len)], data[src:src+int(m.len)]) {
						t.Fatalf("[pos %d] match %+v does not repeat earlier data", p, m)
					}
					found++
				}
			}
			if found == 0 {
				t.Fatal("expected the corpus to contain matches")
			}
		})
	}
}

func TestMatchFinderTail(t *testing.T) {
	specs := []struct {
		kind MatchFinder
		exp  []match
	}{
		{BT4, []match{{3, 2}}},
		{HC4, []match{{3, 2}}},
		{BT3, []match{{3, 2}}},
	}

	for specIndex, spec := range specs {
		mf := newMatchFinder(spec.kind, 1<<12, 32, 16)
		mf.setBytes([]byte("ABCABC"))
		got := collectMatches(mf, 6)[3]
		if diff := cmp.Diff(spec.exp, got, cmp.AllowUnexported(match{})); diff != "" {
			t.Errorf("[spec %d] matches at position 3 mismatch (-want +got):\n%s", specIndex, diff)
		}
	}
}

func TestMatchFinderNormalize(t *testing.T) {
	data := testCorpus(30000, 2)

	for _, kind := range []MatchFinder{BT4, HC4} {
		ref := newMatchFinder(kind, 1<<12, 32, 24)
		ref.setBytes(data)

		mf := newMatchFinder(kind, 1<<12, 32, 24)
		mf.setBytes(data)
		mf.posLimit = mf.cyclicSize + 5000

		want := collectMatches(ref, len(data))
		got := collectMatches(mf, len(data))
		if mf.pos >= mf.posLimit {
			t.Fatalf("[%s] expected positions to be rebased; pos %d", kind, mf.pos)
		}
		if diff := cmp.Diff(want, got, cmp.AllowUnexported(match{})); diff != "" {
			t.Errorf("[%s] rebasing changed the matches (-want +got):\n%s", kind, diff)
		}
	}
}

func TestMatchFinderSkip(t *testing.T) {
	data := bytes.Repeat([]byte("0123456789"), 50)

	mf := newMatchFinder(BT4, 1<<12, 32, 16)
	mf.setBytes(data)
	mf.matches(nil)
	mf.skip(99)

	got := mf.matches(nil)
	if len(got) == 0 {
		t.Fatal("expected matches after skipping")
	}
	if last := got[len(got)-1]; last.len != 32 || last.dist%10 != 9 {
		t.Fatalf("expected a nice length match at a multiple of the period; got %+v", last)
	}
	if mf.offset != 101 {
		t.Fatalf("expected offset 101; got %d", mf.offset)
	}
}

func TestMatchFinderStreaming(t *testing.T) {
	data := testCorpus(1<<20+12345, 3)

	mf := newMatchFinder(HC4, 1<<16, 32, 8)
	mf.setReader(bytes.NewReader(data), 1<<16+numOpts+1)

	for p := 0; p < len(data); p++ {
		for _, m := range mf.matches(nil) {
			src := p - int(m.dist) - 1
			if !bytes.Equal(data[p:p+int(m.len)], data[src:src+int(m.len)]) {
				t.Fatalf("[pos %d] match %+v does not repeat earlier data", p, m)
			}
		}
	}
	if mf.total != int64(len(data)) {
		t.Fatalf("expected to read %d bytes; got %d", len(data), mf.total)
	}
}
