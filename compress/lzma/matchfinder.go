package lzma

import (
	"amlkit/kernel"
	"hash/crc32"
	"io"
)

const (
	hash2Size = 1 << 10
	hash3Size = 1 << 16

	// defaultPosLimit is the position at which stored positions are
	// rebased. Positions start at the cyclic buffer size so that 0 reads
	// as "no entry".
	defaultPosLimit = 0xFFFFFFFF

	// keepAfter is the lookahead the encoder wants before it parses a
	// position without the end of the input in sight.
	keepAfter = matchLenMax + 1
)

// match is a candidate found by the match finder. dist is zero-based: a
// value of 0 refers to the previous byte.
type match struct {
	len, dist uint32
}

// matchFinder indexes the positions of a sliding window by their first
// bytes, either in a hash chain or in a binary tree per hash bucket, and
// reports for every position the matches of increasing length found
// within the dictionary.
type matchFinder struct {
	hashBytes int
	chain     bool
	cutValue  uint32
	niceLen   uint32

	buf []byte
	cur int
	end int

	r          io.Reader
	eof        bool
	readErr    *kernel.Error
	keepBefore int
	crc        uint32
	total      int64

	// offset is the stream position of buf[cur].
	offset int64

	pos        uint32
	posLimit   uint32
	cyclicPos  uint32
	cyclicSize uint32

	hash       []uint32
	hashMask   uint32
	mainOffset uint32
	son        []uint32
}

func newMatchFinder(kind MatchFinder, dictSize uint32, niceLen, cutValue int) *matchFinder {
	mf := &matchFinder{
		hashBytes:  kind.hashBytes(),
		chain:      kind == HC4,
		cutValue:   uint32(cutValue),
		niceLen:    uint32(niceLen),
		posLimit:   defaultPosLimit,
		cyclicSize: dictSize + 1,
	}

	mf.hashMask = hashMaskFor(mf.hashBytes, dictSize)
	switch mf.hashBytes {
	case 3:
		mf.mainOffset = hash2Size
	case 4:
		mf.mainOffset = hash2Size + hash3Size
	}
	mf.hash = make([]uint32, mf.mainOffset+mf.hashMask+1)

	if mf.chain {
		mf.son = make([]uint32, mf.cyclicSize)
	} else {
		mf.son = make([]uint32, 2*mf.cyclicSize)
	}
	mf.pos = mf.cyclicSize
	return mf
}

func hashMaskFor(hashBytes int, dictSize uint32) uint32 {
	if hashBytes == 2 {
		return 1<<16 - 1
	}
	hs := dictSize - 1
	hs |= hs >> 1
	hs |= hs >> 2
	hs |= hs >> 4
	hs |= hs >> 8
	hs |= hs >> 16
	hs >>= 1
	hs |= 0xFFFF
	if hs > 1<<24 {
		if hashBytes == 3 {
			hs = 1<<24 - 1
		} else {
			hs >>= 1
		}
	}
	return hs
}

// setBytes makes data the whole input. The match finder reads it in place.
func (mf *matchFinder) setBytes(data []byte) {
	mf.buf = data
	mf.end = len(data)
	mf.eof = true
	mf.total = int64(len(data))
	mf.crc = crc32.Update(0, crc32.IEEETable, data)
}

// setReader streams the input from r. The buffer keeps keepBefore bytes
// of history behind the current position.
func (mf *matchFinder) setReader(r io.Reader, keepBefore int) {
	blockSize := int(mf.cyclicSize/2) + 1<<19
	mf.r = r
	mf.keepBefore = keepBefore
	mf.buf = make([]byte, keepBefore+blockSize+2*keepAfter)
}

// fill reads from the source until the buffer is full, the source reports
// EOF or the source has nothing more to offer right now.
func (mf *matchFinder) fill() {
	if mf.r == nil || mf.eof || mf.end-mf.cur >= keepAfter {
		return
	}

	if len(mf.buf)-mf.end < keepAfter && mf.cur > mf.keepBefore {
		drop := mf.cur - mf.keepBefore
		copy(mf.buf, mf.buf[drop:mf.end])
		mf.cur -= drop
		mf.end -= drop
	}

	for mf.end < len(mf.buf) {
		n, err := mf.r.Read(mf.buf[mf.end:])
		mf.crc = crc32.Update(mf.crc, crc32.IEEETable, mf.buf[mf.end:mf.end+n])
		mf.end += n
		mf.total += int64(n)
		switch {
		case err == io.EOF:
			mf.eof = true
			return
		case err != nil:
			mf.readErr = errRead.WithDetail(err.Error())
			mf.eof = true
			return
		case n == 0:
			return
		}
	}
}

// needsInput reports whether the lookahead is shorter than a full match
// while the source may still provide more bytes.
func (mf *matchFinder) needsInput() bool {
	return !mf.eof && mf.end-mf.cur < keepAfter
}

func (mf *matchFinder) avail() int { return mf.end - mf.cur }

// at returns the byte i positions away from the current one.
func (mf *matchFinder) at(i int) byte { return mf.buf[mf.cur+i] }

// extend grows a match starting i bytes away from the current position up
// to limit bytes.
func (mf *matchFinder) extend(i int, dist, length, limit uint32) uint32 {
	start := mf.cur + i
	if avail := uint32(mf.end - start); limit > avail {
		limit = avail
	}
	back := start - int(dist) - 1
	for length < limit && mf.buf[start+int(length)] == mf.buf[back+int(length)] {
		length++
	}
	return length
}

func (mf *matchFinder) hashes(c int) (h2, h3, hv uint32) {
	b := mf.buf
	switch mf.hashBytes {
	case 2:
		hv = uint32(b[c]) | uint32(b[c+1])<<8
	case 3:
		t := crc32.IEEETable[b[c]] ^ uint32(b[c+1])
		h2 = t & (hash2Size - 1)
		hv = (t ^ uint32(b[c+2])<<8) & mf.hashMask
	default:
		t := crc32.IEEETable[b[c]] ^ uint32(b[c+1])
		h2 = t & (hash2Size - 1)
		t ^= uint32(b[c+2]) << 8
		h3 = t & (hash3Size - 1)
		hv = (t ^ crc32.IEEETable[b[c+3]]<<5) & mf.hashMask
	}
	return h2, h3, hv
}

// matches appends the matches at the current position to dst in order of
// increasing length and advances by one byte.
func (mf *matchFinder) matches(dst []match) []match {
	mf.fill()

	lenLimit := uint32(mf.avail())
	if lenLimit > mf.niceLen {
		lenLimit = mf.niceLen
	}
	if lenLimit < uint32(mf.hashBytes) {
		dst = mf.tailMatches(dst, lenLimit)
		mf.move()
		return dst
	}

	b, c := mf.buf, mf.cur
	h2, h3, hv := mf.hashes(c)

	maxLen, best := uint32(1), uint32(0)
	if mf.hashBytes >= 3 {
		d2 := mf.pos - mf.hash[h2]
		mf.hash[h2] = mf.pos
		if d2 < mf.cyclicSize && b[c-int(d2)] == b[c] {
			maxLen, best = 2, d2
			dst = append(dst, match{2, d2 - 1})
		}
	}
	if mf.hashBytes == 4 {
		d3 := mf.pos - mf.hash[hash2Size+h3]
		mf.hash[hash2Size+h3] = mf.pos
		if d3 != best && d3 < mf.cyclicSize && b[c-int(d3)] == b[c] {
			maxLen, best = 3, d3
			dst = append(dst, match{3, d3 - 1})
		}
	}

	curMatch := mf.hash[mf.mainOffset+hv]
	mf.hash[mf.mainOffset+hv] = mf.pos

	if best != 0 {
		for maxLen < lenLimit && b[c+int(maxLen)-int(best)] == b[c+int(maxLen)] {
			maxLen++
		}
		dst[len(dst)-1].len = maxLen
		if maxLen == lenLimit {
			if mf.chain {
				mf.son[mf.cyclicPos] = curMatch
			} else {
				mf.skipTree(lenLimit, curMatch)
			}
			mf.move()
			return dst
		}
	}

	if maxLen < uint32(mf.hashBytes-1) {
		maxLen = uint32(mf.hashBytes - 1)
	}
	if mf.chain {
		dst = mf.chainMatches(dst, lenLimit, curMatch, maxLen)
	} else {
		dst = mf.treeMatches(dst, lenLimit, curMatch, maxLen)
	}
	mf.move()
	return dst
}

// tailMatches looks up the short hashes near the end of the input where
// too few bytes remain for the main hash.
func (mf *matchFinder) tailMatches(dst []match, lenLimit uint32) []match {
	if mf.hashBytes < 3 || lenLimit < 2 {
		return dst
	}

	b, c := mf.buf, mf.cur
	t := crc32.IEEETable[b[c]] ^ uint32(b[c+1])
	h2 := t & (hash2Size - 1)
	d2 := mf.pos - mf.hash[h2]
	mf.hash[h2] = mf.pos

	var d3 uint32 = mf.cyclicSize
	if mf.hashBytes == 4 && lenLimit >= 3 {
		h3 := (t ^ uint32(b[c+2])<<8) & (hash3Size - 1)
		d3 = mf.pos - mf.hash[hash2Size+h3]
		mf.hash[hash2Size+h3] = mf.pos
	}

	maxLen := uint32(1)
	for _, d := range [2]uint32{d2, d3} {
		if d >= mf.cyclicSize {
			continue
		}
		l := uint32(0)
		for l < lenLimit && b[c+int(l)-int(d)] == b[c+int(l)] {
			l++
		}
		if l > maxLen {
			maxLen = l
			dst = append(dst, match{l, d - 1})
		}
	}
	return dst
}

// cyclicIndex returns the cyclic buffer slot of the position delta bytes
// back.
func (mf *matchFinder) cyclicIndex(delta uint32) uint32 {
	i := mf.cyclicPos - delta
	if delta > mf.cyclicPos {
		i += mf.cyclicSize
	}
	return i
}

func (mf *matchFinder) treeMatches(dst []match, lenLimit, curMatch, maxLen uint32) []match {
	b, c := mf.buf, mf.cur
	ptr0 := mf.cyclicPos<<1 + 1
	ptr1 := mf.cyclicPos << 1
	var len0, len1 uint32

	for cut := mf.cutValue; ; cut-- {
		delta := mf.pos - curMatch
		if cut == 0 || delta >= mf.cyclicSize {
			mf.son[ptr0], mf.son[ptr1] = 0, 0
			return dst
		}

		pair := mf.cyclicIndex(delta) << 1
		pb := c - int(delta)
		l := len0
		if len1 < l {
			l = len1
		}
		if b[pb+int(l)] == b[c+int(l)] {
			for l++; l != lenLimit && b[pb+int(l)] == b[c+int(l)]; l++ {
			}
			if maxLen < l {
				maxLen = l
				dst = append(dst, match{l, delta - 1})
				if l == lenLimit {
					mf.son[ptr1] = mf.son[pair]
					mf.son[ptr0] = mf.son[pair+1]
					return dst
				}
			}
		}

		if b[pb+int(l)] < b[c+int(l)] {
			mf.son[ptr1] = curMatch
			ptr1 = pair + 1
			curMatch = mf.son[ptr1]
			len1 = l
		} else {
			mf.son[ptr0] = curMatch
			ptr0 = pair
			curMatch = mf.son[ptr0]
			len0 = l
		}
	}
}

// skipTree inserts the current position into its tree without reporting
// matches.
func (mf *matchFinder) skipTree(lenLimit, curMatch uint32) {
	b, c := mf.buf, mf.cur
	ptr0 := mf.cyclicPos<<1 + 1
	ptr1 := mf.cyclicPos << 1
	var len0, len1 uint32

	for cut := mf.cutValue; ; cut-- {
		delta := mf.pos - curMatch
		if cut == 0 || delta >= mf.cyclicSize {
			mf.son[ptr0], mf.son[ptr1] = 0, 0
			return
		}

		pair := mf.cyclicIndex(delta) << 1
		pb := c - int(delta)
		l := len0
		if len1 < l {
			l = len1
		}
		if b[pb+int(l)] == b[c+int(l)] {
			for l++; l != lenLimit && b[pb+int(l)] == b[c+int(l)]; l++ {
			}
			if l == lenLimit {
				mf.son[ptr1] = mf.son[pair]
				mf.son[ptr0] = mf.son[pair+1]
				return
			}
		}

		if b[pb+int(l)] < b[c+int(l)] {
			mf.son[ptr1] = curMatch
			ptr1 = pair + 1
			curMatch = mf.son[ptr1]
			len1 = l
		} else {
			mf.son[ptr0] = curMatch
			ptr0 = pair
			curMatch = mf.son[ptr0]
			len0 = l
		}
	}
}

func (mf *matchFinder) chainMatches(dst []match, lenLimit, curMatch, maxLen uint32) []match {
	b, c := mf.buf, mf.cur
	mf.son[mf.cyclicPos] = curMatch

	for cut := mf.cutValue; ; cut-- {
		delta := mf.pos - curMatch
		if cut == 0 || delta >= mf.cyclicSize {
			return dst
		}

		pb := c - int(delta)
		curMatch = mf.son[mf.cyclicIndex(delta)]
		if b[pb+int(maxLen)] == b[c+int(maxLen)] && b[pb] == b[c] {
			l := uint32(1)
			for l != lenLimit && b[pb+int(l)] == b[c+int(l)] {
				l++
			}
			if maxLen < l {
				maxLen = l
				dst = append(dst, match{l, delta - 1})
				if l == lenLimit {
					return dst
				}
			}
		}
	}
}

// skip advances n positions, indexing each of them.
func (mf *matchFinder) skip(n uint32) {
	for ; n > 0; n-- {
		mf.fill()

		lenLimit := uint32(mf.avail())
		if lenLimit > mf.niceLen {
			lenLimit = mf.niceLen
		}
		if lenLimit < uint32(mf.hashBytes) {
			mf.tailMatches(nil, lenLimit)
			mf.move()
			continue
		}

		h2, h3, hv := mf.hashes(mf.cur)
		if mf.hashBytes >= 3 {
			mf.hash[h2] = mf.pos
		}
		if mf.hashBytes == 4 {
			mf.hash[hash2Size+h3] = mf.pos
		}
		curMatch := mf.hash[mf.mainOffset+hv]
		mf.hash[mf.mainOffset+hv] = mf.pos

		if mf.chain {
			mf.son[mf.cyclicPos] = curMatch
		} else {
			mf.skipTree(lenLimit, curMatch)
		}
		mf.move()
	}
}

func (mf *matchFinder) move() {
	mf.cyclicPos++
	if mf.cyclicPos == mf.cyclicSize {
		mf.cyclicPos = 0
	}
	mf.cur++
	mf.offset++
	mf.pos++
	if mf.pos == mf.posLimit {
		mf.normalize()
	}
}

// normalize rebases every stored position so that the current one equals
// the cyclic buffer size again. Entries falling out of the window become
// empty.
func (mf *matchFinder) normalize() {
	sub := mf.pos - mf.cyclicSize
	rebase := func(refs []uint32) {
		for i, v := range refs {
			if v <= sub {
				refs[i] = 0
			} else {
				refs[i] = v - sub
			}
		}
	}
	rebase(mf.hash)
	rebase(mf.son)
	mf.pos -= sub
}
