package lzma

// optimal is a node of the parse graph: the cheapest known way to reach a
// position ahead of the cursor.
type optimal struct {
	price uint32
	prev  uint32
	back  uint32
	state state
	reps  [numReps]uint32
}

// readMatches returns the matches at the next match finder position. A
// longest match reaching fastBytes is extended up to the maximum length.
func (e *Encoder) readMatches() []match {
	if e.hasPending {
		e.hasPending = false
		return e.pending
	}

	e.matches = e.mf.matches(e.matches[:0])
	if n := len(e.matches); n > 0 && e.matches[n-1].len == e.fastBytes {
		m := &e.matches[n-1]
		m.len = e.mf.extend(-1, m.dist, m.len, matchLenMax)
	}
	return e.matches
}

// optimum plans the packets for the bytes at the cursor. It prices every
// literal, SHORTREP, LONGREP and MATCH reachable from each planned
// position and returns the cheapest path. On return the match finder sits
// at the end of the path, or one byte past it with the matches of the
// next position kept pending.
func (e *Encoder) optimum() []decision {
	if e.matchPriceCount >= numFullDistances {
		e.updateDistPrices()
	}
	if e.alignPriceCount >= alignTableSize {
		e.updateAlignPrices()
	}

	pos := e.nowPos
	matches := e.readMatches()
	avail := e.availAt(pos)
	if avail < matchLenMin {
		return e.single(1, literalBack)
	}

	var repLens [numReps]uint32
	repMax := 0
	for i := range repLens {
		repLens[i] = e.repLen(pos, e.reps[i], avail)
		if repLens[i] > repLens[repMax] {
			repMax = i
		}
	}
	if repLens[repMax] >= e.fastBytes {
		e.mf.skip(repLens[repMax] - 1)
		return e.single(repLens[repMax], uint32(repMax))
	}

	var mainLen uint32
	if n := len(matches); n > 0 {
		mainLen = matches[n-1].len
		if mainLen >= e.fastBytes {
			e.mf.skip(mainLen - 1)
			return e.single(mainLen, numReps+matches[n-1].dist)
		}
	}

	cur := e.byteAt(pos)
	matchByte := e.byteAt(pos - int64(e.reps[0]) - 1)
	if mainLen < matchLenMin && cur != matchByte && repLens[repMax] < matchLenMin {
		return e.single(1, literalBack)
	}

	opt := e.opt
	st := e.state
	posState := uint32(pos) & e.pbMask

	opt[0] = optimal{state: st, reps: e.reps}
	opt[1] = optimal{
		price: bitPrice(e.m.isMatch[st.index(posState)], 0) + e.literalPrice(pos, st, cur, matchByte),
		back:  literalBack,
	}

	matchPrice := bitPrice(e.m.isMatch[st.index(posState)], 1)
	repMatchPrice := matchPrice + bitPrice(e.m.isRep[st], 1)
	if matchByte == cur {
		if price := repMatchPrice + e.shortRepPrice(st, posState); price < opt[1].price {
			opt[1] = optimal{price: price, back: 0}
		}
	}

	lenEnd := mainLen
	if repLens[repMax] > lenEnd {
		lenEnd = repLens[repMax]
	}
	if lenEnd < matchLenMin {
		return e.single(1, opt[1].back)
	}
	for i := uint32(2); i <= lenEnd; i++ {
		opt[i].price = infinityPrice
	}

	for i, rl := range repLens {
		if rl < matchLenMin {
			continue
		}
		base := repMatchPrice + e.repIndexPrice(uint32(i), st, posState)
		for l := rl; l >= matchLenMin; l-- {
			if price := base + e.repLenPrices.price(l, posState); price < opt[l].price {
				opt[l] = optimal{price: price, back: uint32(i)}
			}
		}
	}

	normalPrice := matchPrice + bitPrice(e.m.isRep[st], 0)
	l := uint32(matchLenMin)
	for _, m := range matches {
		for ; l <= m.len; l++ {
			price := normalPrice + e.lenPrices.price(l, posState) + e.distPrice(m.dist, lenToPosState(l))
			if price < opt[l].price {
				opt[l] = optimal{price: price, back: numReps + m.dist}
			}
		}
	}

	for cur := uint32(1); cur < lenEnd; cur++ {
		e.settle(cur)

		matches = e.readMatches()
		if n := len(matches); n > 0 && matches[n-1].len >= e.fastBytes {
			e.pending = append(e.pending[:0], matches...)
			e.hasPending = true
			return e.trace(cur)
		}

		lenEnd = e.extendFrom(cur, lenEnd, pos+int64(cur), matches)
	}
	return e.trace(lenEnd)
}

// settle derives the coder state and rep distances at node cur from the
// decision that reaches it.
func (e *Encoder) settle(cur uint32) {
	node := &e.opt[cur]
	prev := &e.opt[node.prev]
	node.reps = prev.reps

	switch {
	case node.back == literalBack:
		node.state = prev.state.afterLiteral()
	case node.back < numReps:
		if cur-node.prev == 1 {
			node.state = prev.state.afterShortRep()
			return
		}
		node.state = prev.state.afterRep()
		if rep := node.back; rep != 0 {
			dist := node.reps[rep]
			copy(node.reps[1:rep+1], prev.reps[:rep])
			node.reps[0] = dist
		}
	default:
		node.state = prev.state.afterMatch()
		node.reps = [numReps]uint32{node.back - numReps, prev.reps[0], prev.reps[1], prev.reps[2]}
	}
}

// extendFrom relaxes the nodes reachable from node cur, which starts at
// stream position p, and returns the new end of the parse graph.
func (e *Encoder) extendFrom(cur, lenEnd uint32, p int64, matches []match) uint32 {
	opt := e.opt
	node := &opt[cur]
	st := node.state
	posState := uint32(p) & e.pbMask

	curByte := e.byteAt(p)
	matchByte := e.byteAt(p - int64(node.reps[0]) - 1)

	relax := func(to, price, back uint32) {
		for lenEnd < to {
			lenEnd++
			opt[lenEnd].price = infinityPrice
		}
		if price < opt[to].price {
			opt[to] = optimal{price: price, prev: cur, back: back}
		}
	}

	isMatch := e.m.isMatch[st.index(posState)]
	relax(cur+1, node.price+bitPrice(isMatch, 0)+e.literalPrice(p, st, curByte, matchByte), literalBack)

	matchPrice := node.price + bitPrice(isMatch, 1)
	repMatchPrice := matchPrice + bitPrice(e.m.isRep[st], 1)
	if next := &opt[cur+1]; matchByte == curByte && !(next.prev == cur && next.back == 0) {
		if price := repMatchPrice + e.shortRepPrice(st, posState); price <= next.price {
			*next = optimal{price: price, prev: cur, back: 0}
		}
	}

	avail := e.availAt(p)
	if limit := numOpts - 1 - cur; avail > limit {
		avail = limit
	}
	if avail < matchLenMin {
		return lenEnd
	}

	for i, rep := range node.reps {
		rl := e.repLen(p, rep, avail)
		if rl < matchLenMin {
			continue
		}
		base := repMatchPrice + e.repIndexPrice(uint32(i), st, posState)
		for l := rl; l >= matchLenMin; l-- {
			relax(cur+l, base+e.repLenPrices.price(l, posState), uint32(i))
		}
	}

	normalPrice := matchPrice + bitPrice(e.m.isRep[st], 0)
	l := uint32(matchLenMin)
	for _, m := range matches {
		ml := m.len
		if ml > avail {
			ml = avail
		}
		for ; l <= ml; l++ {
			price := normalPrice + e.lenPrices.price(l, posState) + e.distPrice(m.dist, lenToPosState(l))
			relax(cur+l, price, numReps+m.dist)
		}
		if ml == avail {
			break
		}
	}
	return lenEnd
}

// trace walks the cheapest path back from node end and returns its
// decisions in stream order.
func (e *Encoder) trace(end uint32) []decision {
	ds := e.decisions[:0]
	for cur := end; cur > 0; {
		node := &e.opt[cur]
		ds = append(ds, decision{len: cur - node.prev, back: node.back})
		cur = node.prev
	}
	for i, j := 0, len(ds)-1; i < j; i, j = i+1, j-1 {
		ds[i], ds[j] = ds[j], ds[i]
	}
	e.decisions = ds
	return ds
}

func (e *Encoder) single(length, back uint32) []decision {
	e.decisions = append(e.decisions[:0], decision{len: length, back: back})
	return e.decisions
}
