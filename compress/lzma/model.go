package lzma

import "math/bits"

// lenProbs holds the probabilities of a length coder. Lengths 2-9 and
// 10-17 use position-state specific trees; longer lengths share one tree.
type lenProbs struct {
	choice, choice2 prob
	low             [numPosStatesMax][lenLowSymbols]prob
	mid             [numPosStatesMax][lenMidSymbols]prob
	high            [lenHighSymbols]prob
}

func (lp *lenProbs) reset() {
	lp.choice, lp.choice2 = probInit, probInit
	for i := range lp.low {
		resetProbs(lp.low[i][:])
		resetProbs(lp.mid[i][:])
	}
	resetProbs(lp.high[:])
}

// model is the set of adaptive probabilities shared by the encoder and the
// decoder.
type model struct {
	props  Props
	lpMask uint32
	pbMask uint32

	literal    []prob
	isMatch    [numStates << posBitsMax]prob
	isRep      [numStates]prob
	isRepG0    [numStates]prob
	isRepG1    [numStates]prob
	isRepG2    [numStates]prob
	isRep0Long [numStates << posBitsMax]prob

	posSlot [numLenToPosStates][1 << numPosSlotBits]prob

	// posSpecial is indexed from base-slot so reverse trees for slot 4
	// start at index 1; entry 0 is unused.
	posSpecial [1 + numFullDistances - endPosModelIndex]prob
	align      [alignTableSize]prob

	matchLen lenProbs
	repLen   lenProbs
}

func newModel(p Props) *model {
	m := &model{
		props:   p,
		lpMask:  1<<uint(p.LP) - 1,
		pbMask:  1<<uint(p.PB) - 1,
		literal: make([]prob, literalCoderSize<<uint(p.LC+p.LP)),
	}
	m.reset()
	return m
}

func (m *model) reset() {
	resetProbs(m.literal)
	resetProbs(m.isMatch[:])
	resetProbs(m.isRep[:])
	resetProbs(m.isRepG0[:])
	resetProbs(m.isRepG1[:])
	resetProbs(m.isRepG2[:])
	resetProbs(m.isRep0Long[:])
	for i := range m.posSlot {
		resetProbs(m.posSlot[i][:])
	}
	resetProbs(m.posSpecial[:])
	resetProbs(m.align[:])
	m.matchLen.reset()
	m.repLen.reset()
}

// literalProbs returns the literal coder selected by the output position
// and the previous byte.
func (m *model) literalProbs(pos uint64, prevByte byte) []prob {
	ctx := (uint32(pos)&m.lpMask)<<uint(m.props.LC) + uint32(prevByte)>>uint(8-m.props.LC)
	return m.literal[literalCoderSize*ctx : literalCoderSize*(ctx+1)]
}

func resetProbs(probs []prob) {
	for i := range probs {
		probs[i] = probInit
	}
}

// lenToPosState maps a match length to the distance slot context.
func lenToPosState(length uint32) uint32 {
	l := length - matchLenMin
	if l >= numLenToPosStates {
		l = numLenToPosStates - 1
	}
	return l
}

// posSlot returns the slot of a zero-based distance: the two most
// significant bits of dist together with its bit length.
func posSlot(dist uint32) uint32 {
	if dist < startPosModelIndex {
		return dist
	}
	n := uint32(bits.Len32(dist)) - 1
	return n<<1 | (dist>>(n-1))&1
}

// slotBase returns the smallest distance of slot and the number of
// footer bits that follow it.
func slotBase(slot uint32) (base uint32, footerBits uint) {
	footerBits = uint(slot>>1) - 1
	return (2 | slot&1) << footerBits, footerBits
}
