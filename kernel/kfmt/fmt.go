// Package kfmt provides the formatting and log plumbing shared by the ACPI
// and LZMA packages.
package kfmt

import (
	"bytes"
	"io"
	"sync"
)

// maxBufSize defines the buffer size for formatting numbers.
const maxBufSize = 32

var (
	errMissingArg   = []byte("(MISSING)")
	errWrongArgType = []byte("%!(WRONGTYPE)")
	errNoVerb       = []byte("%!(NOVERB)")
	errExtraArg     = []byte("%!(EXTRA)")
	trueValue       = []byte("true")
	falseValue      = []byte("false")

	// earlyPrintBuffer stores Printf output until an output sink is
	// installed.
	earlyPrintBuffer RingBuffer

	sinkMu     sync.Mutex
	outputSink io.Writer
)

// SetOutputSink sets the default target for calls to Printf to w and copies
// any data accumulated in the early print buffer to it.
func SetOutputSink(w io.Writer) {
	sinkMu.Lock()
	defer sinkMu.Unlock()

	outputSink = w
	if w != nil {
		_, _ = io.Copy(w, &earlyPrintBuffer)
	}
}

// Printf formats according to a format specifier and writes to the active
// output sink. If no sink is installed, the output is buffered in a ring
// buffer and flushed to the sink installed by the next SetOutputSink call.
//
// Printf supports the following subset of formatting verbs:
//
// Strings:
//
//	%s the uninterpreted bytes of the string or byte slice
//
// Integers:
//
//	%o base 8
//	%d base 10
//	%x base 16, with lower-case letters for a-f
//
// Booleans:
//
//	%t "true" or "false"
//
// Width is specified by an optional decimal number immediately preceding the verb.
// If absent, the width is whatever is necessary to represent the value.
//
// String values with length less than the specified width will be left-padded with
// spaces. Integer values formatted as base-10 will also be left-padded with spaces.
// Finally, integer values formatted as base-16 will be left-padded with zeroes.
func Printf(format string, args ...interface{}) {
	sinkMu.Lock()
	defer sinkMu.Unlock()

	if outputSink == nil {
		Fprintf(&earlyPrintBuffer, format, args...)
		return
	}
	Fprintf(outputSink, format, args...)
}

// Sprintf behaves like Printf but returns the formatted output as a string.
func Sprintf(format string, args ...interface{}) string {
	var buf bytes.Buffer
	Fprintf(&buf, format, args...)
	return buf.String()
}

// Fprintf behaves exactly like Printf but it writes the formatted output to
// the specified io.Writer. Writing to a nil writer is a no-op.
func Fprintf(w io.Writer, format string, args ...interface{}) {
	if w == nil {
		return
	}

	var (
		out                          bytes.Buffer
		nextCh                       byte
		nextArgIndex                 int
		blockStart, blockEnd, padLen int
		fmtLen                       = len(format)
	)

	for blockEnd < fmtLen {
		nextCh = format[blockEnd]
		if nextCh != '%' {
			blockEnd++
			continue
		}

		if blockStart < blockEnd {
			out.WriteString(format[blockStart:blockEnd])
		}

		// Scan til we hit the format character
		padLen = 0
		blockEnd++
	parseFmt:
		for ; blockEnd < fmtLen; blockEnd++ {
			nextCh = format[blockEnd]
			switch {
			case nextCh == '%':
				out.WriteByte('%')
				break parseFmt
			case nextCh >= '0' && nextCh <= '9':
				padLen = (padLen * 10) + int(nextCh-'0')
				continue
			case nextCh == 'd' || nextCh == 'x' || nextCh == 'o' || nextCh == 's' || nextCh == 't':
				// Run out of args to print
				if nextArgIndex >= len(args) {
					out.Write(errMissingArg)
					break parseFmt
				}

				switch nextCh {
				case 'o':
					fmtInt(&out, args[nextArgIndex], 8, padLen)
				case 'd':
					fmtInt(&out, args[nextArgIndex], 10, padLen)
				case 'x':
					fmtInt(&out, args[nextArgIndex], 16, padLen)
				case 's':
					fmtString(&out, args[nextArgIndex], padLen)
				case 't':
					fmtBool(&out, args[nextArgIndex])
				}

				nextArgIndex++
				break parseFmt
			}

			// reached end of formatting string without finding a verb
			out.Write(errNoVerb)
		}
		blockStart, blockEnd = blockEnd+1, blockEnd+1
	}

	if blockStart < fmtLen {
		out.WriteString(format[blockStart:])
	}

	// Check for unused args
	for ; nextArgIndex < len(args); nextArgIndex++ {
		out.Write(errExtraArg)
	}

	_, _ = w.Write(out.Bytes())
}

// fmtBool prints a formatted version of boolean value v.
func fmtBool(out *bytes.Buffer, v interface{}) {
	bVal, ok := v.(bool)
	switch {
	case !ok:
		out.Write(errWrongArgType)
	case bVal:
		out.Write(trueValue)
	default:
		out.Write(falseValue)
	}
}

// fmtString prints a formatted version of a string, []byte or fmt.Stringer
// value v, applying the padding specified by padLen.
func fmtString(out *bytes.Buffer, v interface{}, padLen int) {
	var str string
	switch castedVal := v.(type) {
	case string:
		str = castedVal
	case []byte:
		str = string(castedVal)
	case interface{ String() string }:
		str = castedVal.String()
	case error:
		str = castedVal.Error()
	default:
		out.Write(errWrongArgType)
		return
	}

	fmtRepeat(out, ' ', padLen-len(str))
	out.WriteString(str)
}

// fmtRepeat writes count bytes with value ch.
func fmtRepeat(out *bytes.Buffer, ch byte, count int) {
	for i := 0; i < count; i++ {
		out.WriteByte(ch)
	}
}

// fmtInt prints out a formatted version of v in the requested base, applying
// the padding specified by padLen. This function supports all built-in signed
// and unsigned integer types and base 8, 10 and 16 output.
func fmtInt(out *bytes.Buffer, v interface{}, base, padLen int) {
	var (
		numFmtBuf        [maxBufSize + 1]byte
		sval             int64
		uval             uint64
		divider          = uint64(base)
		padCh            = byte('0')
		left, right, end int
	)

	if padLen >= maxBufSize {
		padLen = maxBufSize - 1
	}

	if base == 10 {
		padCh = ' '
	}

	switch typ := v.(type) {
	case uint8:
		uval = uint64(typ)
	case uint16:
		uval = uint64(typ)
	case uint32:
		uval = uint64(typ)
	case uint64:
		uval = typ
	case uint:
		uval = uint64(typ)
	case uintptr:
		uval = uint64(typ)
	case int8:
		sval = int64(typ)
	case int16:
		sval = int64(typ)
	case int32:
		sval = int64(typ)
	case int64:
		sval = typ
	case int:
		sval = int64(typ)
	default:
		out.Write(errWrongArgType)
		return
	}

	// Handle signs
	if sval < 0 {
		uval = uint64(-sval)
	} else if sval > 0 {
		uval = uint64(sval)
	}

	for right < maxBufSize {
		remainder := uval % divider
		if remainder < 10 {
			numFmtBuf[right] = byte(remainder) + '0'
		} else {
			// map values from 10 to 15 -> a-f
			numFmtBuf[right] = byte(remainder-10) + 'a'
		}

		right++

		uval /= divider
		if uval == 0 {
			break
		}
	}

	// Apply padding if required
	for ; right-left < padLen; right++ {
		numFmtBuf[right] = padCh
	}

	// Apply negative sign to the rightmost blank character (if using enough padding);
	// otherwise append the sign as a new char
	if sval < 0 {
		for end = right - 1; numFmtBuf[end] == ' '; end-- {
		}

		if end == right-1 {
			right++
		}

		numFmtBuf[end+1] = '-'
	}

	// Reverse in place
	end = right
	for right = right - 1; left < right; left, right = left+1, right-1 {
		numFmtBuf[left], numFmtBuf[right] = numFmtBuf[right], numFmtBuf[left]
	}

	out.Write(numFmtBuf[0:end])
}
