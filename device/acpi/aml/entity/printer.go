package entity

import (
	"amlkit/kernel/kfmt"
	"bytes"
	"io"
)

// PrettyPrint writes an indented rendition of the namespace tree rooted at
// root to w. Integer _HID and _CID values are also shown in their decoded
// EISA form.
func PrettyPrint(w io.Writer, root *Object) {
	var padBuf bytes.Buffer
	padBuf.WriteByte(' ')
	printObject(w, &padBuf, root, true)
}

func printObject(w io.Writer, padBuf *bytes.Buffer, obj *Object, last bool) {
	_, _ = w.Write(padBuf.Bytes())
	kfmt.Fprintf(w, "+- [%s", obj.Type)
	if obj.name != "" {
		kfmt.Fprintf(w, ", name: \"%s\"", obj.name)
	}
	kfmt.Fprintf(w, "]")
	printValue(w, obj)
	kfmt.Fprintf(w, "\n")

	padLen := padBuf.Len()
	if last {
		padBuf.WriteByte(' ')
	} else {
		padBuf.WriteByte('|')
	}
	padBuf.WriteString("  ")

	for index, child := range obj.children {
		printObject(w, padBuf, child, index == len(obj.children)-1)
	}

	padBuf.Truncate(padLen)
}

func printValue(w io.Writer, obj *Object) {
	switch obj.Type {
	case TypeInteger:
		kfmt.Fprintf(w, " -> [num value; dec: %d, hex: 0x%x]", obj.Int, obj.Int)
		if obj.name == "_HID" || obj.name == "_CID" {
			kfmt.Fprintf(w, " [EISA: \"%s\"]", DecodeEISAID(uint32(obj.Int)))
		}
	case TypeString:
		kfmt.Fprintf(w, " -> [string value: \"%s\"]", obj.Bytes)
	case TypeBuffer:
		kfmt.Fprintf(w, " -> [bytelist value; len: %d; data: [", len(obj.Bytes))
		for i, b := range obj.Bytes {
			if i != 0 {
				kfmt.Fprintf(w, ", ")
			}
			kfmt.Fprintf(w, "0x%x", b)
		}
		kfmt.Fprintf(w, "]]")
	case TypePackage:
		kfmt.Fprintf(w, " -> [elements: %d]", len(obj.Elements))
	case TypeMethod:
		kfmt.Fprintf(w, " -> [argCount: %d, serialized: %t, syncLevel: %d]", obj.Method.ArgCount, obj.Method.Serialized, obj.Method.SyncLevel)
	case TypeRegion:
		kfmt.Fprintf(w, " -> [space: %s, offset: 0x%x, length: 0x%x]", obj.Region.Space, obj.Region.Offset, obj.Region.Length)
	case TypeFieldUnit:
		f := obj.Field
		kfmt.Fprintf(w, " -> [offset(bits): 0x%x, width(bits): 0x%x, accType: %s, lockType: %s, updateType: %s]",
			f.BitOffset, f.BitLength, accessTypeName(f.AccessType), lockName(f.Lock), updateRuleName(f.UpdateRule))
	case TypeBufferField:
		kfmt.Fprintf(w, " -> [offset(bits): 0x%x, width(bits): 0x%x]", obj.BufField.BitOffset, obj.BufField.BitLength)
	case TypeMutex:
		kfmt.Fprintf(w, " -> [syncLevel: %d]", obj.Mutex.SyncLevel)
	case TypeProcessor:
		kfmt.Fprintf(w, " -> [id: %d, pblk: 0x%x, pblkLen: %d]", obj.Processor.ID, obj.Processor.BlockAddr, obj.Processor.BlockLen)
	case TypePowerResource:
		kfmt.Fprintf(w, " -> [systemLevel: %d, resourceOrder: %d]", obj.PowerRes.SystemLevel, obj.PowerRes.ResourceOrder)
	case TypeAlias:
		if target := obj.Deref(); target != nil {
			kfmt.Fprintf(w, " -> [alias of \"%s\"]", target.Path())
		}
	}
}

func accessTypeName(t FieldAccessType) string {
	switch t {
	case FieldAccessTypeAny:
		return "Any"
	case FieldAccessTypeByte:
		return "Byte"
	case FieldAccessTypeWord:
		return "Word"
	case FieldAccessTypeDword:
		return "Dword"
	case FieldAccessTypeQword:
		return "Qword"
	default:
		return "Buffer"
	}
}

func lockName(lock bool) string {
	if lock {
		return "Lock"
	}
	return "NoLock"
}

func updateRuleName(rule FieldUpdateRule) string {
	switch rule {
	case FieldUpdateRuleWriteAsOnes:
		return "WriteAsOnes"
	case FieldUpdateRuleWriteAsZeros:
		return "WriteAsZeroes"
	default:
		return "Preserve"
	}
}

// DecodeEISAID converts a compressed EISA id (as produced by the ASL EISAID
// macro) back to its 7-character form.
func DecodeEISAID(v uint32) string {
	// Poor-man's ntohl
	id := (v>>24)&0xff |
		((v>>16)&0xff)<<8 |
		((v>>8)&0xff)<<16 |
		(v&0xff)<<24

	eisaID := [7]byte{
		'@' + byte((id>>26)&0x1f),
		'@' + byte((id>>21)&0x1f),
		'@' + byte((id>>16)&0x1f),
		hexToASCII(id >> 12),
		hexToASCII(id >> 8),
		hexToASCII(id >> 4),
		hexToASCII(id),
	}
	return string(eisaID[:])
}

// EncodeEISAID compresses a 7-character EISA id such as "PNP0A03" into its
// integer form. It returns false if id is malformed.
func EncodeEISAID(id string) (uint32, bool) {
	if len(id) != 7 {
		return 0, false
	}

	var v uint32
	for i := 0; i < 3; i++ {
		ch := id[i]
		if ch < 'A' || ch > 'Z' {
			return 0, false
		}
		v = v<<5 | uint32(ch-'@')
	}
	for i := 3; i < 7; i++ {
		nibble, ok := asciiToHex(id[i])
		if !ok {
			return 0, false
		}
		v = v<<4 | uint32(nibble)
	}

	return (v>>24)&0xff | ((v>>16)&0xff)<<8 | ((v>>8)&0xff)<<16 | (v&0xff)<<24, true
}

func hexToASCII(val uint32) byte {
	v := byte(val & 0xf)
	if v <= 9 {
		return '0' + v
	}

	return 'A' + (v - 0xa)
}

func asciiToHex(ch byte) (byte, bool) {
	switch {
	case ch >= '0' && ch <= '9':
		return ch - '0', true
	case ch >= 'A' && ch <= 'F':
		return ch - 'A' + 0xa, true
	default:
		return 0, false
	}
}
