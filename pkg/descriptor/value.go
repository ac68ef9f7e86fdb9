package descriptor

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
)

var (
	// ErrValueCount indicates the number of values doesn't match the entry.
	ErrValueCount = errors.New("descriptor: wrong number of values")
	// ErrDataSize indicates data doesn't match the entry size.
	ErrDataSize = errors.New("descriptor: wrong data size")
)

// EncodeValue encodes one element from its text form.
func (t TypeCode) EncodeValue(text string) ([]byte, error) {
	buf := make([]byte, t.Size())
	switch t {
	case TypeVoid:
	case TypeInt32, TypeInt16, TypeInt8:
		v, err := strconv.ParseInt(text, 0, t.Size()*8)
		if err != nil {
			return nil, err
		}
		putUint(buf, uint64(v))
	case TypeUint32, TypeUint16, TypeUint8, TypeEnum1:
		v, err := strconv.ParseUint(text, 0, t.Size()*8)
		if err != nil {
			return nil, err
		}
		putUint(buf, v)
	case TypeFloat:
		v, err := strconv.ParseFloat(text, 32)
		if err != nil {
			return nil, err
		}
		binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(v)))
	case TypeBool:
		v, err := strconv.ParseBool(text)
		if err != nil {
			return nil, err
		}
		if v {
			buf[0] = 1
		}
	case TypeShortString, TypeLongString:
		if len(text) > len(buf) {
			return nil, fmt.Errorf("string longer than %d bytes", len(buf))
		}
		copy(buf, text)
	default:
		return nil, fmt.Errorf("can't encode %s", t)
	}
	return buf, nil
}

// DecodeValue decodes one element into its text form.
func (t TypeCode) DecodeValue(data []byte) (string, error) {
	if t.IsString() {
		return DataToString(data), nil
	}
	if len(data) != t.Size() {
		return "", ErrDataSize
	}
	switch t {
	case TypeVoid:
		return "", nil
	case TypeInt32:
		return strconv.FormatInt(int64(int32(binary.LittleEndian.Uint32(data))), 10), nil
	case TypeInt16:
		return strconv.FormatInt(int64(int16(binary.LittleEndian.Uint16(data))), 10), nil
	case TypeInt8:
		return strconv.FormatInt(int64(int8(data[0])), 10), nil
	case TypeUint32, TypeUint16, TypeUint8, TypeEnum1:
		return strconv.FormatUint(getUint(data), 10), nil
	case TypeFloat:
		v := math.Float32frombits(binary.LittleEndian.Uint32(data))
		return strconv.FormatFloat(float64(v), 'g', -1, 32), nil
	case TypeBool:
		return strconv.FormatBool(data[0] != 0), nil
	}
	return "", fmt.Errorf("can't decode %s", t)
}

// EncodeValues encodes all elements of an entry.
func (e *Entry) EncodeValues(texts []string) ([]byte, error) {
	if e.Type == TypeVoid && len(texts) == 0 {
		return nil, nil
	}
	if len(texts) != e.Count() {
		return nil, fmt.Errorf("%w: %s takes %d, got %d", ErrValueCount, e.Name, e.Count(), len(texts))
	}
	data := make([]byte, 0, e.Size())
	for n, text := range texts {
		buf, err := e.Type.EncodeValue(text)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", e.Name, n, err)
		}
		data = append(data, buf...)
	}
	return data, nil
}

// DecodeValues splits entry data into elements. A trailing string
// element may be shorter than its type size.
func (e *Entry) DecodeValues(data []byte) ([]string, error) {
	return decodeElements(e.Type, e.Count(), data)
}

// DecodeOutput decodes the result of a function call.
func (e *Entry) DecodeOutput(data []byte) ([]string, error) {
	if e.OutType == TypeVoid || e.OutType == 0 {
		return nil, nil
	}
	return decodeElements(e.OutType, 1, data)
}

func decodeElements(t TypeCode, count int, data []byte) ([]string, error) {
	size := t.Size()
	if size == 0 {
		return nil, nil
	}
	if len(data) > size*count || (!t.IsString() && len(data) != size*count) {
		return nil, fmt.Errorf("%w: want %d, got %d", ErrDataSize, size*count, len(data))
	}
	vals := make([]string, 0, count)
	for off := 0; off < len(data); off += size {
		end := off + size
		if end > len(data) {
			end = len(data)
		}
		val, err := t.DecodeValue(data[off:end])
		if err != nil {
			return nil, err
		}
		vals = append(vals, val)
	}
	return vals, nil
}

func putUint(buf []byte, v uint64) {
	for n := range buf {
		buf[n] = byte(v >> (8 * uint(n)))
	}
}

func getUint(buf []byte) (v uint64) {
	for n, b := range buf {
		v |= uint64(b) << (8 * uint(n))
	}
	return
}
