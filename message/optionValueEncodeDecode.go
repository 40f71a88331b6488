package message

import (
	"encoding/binary"
)

const (
	max1ByteNumber = uint32(^uint8(0))
	max2ByteNumber = uint32(^uint16(0))
	max3ByteNumber = uint32(0xffffff)
)

// EncodeUint32 writes value into buf using the fewest bytes (zero encodes to no bytes).
func EncodeUint32(buf []byte, value uint32) (int, error) {
	switch {
	case value == 0:
		return 0, nil
	case value <= max1ByteNumber:
		if len(buf) < 1 {
			return 1, ErrTooSmall
		}
		buf[0] = byte(value)
		return 1, nil
	case value <= max2ByteNumber:
		if len(buf) < 2 {
			return 2, ErrTooSmall
		}
		binary.BigEndian.PutUint16(buf, uint16(value))
		return 2, nil
	case value <= max3ByteNumber:
		if len(buf) < 3 {
			return 3, ErrTooSmall
		}
		buf[0] = byte(value >> 16)
		buf[1] = byte(value >> 8)
		buf[2] = byte(value)
		return 3, nil
	default:
		if len(buf) < 4 {
			return 4, ErrTooSmall
		}
		binary.BigEndian.PutUint32(buf, value)
		return 4, nil
	}
}

// DecodeUint32 reads a big-endian integer of up to four bytes.
func DecodeUint32(buf []byte) (uint32, int) {
	if len(buf) > 4 {
		buf = buf[:4]
	}
	var value uint32
	for _, b := range buf {
		value = value<<8 | uint32(b)
	}
	return value, len(buf)
}
