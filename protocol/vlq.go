package protocol

import "errors"

var (
	ErrInvalidVLQ     = errors.New("invalid VLQ encoding")
	ErrBufferTooSmall = errors.New("buffer too small for VLQ")
	ErrBufferFull     = errors.New("buffer full")
)

// vlqShifts are the bit positions of the optional leading 7-bit groups
var vlqShifts = [...]uint{28, 21, 14, 7}

// EncodeVLQInt writes v as one to five 7-bit groups, most significant first.
// A leading group is emitted only when v does not fit the groups after it, with
// the range skewed so that small negative values stay short.
func EncodeVLQInt(output OutputBuffer, v int32) {
	var buf [5]byte
	n := 0
	for _, shift := range vlqShifts {
		lim := shift - 2
		if v < -(int32(1)<<lim) || v >= int32(3)<<lim {
			buf[n] = byte(v>>shift)&0x7F | 0x80
			n++
		}
	}
	buf[n] = byte(v) & 0x7F
	n++
	output.Output(buf[:n])
}

// EncodeVLQUint encodes an unsigned integer to VLQ format
func EncodeVLQUint(output OutputBuffer, v uint32) {
	EncodeVLQInt(output, int32(v))
}

// DecodeVLQInt decodes one VLQ integer and advances data past it
func DecodeVLQInt(data *[]byte) (int32, error) {
	buf := *data
	if len(buf) == 0 {
		return 0, ErrBufferTooSmall
	}

	c := uint32(buf[0])
	buf = buf[1:]
	v := c & 0x7F
	if c&0x60 == 0x60 {
		// negative: sign extend the first group
		v |= ^uint32(0x1F)
	}
	for i := 0; c&0x80 != 0; i++ {
		if i == len(vlqShifts) {
			return 0, ErrInvalidVLQ
		}
		if len(buf) == 0 {
			return 0, ErrBufferTooSmall
		}
		c = uint32(buf[0])
		buf = buf[1:]
		v = v<<7 | c&0x7F
	}

	*data = buf
	return int32(v), nil
}

// DecodeVLQUint decodes a VLQ unsigned integer from the data slice
func DecodeVLQUint(data *[]byte) (uint32, error) {
	v, err := DecodeVLQInt(data)
	return uint32(v), err
}

// EncodeVLQBytes encodes a byte array with length prefix
func EncodeVLQBytes(output OutputBuffer, data []byte) {
	EncodeVLQUint(output, uint32(len(data)))
	output.Output(data)
}

// DecodeVLQBytes decodes a length-prefixed byte array. The result aliases data.
func DecodeVLQBytes(data *[]byte) ([]byte, error) {
	n, err := DecodeVLQUint(data)
	if err != nil {
		return nil, err
	}
	if uint32(len(*data)) < n {
		return nil, ErrBufferTooSmall
	}
	result := (*data)[:n]
	*data = (*data)[n:]
	return result, nil
}

// EncodeVLQString encodes a string with length prefix
func EncodeVLQString(output OutputBuffer, s string) {
	EncodeVLQBytes(output, []byte(s))
}

// DecodeVLQString decodes a length-prefixed string
func DecodeVLQString(data *[]byte) (string, error) {
	b, err := DecodeVLQBytes(data)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
