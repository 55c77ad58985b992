// Package protocol implements the framed serial link between avrio firmware and
// the host: a length byte, a sequence byte, a payload of VLQ encoded commands, a
// CRC16 and a sync byte.
package protocol

// Version is the firmware/host protocol version reported in the dictionary
const Version = "avrio-0.1.0"

// Frame layout
const (
	MessageHeaderSize  = 2 // length, sequence
	MessageTrailerSize = 3 // crc hi, crc lo, sync
	MessageLengthMin   = MessageHeaderSize + MessageTrailerSize
	MessageLengthMax   = 64
	MessagePositionLen = 0
	MessagePositionSeq = 1
	MessageTrailerCRC  = 3
	MessageTrailerSync = 1
	MessageValueSync   = 0x7E
	MessageDest        = 0x10
	MessageSeqMask     = 0x0F

	// MessageMax is the size of a device output buffer: room for an ACK and a
	// few full frames between flushes
	MessageMax = 256
)

// nextSeq advances a sequence byte within 0x10..0x1F
func nextSeq(seq uint8) uint8 {
	return ((seq + 1) & MessageSeqMask) | MessageDest
}

// trailer computes the CRC over frame (header and payload) and returns
// the three trailer bytes
func trailer(frame []byte) [MessageTrailerSize]byte {
	crc := CRC16(frame)
	return [MessageTrailerSize]byte{uint8(crc >> 8), uint8(crc), MessageValueSync}
}

// scanFrame looks for one frame at the start of data. It returns the frame
// length when a complete valid frame is present, 0 when more data is needed,
// and -1 when data does not start with a valid frame.
func scanFrame(data []byte) int {
	if len(data) < MessageLengthMin {
		return 0
	}
	n := int(data[MessagePositionLen])
	if n < MessageLengthMin || n > MessageLengthMax {
		return -1
	}
	if data[MessagePositionSeq]&^MessageSeqMask != MessageDest {
		return -1
	}
	if len(data) < n {
		return 0
	}
	if data[n-MessageTrailerSync] != MessageValueSync {
		return -1
	}
	crc := uint16(data[n-MessageTrailerCRC])<<8 | uint16(data[n-MessageTrailerCRC+1])
	if crc != CRC16(data[:n-MessageTrailerSize]) {
		return -1
	}
	return n
}

// skipToSync drops everything up to and including the next sync byte.
// ok is false when no sync byte was found.
func skipToSync(data []byte) (rest []byte, ok bool) {
	for i, b := range data {
		if b == MessageValueSync {
			return data[i+1:], true
		}
	}
	return nil, false
}
