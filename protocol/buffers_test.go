package protocol

import (
	"bytes"
	"errors"
	"testing"
)

func TestSliceInputBufferPop(t *testing.T) {
	buf := NewSliceInputBuffer([]byte{1, 2, 3, 4, 5})

	buf.Pop(2)
	if buf.Available() != 3 || buf.Data()[0] != 3 {
		t.Errorf("After Pop(2): available %d, data %v", buf.Available(), buf.Data())
	}

	buf.Pop(10)
	if buf.Available() != 0 {
		t.Errorf("Pop past the end left %d bytes", buf.Available())
	}
}

func TestScratchOutputPatchesLength(t *testing.T) {
	scratch := NewScratchOutput()

	// reserve a length byte, then fill it in once the payload is known
	scratch.Output([]byte{0})
	start := scratch.CurPosition()
	EncodeVLQUint(scratch, 300)
	scratch.Update(0, byte(scratch.CurPosition()-start))

	result := scratch.Result()
	if int(result[0]) != len(scratch.DataSince(start)) {
		t.Errorf("Length byte %d, payload %v", result[0], scratch.DataSince(start))
	}
	if scratch.DataSince(scratch.CurPosition()+1) != nil {
		t.Error("DataSince past the end should be nil")
	}

	// updates beyond the written data are ignored
	scratch.Update(scratch.CurPosition(), 0xFF)
	if !bytes.Equal(scratch.Result(), result) {
		t.Errorf("Result changed to %v", scratch.Result())
	}
}

func TestScratchOutputOverflow(t *testing.T) {
	scratch := NewScratchOutput()

	scratch.Output(make([]byte, MessageMax-1))
	if scratch.Overflowed() {
		t.Fatal("Overflowed before the buffer was full")
	}
	scratch.Output([]byte{1, 2})
	if !scratch.Overflowed() {
		t.Error("Writing past MessageMax should overflow")
	}
	if scratch.CurPosition() != MessageMax {
		t.Errorf("Position %d, expected %d", scratch.CurPosition(), MessageMax)
	}

	scratch.Reset()
	if scratch.Overflowed() || scratch.CurPosition() != 0 {
		t.Error("Reset should clear the overflow flag and position")
	}
}

func TestFifoBufferCapacity(t *testing.T) {
	tests := []struct {
		capacity int
		write    int
		stored   int
	}{
		{capacity: 10, write: 5, stored: 5},
		{capacity: 10, write: 9, stored: 9},
		{capacity: 10, write: 12, stored: 9}, // one slot stays free
		{capacity: 2, write: 3, stored: 1},
	}

	for _, tt := range tests {
		fifo := NewFifoBuffer(tt.capacity)
		if n := fifo.Write(make([]byte, tt.write)); n != tt.stored {
			t.Errorf("capacity %d: Write(%d) stored %d, expected %d", tt.capacity, tt.write, n, tt.stored)
		}
		if fifo.Available() != tt.stored || fifo.Free() != tt.capacity-1-tt.stored {
			t.Errorf("capacity %d: available %d free %d", tt.capacity, fifo.Available(), fifo.Free())
		}
	}
}

func TestFifoBufferWriteByteFull(t *testing.T) {
	fifo := NewFifoBuffer(3)
	for i := 0; i < 2; i++ {
		if err := fifo.WriteByte(byte(i)); err != nil {
			t.Fatalf("WriteByte %d: %v", i, err)
		}
	}
	if err := fifo.WriteByte(9); !errors.Is(err, ErrBufferFull) {
		t.Errorf("WriteByte on a full FIFO = %v, expected ErrBufferFull", err)
	}
}

// A frame split across serial reads must come out of Data in order even when
// the ring wraps underneath it.
func TestFifoBufferFrameAcrossWrap(t *testing.T) {
	fifo := NewFifoBuffer(8)
	fifo.Write([]byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE})
	fifo.Pop(5)

	frame := []byte{5, 0x10, 0x01, 0x02, MessageValueSync}
	fifo.Write(frame[:3])
	fifo.Write(frame[3:])

	if !bytes.Equal(fifo.Data(), frame) {
		t.Fatalf("Data() = %v, expected %v", fifo.Data(), frame)
	}

	out := make([]byte, 8)
	if n := fifo.Read(out); n != len(frame) || !bytes.Equal(out[:n], frame) {
		t.Errorf("Read = %v", out[:n])
	}
	if !fifo.IsEmpty() {
		t.Error("FIFO should be empty after reading the frame")
	}
}

func TestFifoBufferPopAndReset(t *testing.T) {
	fifo := NewFifoBuffer(6)
	fifo.Write([]byte{1, 2, 3})

	fifo.Pop(10)
	if !fifo.IsEmpty() {
		t.Errorf("Pop past the end left %d bytes", fifo.Available())
	}

	fifo.Write([]byte{4, 5})
	fifo.Reset()
	if !fifo.IsEmpty() || fifo.Free() != 5 {
		t.Errorf("After Reset: available %d free %d", fifo.Available(), fifo.Free())
	}
}
