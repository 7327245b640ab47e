package ipc

import (
	"encoding/binary"
)

// EncodeFrame serializes a frame in wire format:
//
//	[0-3] opcode      int32 little-endian
//	[4-7] payload_len int32 little-endian
//	[8-]  payload     payload_len bytes of UTF-8 JSON
func EncodeFrame(f Frame) []byte {
	out := make([]byte, HeaderLen+len(f.Payload))
	binary.LittleEndian.PutUint32(out[0:4], uint32(f.Op))
	binary.LittleEndian.PutUint32(out[4:8], uint32(len(f.Payload)))
	copy(out[HeaderLen:], f.Payload)
	return out
}

// DecodeFrame parses one complete frame from the front of buf. It returns
// the frame and the number of bytes consumed. A nil frame with zero
// consumed means buf does not yet hold a complete frame; callers keep
// the buffer and retry once more bytes arrive. A non-nil error means the
// stream is garbled and the connection should be recycled.
func DecodeFrame(buf []byte) (*Frame, int, error) {
	if len(buf) < HeaderLen {
		return nil, 0, nil
	}
	op := Opcode(int32(binary.LittleEndian.Uint32(buf[0:4])))
	length := int(int32(binary.LittleEndian.Uint32(buf[4:8])))
	if length < 0 || length > MaxPayloadLen {
		return nil, 0, ErrPayloadTooLarge
	}
	if len(buf) < HeaderLen+length {
		return nil, 0, nil
	}
	payload := make([]byte, length)
	copy(payload, buf[HeaderLen:HeaderLen+length])
	return &Frame{Op: op, Payload: payload}, HeaderLen + length, nil
}
