package speech

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// 火山引擎 ASR 二进制帧：4 字节头 + [序号] + [错误码] + 负载长度 + 负载
//
//	byte0: 协议版本(4bit) | 头长度/4(4bit)
//	byte1: 消息类型(4bit) | 标志位(4bit)
//	byte2: 序列化方式(4bit) | 压缩方式(4bit)
//	byte3: 保留
const protocolVersion = 0b0001

type messageType uint8

const (
	fullClientRequest  messageType = 0b0001
	audioOnlyRequest   messageType = 0b0010
	fullServerResponse messageType = 0b1001
	serverError        messageType = 0b1111
)

type messageFlags uint8

const (
	flagNoSequence       messageFlags = 0b0000
	flagPositiveSequence messageFlags = 0b0001
	flagLastNoSequence   messageFlags = 0b0010
	flagNegativeSequence messageFlags = 0b0011
)

const (
	serializationNone uint8 = 0b0000
	serializationJSON uint8 = 0b0001

	compressionNone uint8 = 0b0000
	compressionGzip uint8 = 0b0001
)

type frame struct {
	kind          messageType
	flags         messageFlags
	serialization uint8
	compression   uint8
	sequence      int32
	errorCode     uint32
	payload       []byte
}

func (f *frame) hasSequence() bool {
	switch f.flags & 0b0011 {
	case flagPositiveSequence, flagNegativeSequence:
		return true
	}
	return false
}

// last 判断是否为最后一包
func (f *frame) last() bool {
	switch f.flags & 0b0011 {
	case flagLastNoSequence, flagNegativeSequence:
		return true
	}
	return false
}

func (f *frame) encode() []byte {
	size := 4 + 4 + len(f.payload)
	if f.hasSequence() {
		size += 4
	}
	if f.kind == serverError {
		size += 4
	}

	buf := make([]byte, 4, size)
	buf[0] = protocolVersion<<4 | 0b0001
	buf[1] = uint8(f.kind)<<4 | uint8(f.flags)
	buf[2] = f.serialization<<4 | f.compression
	buf[3] = 0

	if f.hasSequence() {
		buf = binary.BigEndian.AppendUint32(buf, uint32(f.sequence))
	}
	if f.kind == serverError {
		buf = binary.BigEndian.AppendUint32(buf, f.errorCode)
	}
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(f.payload)))
	return append(buf, f.payload...)
}

var errShortFrame = errors.New("asr frame truncated")

func decodeFrame(data []byte) (*frame, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: header needs 4 bytes, got %d", errShortFrame, len(data))
	}
	if version := data[0] >> 4; version != protocolVersion {
		return nil, fmt.Errorf("unsupported protocol version: %d", version)
	}

	headerSize := int(data[0]&0x0F) * 4
	if headerSize < 4 || len(data) < headerSize {
		return nil, fmt.Errorf("%w: header size %d", errShortFrame, headerSize)
	}

	f := &frame{
		kind:          messageType(data[1] >> 4),
		flags:         messageFlags(data[1] & 0x0F),
		serialization: data[2] >> 4,
		compression:   data[2] & 0x0F,
	}
	rest := data[headerSize:]

	next := func(name string) (uint32, error) {
		if len(rest) < 4 {
			return 0, fmt.Errorf("%w: missing %s", errShortFrame, name)
		}
		v := binary.BigEndian.Uint32(rest[:4])
		rest = rest[4:]
		return v, nil
	}

	if f.hasSequence() {
		seq, err := next("sequence")
		if err != nil {
			return nil, err
		}
		f.sequence = int32(seq)
	}
	if f.kind == serverError {
		code, err := next("error code")
		if err != nil {
			return nil, err
		}
		f.errorCode = code
	}

	size, err := next("payload size")
	if err != nil {
		return nil, err
	}
	if uint32(len(rest)) < size {
		return nil, fmt.Errorf("%w: payload expects %d bytes, got %d", errShortFrame, size, len(rest))
	}
	f.payload = rest[:size]
	return f, nil
}

// payloadBytes 返回解压后的负载
func (f *frame) payloadBytes() ([]byte, error) {
	if f.compression == compressionGzip && len(f.payload) > 0 {
		return gunzipBytes(f.payload)
	}
	return f.payload, nil
}

func newFullClientRequest(payload []byte) *frame {
	return &frame{
		kind:          fullClientRequest,
		flags:         flagNoSequence,
		serialization: serializationJSON,
		compression:   compressionGzip,
		payload:       payload,
	}
}

// newAudioFrame 最后一包使用负序号
func newAudioFrame(chunk []byte, sequence int32, last bool) *frame {
	f := &frame{
		kind:          audioOnlyRequest,
		flags:         flagPositiveSequence,
		serialization: serializationNone,
		compression:   compressionGzip,
		sequence:      sequence,
		payload:       chunk,
	}
	if last {
		f.flags = flagNegativeSequence
		f.sequence = -sequence
	}
	return f
}
