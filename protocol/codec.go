package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// ErrNoPayload 事件未携带 data
var ErrNoPayload = errors.New("event has no payload")

// Codec 信封编解码：{ "type": 事件名, "data": 载荷 }
type Codec interface {
	Name() string
	Binary() bool // 二进制帧（msgpack）还是文本帧（json）
	Encode(typ string, data any) ([]byte, error)
	Decode(b []byte) (Inbound, error)
}

// Inbound 已解出事件名、载荷延迟解码的入站消息
type Inbound struct {
	Type string
	raw  []byte
	dec  func(raw []byte, v any) error
}

// Payload 将 data 解码到 v
func (in Inbound) Payload(v any) error {
	if len(in.raw) == 0 {
		return ErrNoPayload
	}
	if err := in.dec(in.raw, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", in.Type, err)
	}
	return nil
}

var (
	JSON    Codec = jsonCodec{}
	MsgPack Codec = msgpackCodec{}
)

// ForName 按名称选择编解码器，未知名称回落到 JSON
func ForName(name string) Codec {
	if name == MsgPack.Name() {
		return MsgPack
	}
	return JSON
}

type jsonCodec struct{}

type jsonEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

func (jsonCodec) Name() string { return "json" }
func (jsonCodec) Binary() bool { return false }

func (jsonCodec) Encode(typ string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", typ, err)
	}
	return json.Marshal(jsonEnvelope{Type: typ, Data: raw})
}

func (jsonCodec) Decode(b []byte) (Inbound, error) {
	var env jsonEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		return Inbound{}, fmt.Errorf("decode envelope: %w", err)
	}
	raw := []byte(env.Data)
	if bytes.Equal(raw, []byte("null")) {
		raw = nil
	}
	return Inbound{Type: env.Type, raw: raw, dec: json.Unmarshal}, nil
}

// msgpack 复用 json 标签，两种帧字段名一致
const structTag = "json"

type msgpackCodec struct{}

type msgpackEnvelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type msgpackInbound struct {
	Type string             `json:"type"`
	Data msgpack.RawMessage `json:"data"`
}

func (msgpackCodec) Name() string { return "msgpack" }
func (msgpackCodec) Binary() bool { return true }

func (msgpackCodec) Encode(typ string, data any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag(structTag)
	if err := enc.Encode(msgpackEnvelope{Type: typ, Data: data}); err != nil {
		return nil, fmt.Errorf("encode %s: %w", typ, err)
	}
	return buf.Bytes(), nil
}

func (msgpackCodec) Decode(b []byte) (Inbound, error) {
	var env msgpackInbound
	if err := msgpackUnmarshal(b, &env); err != nil {
		return Inbound{}, fmt.Errorf("decode envelope: %w", err)
	}
	raw := []byte(env.Data)
	// nil 的 msgpack 编码
	if len(raw) == 1 && raw[0] == 0xc0 {
		raw = nil
	}
	return Inbound{Type: env.Type, raw: raw, dec: msgpackUnmarshal}, nil
}

func msgpackUnmarshal(b []byte, v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(b))
	dec.SetCustomStructTag(structTag)
	return dec.Decode(v)
}
