// Package codec serializes persisted records. JSON is the default and
// keeps the catalog readable with ordinary tools; CBOR is a compact
// binary alternative. Either can be wrapped with zstd, which pays off
// once events carry inline data-URI images.
//
// Decoding sniffs the zstd frame magic, so a store can switch between
// compressed and uncompressed codecs without rewriting existing data.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
)

// Codec turns values into bytes and back.
type Codec interface {
	Name() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// ByName resolves a codec name: "json", "cbor", "json+zstd" or
// "cbor+zstd". The empty string selects JSON.
func ByName(name string) (Codec, error) {
	base, compressed := strings.CutSuffix(strings.ToLower(strings.TrimSpace(name)), "+zstd")
	var c Codec
	switch base {
	case "", "json":
		c = JSON{}
	case "cbor":
		c = CBOR{}
	default:
		return nil, fmt.Errorf("codec: unknown codec %q", name)
	}
	if compressed {
		return Zstd{Inner: c}, nil
	}
	return c, nil
}

// JSON is the encoding/json codec.
type JSON struct{}

func (JSON) Name() string { return "json" }

func (JSON) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (JSON) Unmarshal(data []byte, v any) error {
	data, err := maybeDecompress(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

var (
	cborOnce sync.Once
	encMode  cbor.EncMode
	decMode  cbor.DecMode
	cborErr  error
)

// initCBOR builds deterministic encode options: sorted map keys,
// smallest integer encodings, RFC 3339 times with nanoseconds so chat
// timestamps survive a round trip unchanged.
func initCBOR() {
	opts := cbor.CoreDetEncOptions()
	opts.Time = cbor.TimeRFC3339Nano
	encMode, cborErr = opts.EncMode()
	if cborErr != nil {
		return
	}
	decMode, cborErr = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
}

// CBOR is the RFC 8949 codec.
type CBOR struct{}

func (CBOR) Name() string { return "cbor" }

func (CBOR) Marshal(v any) ([]byte, error) {
	cborOnce.Do(initCBOR)
	if cborErr != nil {
		return nil, fmt.Errorf("codec: cbor init: %w", cborErr)
	}
	return encMode.Marshal(v)
}

func (CBOR) Unmarshal(data []byte, v any) error {
	cborOnce.Do(initCBOR)
	if cborErr != nil {
		return fmt.Errorf("codec: cbor init: %w", cborErr)
	}
	data, err := maybeDecompress(data)
	if err != nil {
		return err
	}
	return decMode.Unmarshal(data, v)
}

var (
	zstdOnce sync.Once
	zEnc     *zstd.Encoder
	zDec     *zstd.Decoder
	zErr     error
)

func initZstd() {
	zEnc, zErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if zErr != nil {
		return
	}
	zDec, zErr = zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
}

// zstdMagic is the frame magic number, little endian.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// Zstd compresses the output of Inner.
type Zstd struct {
	Inner Codec
}

func (z Zstd) Name() string { return z.Inner.Name() + "+zstd" }

func (z Zstd) Marshal(v any) ([]byte, error) {
	raw, err := z.Inner.Marshal(v)
	if err != nil {
		return nil, err
	}
	zstdOnce.Do(initZstd)
	if zErr != nil {
		return nil, fmt.Errorf("codec: zstd init: %w", zErr)
	}
	return zEnc.EncodeAll(raw, make([]byte, 0, len(raw)/2)), nil
}

// Unmarshal accepts both compressed and plain input; the inner codec
// does the sniffing.
func (z Zstd) Unmarshal(data []byte, v any) error {
	return z.Inner.Unmarshal(data, v)
}

func maybeDecompress(data []byte) ([]byte, error) {
	if !bytes.HasPrefix(data, zstdMagic) {
		return data, nil
	}
	zstdOnce.Do(initZstd)
	if zErr != nil {
		return nil, fmt.Errorf("codec: zstd init: %w", zErr)
	}
	out, err := zDec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("codec: zstd decode: %w", err)
	}
	return out, nil
}
