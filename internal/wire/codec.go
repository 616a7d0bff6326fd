// Package wire provides the payload encodings spoken between the client and
// the compute service. Sessions carry tensor blobs, so a binary encoding is
// offered next to JSON.
package wire

import (
	"fmt"
	"mime"
	"strings"

	"github.com/fxamacker/cbor/v2"
	json "github.com/goccy/go-json"
)

// Codec marshals request and response bodies.
type Codec interface {
	Name() string
	ContentType() string
	Marshal(v any) ([]byte, error)
	Unmarshal(b []byte, v any) error
}

const (
	ContentTypeJSON = "application/json"
	ContentTypeCBOR = "application/cbor"
)

type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }
func (jsonCodec) ContentType() string { return ContentTypeJSON }
func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }
func (jsonCodec) Unmarshal(b []byte, v any) error { return json.Unmarshal(b, v) }

type cborCodec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

func (cborCodec) Name() string { return "cbor" }
func (cborCodec) ContentType() string { return ContentTypeCBOR }
func (c cborCodec) Marshal(v any) ([]byte, error) { return c.enc.Marshal(v) }
func (c cborCodec) Unmarshal(b []byte, v any) error { return c.dec.Unmarshal(b, v) }

var (
	JSON Codec = jsonCodec{}
	CBOR Codec = newCBOR()
)

func newCBOR() Codec {
	// Sorted map keys keep identical sessions byte-identical on the wire.
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("wire: cbor enc mode: %v", err))
	}
	dec, err := cbor.DecOptions{MaxArrayElements: 1 << 27, MaxMapPairs: 1 << 20}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("wire: cbor dec mode: %v", err))
	}
	return cborCodec{enc: enc, dec: dec}
}

// ByName resolves a configured codec name. Empty selects JSON.
func ByName(name string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "json":
		return JSON, nil
	case "cbor":
		return CBOR, nil
	default:
		return nil, fmt.Errorf("unsupported codec %q (want json or cbor)", name)
	}
}

// ForContentType picks the codec for a request Content-Type header.
// ok is false for media types neither codec understands.
func ForContentType(ct string) (c Codec, ok bool) {
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return nil, false
	}
	switch mt {
	case ContentTypeJSON:
		return JSON, true
	case ContentTypeCBOR:
		return CBOR, true
	default:
		return nil, false
	}
}
