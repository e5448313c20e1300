// Package attr implements AttrDecoder: a dispatch table of per-type
// decoders that turn a raw attribute slice into its canonical UTF-8 text
// rendering. Varlena header parsing and compression dispatch are
// implemented once here and shared across every family (spec.md §4.3).
//
// Grounded on the teacher's internal/storage/decimal.go for the
// "single shared header-parse, many typed renderers" shape, generalised
// from tinySQL's scalar value kinds to the source database's on-disk
// varlena/TOAST encoding.
package attr

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/wublabdubdub/PDU-PostgreSQLDataUnloader-sub001/internal/descriptor"
)

// CompressionMethod identifies the codec of a compressed varlena payload.
type CompressionMethod byte

const (
	CompressionPGLZ CompressionMethod = 0
	CompressionLZ4   CompressionMethod = 1
)

// ExternalTag distinguishes the four kinds of out-of-line varlena pointer.
type ExternalTag byte

const (
	TagIndirect   ExternalTag = 1
	TagExpandedRO ExternalTag = 2
	TagExpandedRW ExternalTag = 3
	TagOnDisk     ExternalTag = 18
)

// VarlenaHeader is the result of parsing a varlena attribute's leading
// bytes, without resolving external/compressed payloads.
type VarlenaHeader struct {
	Compressed   bool
	External     bool
	Tag          ExternalTag
	Method       CompressionMethod
	RawSize      int // decompressed size, or payload size excluding the header when uncompressed
	HeaderLen    int // bytes consumed by the header (+ tcinfo, when present)
	PayloadStart int // offset within the slice where payload bytes begin
}

var (
	// ErrBadVarlena reports a malformed or truncated varlena header.
	ErrBadVarlena = errors.New("attr: malformed varlena header")
	// ErrExternalUnsupported reports an external tag this offline tool
	// cannot resolve without a live TOAST manager (only OnDisk can be).
	ErrExternalUnsupported = errors.New("attr: unsupported external varlena tag")
)

// ParseVarlenaHeader implements spec.md §4.3's header discipline: 4-byte
// (optionally compressed) header, 1-byte short inline header, or 1-byte
// header + external tag byte.
func ParseVarlenaHeader(raw []byte) (VarlenaHeader, error) {
	if len(raw) == 0 {
		return VarlenaHeader{}, errors.Wrap(ErrBadVarlena, "empty attribute")
	}
	b0 := raw[0]
	switch {
	case b0&1 == 0: // 4-byte header
		if len(raw) < 4 {
			return VarlenaHeader{}, errors.Wrap(ErrBadVarlena, "4B header truncated")
		}
		size := int(binary.LittleEndian.Uint32(raw[0:4]) >> 2 & 0x3FFFFFFF)
		if b0&3 == 2 { // compressed
			if len(raw) < 8 {
				return VarlenaHeader{}, errors.Wrap(ErrBadVarlena, "compressed header truncated")
			}
			tcinfo := binary.LittleEndian.Uint32(raw[4:8])
			return VarlenaHeader{
				Compressed:   true,
				Method:       CompressionMethod(tcinfo >> 30),
				RawSize:      int(tcinfo & 0x3FFFFFFF),
				HeaderLen:    8,
				PayloadStart: 8,
			}, nil
		}
		return VarlenaHeader{RawSize: size - 4, HeaderLen: 4, PayloadStart: 4}, nil

	case b0 == 0x01: // external: 1-byte header + tag byte
		if len(raw) < 2 {
			return VarlenaHeader{}, errors.Wrap(ErrBadVarlena, "external header truncated")
		}
		return VarlenaHeader{External: true, Tag: ExternalTag(raw[1]), HeaderLen: 2, PayloadStart: 2}, nil

	default: // short inline
		size := int(b0>>1) & 0x7F
		return VarlenaHeader{RawSize: size, HeaderLen: 1, PayloadStart: 1}, nil
	}
}

// ExternalPointer is the on-disk TOAST reference carried in the payload
// of an External varlena (spec.md §3 ExternalPointer).
type ExternalPointer struct {
	RawSize    int32
	ExtInfo    uint32
	ValueID    uint32
	ToastRelID uint32
}

// ExtSize returns the compressed-on-disk size recorded in ExtInfo.
func (p ExternalPointer) ExtSize() int { return int(p.ExtInfo & 0x3FFFFFFF) }

// Compressed reports whether the TOASTed value is compressed, by
// comparing the stored external size against the uncompressed rawsize
// (basic.h's VARATT_EXTERNAL_IS_COMPRESSED).
func (p ExternalPointer) Compressed() bool {
	return p.ExtSize() < int(p.RawSize)-4
}

// ParseExternalPointer decodes the 16-byte on-disk TOAST pointer that
// follows an external varlena's header+tag bytes.
func ParseExternalPointer(payload []byte) (ExternalPointer, error) {
	if len(payload) < 16 {
		return ExternalPointer{}, errors.Wrap(ErrBadVarlena, "external pointer truncated")
	}
	return ExternalPointer{
		RawSize:    int32(binary.LittleEndian.Uint32(payload[0:4])),
		ExtInfo:    binary.LittleEndian.Uint32(payload[4:8]),
		ValueID:    binary.LittleEndian.Uint32(payload[8:12]),
		ToastRelID: binary.LittleEndian.Uint32(payload[12:16]),
	}, nil
}

// Resolver is the subset of ToastResolver AttrDecoder depends on. Kept
// narrow so attr never imports the toast package (the dependency runs
// the other way: toast imports attr for decompression).
type Resolver interface {
	Fetch(toastrelID, valueID uint32) ([]byte, error)
}

// Decompress dispatches a compressed varlena payload to the codec named
// by method, per spec.md §4.3.
func Decompress(method CompressionMethod, payload []byte, rawSize int) ([]byte, error) {
	switch method {
	case CompressionPGLZ:
		return DecompressPGLZ(payload, rawSize)
	case CompressionLZ4:
		return DecompressLZ4(payload, rawSize)
	default:
		return nil, errors.Errorf("attr: unknown compression method %d", method)
	}
}

// Inline resolves a varlena attribute's raw slice to its decompressed
// payload bytes, fetching from resolver when the value is stored
// out-of-line. It does not render text — that is each family decoder's
// job.
func Inline(raw []byte, resolver Resolver) ([]byte, error) {
	hdr, err := ParseVarlenaHeader(raw)
	if err != nil {
		return nil, err
	}
	switch {
	case hdr.External:
		if hdr.Tag != TagOnDisk {
			return nil, errors.Wrapf(ErrExternalUnsupported, "tag=%d", hdr.Tag)
		}
		if resolver == nil {
			return nil, errors.Wrap(ErrExternalUnsupported, "no resolver available")
		}
		ptr, err := ParseExternalPointer(raw[hdr.PayloadStart:])
		if err != nil {
			return nil, err
		}
		assembled, err := resolver.Fetch(ptr.ToastRelID, ptr.ValueID)
		if err != nil {
			return nil, err
		}
		if !ptr.Compressed() {
			return assembled, nil
		}
		if len(assembled) < 4 {
			return nil, errors.Wrap(ErrBadVarlena, "compressed toast value truncated")
		}
		tcinfo := binary.LittleEndian.Uint32(assembled[0:4])
		method := CompressionMethod(tcinfo >> 30)
		rawSize := int(tcinfo & 0x3FFFFFFF)
		return Decompress(method, assembled[4:], rawSize)

	case hdr.Compressed:
		return Decompress(hdr.Method, raw[hdr.PayloadStart:], hdr.RawSize)

	default:
		end := hdr.PayloadStart + hdr.RawSize
		if end > len(raw) {
			return nil, errors.Wrap(ErrBadVarlena, "inline payload overruns attribute")
		}
		return raw[hdr.PayloadStart:end], nil
	}
}

// Decode renders attr's raw attribute slice as canonical text, dispatching
// on attr.TypeOID. Varlena attributes are resolved (and decompressed, or
// fetched from TOAST) before the family decoder runs.
func Decode(raw []byte, attr descriptor.Attr, resolver Resolver) (string, error) {
	if attr.IsVarlena() {
		payload, err := Inline(raw, resolver)
		if err != nil {
			return "", err
		}
		return decodeVarlenaFamily(attr.TypeOID, payload, attr.TypMod)
	}
	return decodeFixedFamily(attr.TypeOID, raw, attr.TypMod)
}
