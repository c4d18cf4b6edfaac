package ldap

import (
	"fmt"

	ber "github.com/go-asn1-ber/asn1-ber"
)

// This file holds the typed helpers the PDU files use to build and read
// go-asn1-ber packets (newSequence, newInt, octetString, ...). Each PDU
// file still imports the library for the *ber.Packet type its encode and
// decode functions take and return, and a few call ber.Encode directly for
// primitive application-tagged PDUs; the public API exposes only ordinary
// Go structs.

func newSequence(desc string) *ber.Packet {
	return ber.Encode(ber.ClassUniversal, ber.TypeConstructed, ber.TagSequence, nil, desc)
}

// newAppSequence builds the constructed, application-tagged packet used for
// a protocolOp (BindRequest, SearchRequest, ...).
func newAppSequence(tag int, desc string) *ber.Packet {
	return ber.Encode(ber.ClassApplication, ber.TypeConstructed, ber.Tag(tag), nil, desc)
}

// newCtxConstructed builds a constructed, context-tagged packet, used for
// CHOICE and SET OF [n] elements (controls, substring filter, AVA lists).
func newCtxConstructed(tag int, desc string) *ber.Packet {
	return ber.Encode(ber.ClassContext, ber.TypeConstructed, ber.Tag(tag), nil, desc)
}

// newCtxPrimitive builds a primitive, context-tagged octet string, used for
// implicitly-tagged CHOICE alternatives such as simple authentication ([0])
// and filter match alternatives ([2], [3], [4], ...).
func newCtxPrimitive(tag int, value []byte, desc string) *ber.Packet {
	p := ber.Encode(ber.ClassContext, ber.TypePrimitive, ber.Tag(tag), nil, desc)
	p.Data.Write(value)
	p.Value = string(value)
	return p
}

func newCtxBool(tag int, value bool, desc string) *ber.Packet {
	return ber.NewBoolean(ber.ClassContext, ber.TypePrimitive, ber.Tag(tag), value, desc)
}

func newInt(v int64, desc string) *ber.Packet {
	return ber.NewInteger(ber.ClassUniversal, ber.TypePrimitive, ber.TagInteger, v, desc)
}

func newEnum(v int64, desc string) *ber.Packet {
	return ber.NewInteger(ber.ClassUniversal, ber.TypePrimitive, ber.TagEnumerated, v, desc)
}

func newBool(v bool, desc string) *ber.Packet {
	return ber.NewBoolean(ber.ClassUniversal, ber.TypePrimitive, ber.TagBoolean, v, desc)
}

func newOctetString(s, desc string) *ber.Packet {
	return ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, s, desc)
}

func newOctetBytes(b []byte, desc string) *ber.Packet {
	p := ber.Encode(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, nil, desc)
	p.Data.Write(b)
	p.Value = string(b)
	return p
}

// newSet builds a constructed, universal SET (used for the SET OF
// AttributeValue "vals" of attributes and modify changes).
func newSet(desc string) *ber.Packet {
	return ber.Encode(ber.ClassUniversal, ber.TypeConstructed, ber.TagSet, nil, desc)
}

func intValue(p *ber.Packet) (int64, error) {
	v, ok := p.Value.(int64)
	if !ok {
		return 0, ProtocolError(fmt.Sprintf("expected INTEGER, got %T", p.Value))
	}
	return v, nil
}

func boolValue(p *ber.Packet) (bool, error) {
	v, ok := p.Value.(bool)
	if !ok {
		return false, ProtocolError(fmt.Sprintf("expected BOOLEAN, got %T", p.Value))
	}
	return v, nil
}

func octetString(p *ber.Packet) string {
	if s, ok := p.Value.(string); ok && s != "" {
		return s
	}
	if p.ByteValue == nil && p.Data != nil {
		return p.Data.String()
	}
	return string(p.ByteValue)
}

func octetBytes(p *ber.Packet) []byte {
	if p.ByteValue != nil {
		return p.ByteValue
	}
	if s, ok := p.Value.(string); ok {
		return []byte(s)
	}
	if p.Data != nil && p.Data.Len() > 0 {
		return p.Data.Bytes()
	}
	return nil
}

// decodePacket parses exactly one complete BER element from data. Callers
// must already know data holds a full frame; partial-frame detection is
// codec.go's job, not this adapter's, since go-asn1-ber's decoder expects a
// complete buffer.
func decodePacket(data []byte) (*ber.Packet, error) {
	p := ber.DecodePacket(data)
	if p == nil {
		return nil, &AsnDecodeError{Err: ProtocolError("empty or malformed packet")}
	}
	return p, nil
}
