package ldap

// Codec implements the frame boundary contract spec.md asks for: Encode
// turns one LDAPMessage into bytes, Decode either consumes a complete
// frame from the front of buf or reports ErrIncomplete so the caller can
// read more and retry without losing what it already has.
//
// go-asn1-ber's DecodePacket wants a complete buffer up front — it has no
// partial-read API — so frame-boundary detection is done here with a small
// BER length scanner before handing the complete frame to the library.
type Codec struct{}

// Encode renders msg as a complete LDAPMessage frame.
func (Codec) Encode(msg *LdapMessage) ([]byte, error) {
	return encodeMessage(msg), nil
}

// Decode consumes the first complete LDAPMessage frame from buf. On
// success consumed is the number of bytes of buf the frame occupied; the
// caller is responsible for slicing those off before the next call. If buf
// does not yet hold a complete frame, Decode returns ErrIncomplete and
// consumed == 0; the caller must read more bytes and retry with the full
// buffer, not just the new bytes.
func (Codec) Decode(buf []byte) (msg *LdapMessage, consumed int, err error) {
	frameLen, ok := scanFrameLength(buf)
	if !ok || len(buf) < frameLen {
		return nil, 0, ErrIncomplete
	}
	msg, err = decodeMessage(buf[:frameLen])
	if err != nil {
		return nil, 0, err
	}
	return msg, frameLen, nil
}

// scanFrameLength reads a BER tag-length header from the front of buf and
// returns the total size (header + content) of the TLV it introduces. ok is
// false when buf does not yet contain enough bytes to know that size.
func scanFrameLength(buf []byte) (total int, ok bool) {
	if len(buf) < 2 {
		return 0, false
	}
	// Tag octet(s): high-tag-number form (low 5 bits all set) continues
	// with more octets until one with the high bit clear. LDAPMessage is
	// always a universal SEQUENCE (tag 0x30), but scan generically so a
	// malformed or unexpected tag doesn't wedge the reader.
	i := 1
	if buf[0]&0x1f == 0x1f {
		for {
			if i >= len(buf) {
				return 0, false
			}
			more := buf[i]&0x80 != 0
			i++
			if !more {
				break
			}
		}
	}
	if i >= len(buf) {
		return 0, false
	}
	lenByte := buf[i]
	i++
	switch {
	case lenByte&0x80 == 0:
		// Short form: the byte itself is the length.
		return i + int(lenByte), true
	case lenByte == 0x80:
		// Indefinite length is not produced by conforming LDAP
		// implementations and isn't something we can size without
		// scanning for the end-of-contents marker; treat as incomplete
		// until more of the pack's examples show a server using it.
		return 0, false
	default:
		n := int(lenByte & 0x7f)
		if n > 8 {
			return 0, false
		}
		if i+n > len(buf) {
			return 0, false
		}
		var length int
		for _, b := range buf[i : i+n] {
			length = length<<8 | int(b)
		}
		i += n
		return i + length, true
	}
}
