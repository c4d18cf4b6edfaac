package ldap

import (
	"fmt"

	ber "github.com/go-asn1-ber/asn1-ber"
)

// Control is an RFC 4511 section 4.1.11 Control: an opaque, OID-identified
// extension attached to a request or response envelope.
type Control struct {
	Type         string
	Criticality  bool
	Value        []byte
	HasValue     bool
}

func (c Control) encode() *ber.Packet {
	p := newSequence("Control")
	p.AppendChild(newOctetString(c.Type, "controlType"))
	if c.Criticality {
		p.AppendChild(newBool(c.Criticality, "criticality"))
	}
	if c.HasValue {
		p.AppendChild(newOctetBytes(c.Value, "controlValue"))
	}
	return p
}

func decodeControl(p *ber.Packet) (Control, error) {
	if len(p.Children) < 1 {
		return Control{}, ProtocolError("Control missing controlType")
	}
	c := Control{Type: octetString(p.Children[0])}
	idx := 1
	if idx < len(p.Children) && p.Children[idx].Tag == ber.TagBoolean {
		v, err := boolValue(p.Children[idx])
		if err != nil {
			return Control{}, err
		}
		c.Criticality = v
		idx++
	}
	if idx < len(p.Children) {
		c.Value = octetBytes(p.Children[idx])
		c.HasValue = true
	}
	return c, nil
}

// SimplePagedResultsControl is the Simple Paged Results control (RFC 2696),
// OID 1.2.840.113556.1.4.319, threaded through paged.go. cookie is the
// opaque server-issued continuation token; an empty cookie on a response
// signals the server has no further pages.
type SimplePagedResultsControl struct {
	Size   int
	Cookie []byte
}

func (c SimplePagedResultsControl) toControl() (Control, error) {
	seq := newSequence("realSearchControlValue")
	seq.AppendChild(newInt(int64(c.Size), "size"))
	seq.AppendChild(newOctetBytes(c.Cookie, "cookie"))
	return Control{
		Type:     OIDSimplePagedResults,
		HasValue: true,
		Value:    seq.Bytes(),
	}, nil
}

func pagedResultsControlFromControl(c Control) (SimplePagedResultsControl, error) {
	p, err := decodePacket(c.Value)
	if err != nil {
		return SimplePagedResultsControl{}, fmt.Errorf("decoding realSearchControlValue: %w", err)
	}
	if len(p.Children) < 2 {
		return SimplePagedResultsControl{}, ProtocolError("realSearchControlValue missing size or cookie")
	}
	size, err := intValue(p.Children[0])
	if err != nil {
		return SimplePagedResultsControl{}, err
	}
	return SimplePagedResultsControl{
		Size:   int(size),
		Cookie: octetBytes(p.Children[1]),
	}, nil
}

// findPagedResultsControl looks up the Simple Paged Results control among a
// response's controls, returning ok=false if the server did not include one
// (some directory servers silently drop it once the final page is reached).
func findPagedResultsControl(controls []Control) (SimplePagedResultsControl, bool, error) {
	for _, c := range controls {
		if c.Type == OIDSimplePagedResults {
			pr, err := pagedResultsControlFromControl(c)
			if err != nil {
				return SimplePagedResultsControl{}, false, err
			}
			return pr, true, nil
		}
	}
	return SimplePagedResultsControl{}, false, nil
}
