package ldap

import (
	ber "github.com/go-asn1-ber/asn1-ber"
)

// Change is one entry of a ModifyRequest's changes sequence, RFC 4511
// section 4.6.
type Change struct {
	Op        ModOp
	Attribute Attribute
}

// ModifyRequest is the RFC 4511 section 4.6 ModifyRequest: an ordered list
// of attribute changes applied atomically to a single entry.
type ModifyRequest struct {
	ObjectDN string
	Changes  []Change
}

func (r *ModifyRequest) appTag() int { return ApplicationModifyRequest }

func (r *ModifyRequest) encode() *ber.Packet {
	p := newAppSequence(ApplicationModifyRequest, "ModifyRequest")
	p.AppendChild(newOctetString(r.ObjectDN, "object"))
	changes := newSequence("changes")
	for _, c := range r.Changes {
		cp := newSequence("change")
		cp.AppendChild(newEnum(int64(c.Op), "operation"))
		attr := newSequence("modification")
		attr.AppendChild(newOctetString(c.Attribute.Name, "type"))
		vals := newSet("vals")
		for _, v := range c.Attribute.Values {
			vals.AppendChild(newOctetBytes(v, "value"))
		}
		attr.AppendChild(vals)
		cp.AppendChild(attr)
		changes.AppendChild(cp)
	}
	p.AppendChild(changes)
	return p
}

func decodeModifyRequest(p *ber.Packet) (*ModifyRequest, error) {
	if len(p.Children) != 2 {
		return nil, ProtocolError("ModifyRequest requires exactly 2 items")
	}
	req := &ModifyRequest{ObjectDN: octetString(p.Children[0])}
	for _, c := range p.Children[1].Children {
		if len(c.Children) != 2 || len(c.Children[1].Children) != 2 {
			return nil, ProtocolError("change operation requires 2 items")
		}
		op, err := intValue(c.Children[0])
		if err != nil {
			return nil, ProtocolError("invalid modification operation")
		}
		attr := Attribute{Name: octetString(c.Children[1].Children[0])}
		for _, v := range c.Children[1].Children[1].Children {
			attr.Values = append(attr.Values, octetBytes(v))
		}
		req.Changes = append(req.Changes, Change{Op: ModOp(op), Attribute: attr})
	}
	return req, nil
}

// modifyResponse is the RFC 4511 section 4.6 ModifyResponse.
type modifyResponse struct {
	Result LdapResult
}

func (r *modifyResponse) appTag() int { return ApplicationModifyResponse }

func (r *modifyResponse) encode() *ber.Packet {
	p := newAppSequence(ApplicationModifyResponse, "ModifyResponse")
	encodeLdapResult(p, r.Result)
	return p
}

func decodeModifyResponse(p *ber.Packet) (*modifyResponse, error) {
	result, err := decodeLdapResult(p)
	if err != nil {
		return nil, err
	}
	return &modifyResponse{Result: result}, nil
}
