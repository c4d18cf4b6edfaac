package ldap

import (
	ber "github.com/go-asn1-ber/asn1-ber"
)

// AddRequest is the RFC 4511 section 4.7 AddRequest.
type AddRequest struct {
	DN         string
	Attributes []Attribute
}

func (r *AddRequest) appTag() int { return ApplicationAddRequest }

func (r *AddRequest) encode() *ber.Packet {
	p := newAppSequence(ApplicationAddRequest, "AddRequest")
	p.AppendChild(newOctetString(r.DN, "entry"))
	attrs := newSequence("attributes")
	for _, a := range r.Attributes {
		ap := newSequence("attribute")
		ap.AppendChild(newOctetString(a.Name, "type"))
		vals := newSet("vals")
		for _, v := range a.Values {
			vals.AppendChild(newOctetBytes(v, "value"))
		}
		ap.AppendChild(vals)
		attrs.AppendChild(ap)
	}
	p.AppendChild(attrs)
	return p
}

func decodeAddRequest(p *ber.Packet) (*AddRequest, error) {
	if len(p.Children) != 2 {
		return nil, ProtocolError("AddRequest requires exactly 2 items")
	}
	req := &AddRequest{DN: octetString(p.Children[0])}
	for _, at := range p.Children[1].Children {
		if len(at.Children) != 2 {
			return nil, ProtocolError("invalid attribute in AddRequest")
		}
		attr := Attribute{Name: octetString(at.Children[0])}
		for _, v := range at.Children[1].Children {
			attr.Values = append(attr.Values, octetBytes(v))
		}
		req.Attributes = append(req.Attributes, attr)
	}
	return req, nil
}

// addResponse is the RFC 4511 section 4.7 AddResponse.
type addResponse struct {
	Result LdapResult
}

func (r *addResponse) appTag() int { return ApplicationAddResponse }

func (r *addResponse) encode() *ber.Packet {
	p := newAppSequence(ApplicationAddResponse, "AddResponse")
	encodeLdapResult(p, r.Result)
	return p
}

func decodeAddResponse(p *ber.Packet) (*addResponse, error) {
	result, err := decodeLdapResult(p)
	if err != nil {
		return nil, err
	}
	return &addResponse{Result: result}, nil
}
