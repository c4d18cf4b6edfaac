package ldap

import (
	ber "github.com/go-asn1-ber/asn1-ber"
)

// DeleteRequest is the RFC 4511 section 4.8 DelRequest: a primitive
// application PDU carrying only the target DN.
type DeleteRequest struct {
	DN string
}

func (r *DeleteRequest) appTag() int { return ApplicationDelRequest }

func (r *DeleteRequest) encode() *ber.Packet {
	p := ber.Encode(ber.ClassApplication, ber.TypePrimitive, ApplicationDelRequest, nil, "DelRequest")
	p.Data.Write([]byte(r.DN))
	p.Value = r.DN
	return p
}

func decodeDelRequest(p *ber.Packet) (*DeleteRequest, error) {
	return &DeleteRequest{DN: octetString(p)}, nil
}

// delResponse is the RFC 4511 section 4.8 DelResponse.
type delResponse struct {
	Result LdapResult
}

func (r *delResponse) appTag() int { return ApplicationDelResponse }

func (r *delResponse) encode() *ber.Packet {
	p := newAppSequence(ApplicationDelResponse, "DelResponse")
	encodeLdapResult(p, r.Result)
	return p
}

func decodeDelResponse(p *ber.Packet) (*delResponse, error) {
	result, err := decodeLdapResult(p)
	if err != nil {
		return nil, err
	}
	return &delResponse{Result: result}, nil
}
