package ldap

import (
	"context"

	ber "github.com/go-asn1-ber/asn1-ber"
)

// ModifyDNRequest is the RFC 4511 section 4.9 ModifyDNRequest: rename an
// entry's RDN and, optionally, move it under a new superior.
type ModifyDNRequest struct {
	DN           string
	NewRDN       string
	DeleteOldRDN bool
	NewSuperior  string
	HasNewSuperior bool
}

func (r *ModifyDNRequest) appTag() int { return ApplicationModifyDNRequest }

func (r *ModifyDNRequest) encode() *ber.Packet {
	p := newAppSequence(ApplicationModifyDNRequest, "ModifyDNRequest")
	p.AppendChild(newOctetString(r.DN, "entry"))
	p.AppendChild(newOctetString(r.NewRDN, "newrdn"))
	p.AppendChild(newBool(r.DeleteOldRDN, "deleteoldrdn"))
	if r.HasNewSuperior {
		p.AppendChild(newCtxPrimitive(0, []byte(r.NewSuperior), "newSuperior"))
	}
	return p
}

func decodeModifyDNRequest(p *ber.Packet) (*ModifyDNRequest, error) {
	if len(p.Children) < 3 || len(p.Children) > 4 {
		return nil, ProtocolError("ModifyDNRequest should have 3 or 4 items")
	}
	deleteOld, err := boolValue(p.Children[2])
	if err != nil {
		return nil, ProtocolError("invalid deleteoldrdn")
	}
	req := &ModifyDNRequest{
		DN:           octetString(p.Children[0]),
		NewRDN:       octetString(p.Children[1]),
		DeleteOldRDN: deleteOld,
	}
	if len(p.Children) == 4 {
		req.NewSuperior = octetString(p.Children[3])
		req.HasNewSuperior = true
	}
	return req, nil
}

// modifyDNResponse is the RFC 4511 section 4.9 ModifyDNResponse.
type modifyDNResponse struct {
	Result LdapResult
}

func (r *modifyDNResponse) appTag() int { return ApplicationModifyDNResponse }

func (r *modifyDNResponse) encode() *ber.Packet {
	p := newAppSequence(ApplicationModifyDNResponse, "ModifyDNResponse")
	encodeLdapResult(p, r.Result)
	return p
}

func decodeModifyDNResponse(p *ber.Packet) (*modifyDNResponse, error) {
	result, err := decodeLdapResult(p)
	if err != nil {
		return nil, err
	}
	return &modifyDNResponse{Result: result}, nil
}

// ModifyDN renames or moves an entry. RFC 4511 section 4.9.
func (c *Client) ModifyDN(ctx context.Context, req *ModifyDNRequest) error {
	msg, err := c.roundTrip(ctx, req)
	if err != nil {
		return err
	}
	resp, ok := msg.Op.(*modifyDNResponse)
	if !ok {
		return InvalidResponseError("expected ModifyDNResponse")
	}
	return checkResult(resp.Result)
}
