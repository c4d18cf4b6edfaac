package ldap

import (
	ber "github.com/go-asn1-ber/asn1-ber"
)

// extendedRequest is the RFC 4511 section 4.12 ExtendedRequest: an
// OID-identified operation with an opaque request value. STARTTLS, WhoAmI,
// and the RFC 3062 Password Modify operation all ride on this envelope.
type extendedRequest struct {
	RequestName  string
	RequestValue []byte
	HasValue     bool
}

func (r *extendedRequest) appTag() int { return ApplicationExtendedRequest }

func (r *extendedRequest) encode() *ber.Packet {
	p := newAppSequence(ApplicationExtendedRequest, "ExtendedRequest")
	p.AppendChild(newCtxPrimitive(0, []byte(r.RequestName), "requestName"))
	if r.HasValue {
		p.AppendChild(newCtxPrimitive(1, r.RequestValue, "requestValue"))
	}
	return p
}

func decodeExtendedRequest(p *ber.Packet) (*extendedRequest, error) {
	req := &extendedRequest{}
	for _, c := range p.Children {
		switch c.Tag {
		case 0:
			req.RequestName = octetString(c)
		case 1:
			req.RequestValue = octetBytes(c)
			req.HasValue = true
		default:
			return nil, ProtocolError("unsupported ExtendedRequest tag")
		}
	}
	return req, nil
}

// extendedResponse is the RFC 4511 section 4.12 ExtendedResponse.
type extendedResponse struct {
	Result        LdapResult
	ResponseName  string
	HasName       bool
	ResponseValue []byte
	HasValue      bool
}

func (r *extendedResponse) appTag() int { return ApplicationExtendedResponse }

func (r *extendedResponse) encode() *ber.Packet {
	p := newAppSequence(ApplicationExtendedResponse, "ExtendedResponse")
	encodeLdapResult(p, r.Result)
	if r.HasName {
		p.AppendChild(newCtxPrimitive(10, []byte(r.ResponseName), "responseName"))
	}
	if r.HasValue {
		p.AppendChild(newCtxPrimitive(11, r.ResponseValue, "responseValue"))
	}
	return p
}

func decodeExtendedResponse(p *ber.Packet) (*extendedResponse, error) {
	if len(p.Children) < 3 {
		return nil, ProtocolError("ExtendedResponse missing LDAPResult fields")
	}
	result, err := decodeLdapResult(p)
	if err != nil {
		return nil, err
	}
	resp := &extendedResponse{Result: result}
	for _, c := range p.Children[3:] {
		switch c.Tag {
		case 10:
			resp.ResponseName = octetString(c)
			resp.HasName = true
		case 11:
			resp.ResponseValue = octetBytes(c)
			resp.HasValue = true
		default:
			return nil, ProtocolError("unsupported ExtendedResponse tag")
		}
	}
	return resp, nil
}

// PasswordModifyRequest is the RFC 3062 Password Modify extended operation
// payload, carried as the requestValue of an ExtendedRequest with name
// OIDPasswordModify.
type PasswordModifyRequest struct {
	UserIdentity string
	OldPassword  []byte
	NewPassword  []byte
}

func (r PasswordModifyRequest) encodeValue() []byte {
	p := newSequence("PasswdModifyRequestValue")
	if r.UserIdentity != "" {
		p.AppendChild(newCtxPrimitive(0, []byte(r.UserIdentity), "userIdentity"))
	}
	if r.OldPassword != nil {
		p.AppendChild(newCtxPrimitive(1, r.OldPassword, "oldPasswd"))
	}
	if r.NewPassword != nil {
		p.AppendChild(newCtxPrimitive(2, r.NewPassword, "newPasswd"))
	}
	return p.Bytes()
}

// PasswordModifyResponse is the RFC 3062 response payload; GenPassword is
// present only when the server generated a new password on the caller's
// behalf.
type PasswordModifyResponse struct {
	GenPassword []byte
	HasGenPassword bool
}

func decodePasswordModifyResponse(value []byte) (*PasswordModifyResponse, error) {
	if len(value) == 0 {
		return &PasswordModifyResponse{}, nil
	}
	p, err := decodePacket(value)
	if err != nil {
		return nil, err
	}
	resp := &PasswordModifyResponse{}
	for _, c := range p.Children {
		if c.Tag == 0 {
			resp.GenPassword = octetBytes(c)
			resp.HasGenPassword = true
		}
	}
	return resp, nil
}
