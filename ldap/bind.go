package ldap

import (
	ber "github.com/go-asn1-ber/asn1-ber"
)

// AuthenticationChoice is the RFC 4511 section 4.2 AuthenticationChoice:
// either a cleartext Simple password or a SaslCredentials exchange.
// Exactly one of the two is meaningful, selected by Sasl != nil.
type AuthenticationChoice struct {
	Simple []byte
	Sasl   *SaslCredentials
}

// SaslCredentials carries a mechanism name and an optional challenge
// response token, RFC 4511 section 4.2.
type SaslCredentials struct {
	Mechanism   string
	Credentials []byte
	HasCreds    bool
}

func (a AuthenticationChoice) encode() *ber.Packet {
	if a.Sasl != nil {
		sasl := newCtxConstructed(3, "sasl")
		sasl.AppendChild(newOctetString(a.Sasl.Mechanism, "mechanism"))
		if a.Sasl.HasCreds {
			sasl.AppendChild(newOctetBytes(a.Sasl.Credentials, "credentials"))
		}
		return sasl
	}
	return newCtxPrimitive(0, a.Simple, "simple")
}

func decodeAuthentication(p *ber.Packet) (AuthenticationChoice, error) {
	switch p.Tag {
	case 0:
		return AuthenticationChoice{Simple: octetBytes(p)}, nil
	case 3:
		if len(p.Children) < 1 {
			return AuthenticationChoice{}, ProtocolError("sasl credentials missing mechanism")
		}
		creds := &SaslCredentials{Mechanism: octetString(p.Children[0])}
		if len(p.Children) > 1 {
			creds.Credentials = octetBytes(p.Children[1])
			creds.HasCreds = true
		}
		return AuthenticationChoice{Sasl: creds}, nil
	default:
		return AuthenticationChoice{}, ProtocolError("unsupported AuthenticationChoice tag")
	}
}

// bindRequest is the RFC 4511 section 4.2 BindRequest.
type bindRequest struct {
	DN   string
	Auth AuthenticationChoice
}

func (r *bindRequest) appTag() int { return ApplicationBindRequest }

func (r *bindRequest) encode() *ber.Packet {
	p := newAppSequence(ApplicationBindRequest, "BindRequest")
	p.AppendChild(newInt(protocolVersion, "version"))
	p.AppendChild(newOctetString(r.DN, "name"))
	p.AppendChild(r.Auth.encode())
	return p
}

func decodeBindRequest(p *ber.Packet) (*bindRequest, error) {
	if len(p.Children) != 3 {
		return nil, ProtocolError("BindRequest should have 3 values")
	}
	ver, err := intValue(p.Children[0])
	if err != nil || ver != protocolVersion {
		return nil, ProtocolError("unsupported or invalid bind version")
	}
	auth, err := decodeAuthentication(p.Children[2])
	if err != nil {
		return nil, err
	}
	return &bindRequest{
		DN:   octetString(p.Children[1]),
		Auth: auth,
	}, nil
}

// bindResponse is the RFC 4511 section 4.2.2 BindResponse. ServerSaslCreds
// carries the server's half of a multi-round SASL exchange; it is present
// exactly when the server sent one.
type bindResponse struct {
	Result            LdapResult
	ServerSaslCreds   []byte
	HasServerSaslCreds bool
}

func (r *bindResponse) appTag() int { return ApplicationBindResponse }

func (r *bindResponse) encode() *ber.Packet {
	p := newAppSequence(ApplicationBindResponse, "BindResponse")
	encodeLdapResult(p, r.Result)
	if r.HasServerSaslCreds {
		p.AppendChild(newCtxPrimitive(7, r.ServerSaslCreds, "serverSaslCreds"))
	}
	return p
}

func decodeBindResponse(p *ber.Packet) (*bindResponse, error) {
	if len(p.Children) < 3 {
		return nil, ProtocolError("BindResponse missing LDAPResult fields")
	}
	result, err := decodeLdapResult(p)
	if err != nil {
		return nil, err
	}
	resp := &bindResponse{Result: result}
	for _, c := range p.Children[3:] {
		if c.Tag == 7 {
			resp.ServerSaslCreds = octetBytes(c)
			resp.HasServerSaslCreds = true
		}
	}
	return resp, nil
}

// unbindRequest is the RFC 4511 section 4.3 UnbindRequest: an empty
// primitive application PDU, no response expected.
type unbindRequest struct{}

func (r *unbindRequest) appTag() int { return ApplicationUnbindRequest }

func (r *unbindRequest) encode() *ber.Packet {
	p := ber.Encode(ber.ClassApplication, ber.TypePrimitive, ApplicationUnbindRequest, nil, "UnbindRequest")
	return p
}

func decodeUnbindRequest(p *ber.Packet) (*unbindRequest, error) {
	return &unbindRequest{}, nil
}
