package ldap

import (
	ber "github.com/go-asn1-ber/asn1-ber"
)

// SearchRequest is the user-facing RFC 4511 section 4.5.1 SearchRequest.
// Build one with NewSearchRequest or a SearchRequestBuilder (builder.go)
// rather than constructing it directly, so Filter always gets validated.
type SearchRequest struct {
	BaseDN       string
	Scope        Scope
	DerefAliases DerefAliases
	SizeLimit    int
	TimeLimit    int
	TypesOnly    bool
	Filter       Filter
	Attributes   []string
}

func (r *SearchRequest) appTag() int { return ApplicationSearchRequest }

func (r *SearchRequest) encode() *ber.Packet {
	p := newAppSequence(ApplicationSearchRequest, "SearchRequest")
	p.AppendChild(newOctetString(r.BaseDN, "baseObject"))
	p.AppendChild(newEnum(int64(r.Scope), "scope"))
	p.AppendChild(newEnum(int64(r.DerefAliases), "derefAliases"))
	p.AppendChild(newInt(int64(r.SizeLimit), "sizeLimit"))
	p.AppendChild(newInt(int64(r.TimeLimit), "timeLimit"))
	p.AppendChild(newBool(r.TypesOnly, "typesOnly"))
	filter := r.Filter
	if filter == nil {
		filter = Present{Attribute: "objectClass"}
	}
	p.AppendChild(filter.encode())
	attrs := newSequence("attributes")
	for _, a := range r.Attributes {
		attrs.AppendChild(newOctetString(a, "attribute"))
	}
	p.AppendChild(attrs)
	return p
}

func decodeSearchRequest(p *ber.Packet) (*SearchRequest, error) {
	if len(p.Children) != 8 {
		return nil, ProtocolError("SearchRequest should have 8 items")
	}
	scope, err := intValue(p.Children[1])
	if err != nil {
		return nil, ProtocolError("can't parse scope for search request")
	}
	deref, err := intValue(p.Children[2])
	if err != nil {
		return nil, ProtocolError("can't parse derefAliases for search request")
	}
	sizeLimit, err := intValue(p.Children[3])
	if err != nil {
		return nil, ProtocolError("can't parse sizeLimit for search request")
	}
	timeLimit, err := intValue(p.Children[4])
	if err != nil {
		return nil, ProtocolError("can't parse timeLimit for search request")
	}
	typesOnly, err := boolValue(p.Children[5])
	if err != nil {
		return nil, ProtocolError("can't parse typesOnly for search request")
	}
	filter, err := decodeFilter(p.Children[6])
	if err != nil {
		return nil, err
	}
	req := &SearchRequest{
		BaseDN:       octetString(p.Children[0]),
		Scope:        Scope(scope),
		DerefAliases: DerefAliases(deref),
		SizeLimit:    int(sizeLimit),
		TimeLimit:    int(timeLimit),
		TypesOnly:    typesOnly,
		Filter:       filter,
	}
	for _, a := range p.Children[7].Children {
		req.Attributes = append(req.Attributes, octetString(a))
	}
	return req, nil
}
