package ldap

import (
	"encoding/base64"
	"fmt"
	"io"
	"unicode/utf8"

	ber "github.com/go-asn1-ber/asn1-ber"
)

// Attribute is one PartialAttribute: a type name and its values, RFC 4511
// section 4.1.7.
type Attribute struct {
	Name   string
	Values [][]byte
}

// SearchEntry is one SearchResultEntry, RFC 4511 section 4.5.2.
type SearchEntry struct {
	DN         string
	Attributes []Attribute
}

// GetAttributeValues returns the raw byte values of the named attribute,
// or nil if the entry has none. Matching is case-insensitive ASCII, per
// LDAP attribute description comparison rules.
func (e *SearchEntry) GetAttributeValues(name string) [][]byte {
	for _, a := range e.Attributes {
		if equalFoldASCII(a.Name, name) {
			return a.Values
		}
	}
	return nil
}

// GetAttributeValue returns the first value of the named attribute as a
// string, or "" if absent.
func (e *SearchEntry) GetAttributeValue(name string) string {
	vals := e.GetAttributeValues(name)
	if len(vals) == 0 {
		return ""
	}
	return string(vals[0])
}

func equalFoldASCII(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

func isPrintable(v []byte) bool {
	for i := 0; i < len(v); {
		r, s := utf8.DecodeRune(v[i:])
		if r == utf8.RuneError || r < 32 {
			return false
		}
		i += s
	}
	return true
}

// WriteLDIF renders the entry in the LDIF line format (RFC 2849), base64
// encoding any value that is not safely printable.
func (e *SearchEntry) WriteLDIF(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "dn: %s\n", e.DN); err != nil {
		return err
	}
	for _, attr := range e.Attributes {
		for _, v := range attr.Values {
			if isPrintable(v) {
				if _, err := fmt.Fprintf(w, "%s: %s\n", attr.Name, string(v)); err != nil {
					return err
				}
			} else {
				if _, err := fmt.Fprintf(w, "%s:: %s\n", attr.Name, base64.StdEncoding.EncodeToString(v)); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// searchResultEntry is the wire PDU; entry.go's SearchEntry is the
// user-facing shape client.go streams out of a search.
type searchResultEntry struct {
	Entry SearchEntry
}

func (r *searchResultEntry) appTag() int { return ApplicationSearchResultEntry }

func (r *searchResultEntry) encode() *ber.Packet {
	p := newAppSequence(ApplicationSearchResultEntry, "SearchResultEntry")
	p.AppendChild(newOctetString(r.Entry.DN, "objectName"))
	attrs := newSequence("attributes")
	for _, a := range r.Entry.Attributes {
		ap := newSequence("PartialAttribute")
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

func decodeSearchResultEntry(p *ber.Packet) (*searchResultEntry, error) {
	if len(p.Children) != 2 {
		return nil, ProtocolError("SearchResultEntry should have 2 items")
	}
	entry := SearchEntry{DN: octetString(p.Children[0])}
	for _, ap := range p.Children[1].Children {
		if len(ap.Children) != 2 {
			return nil, ProtocolError("PartialAttribute should have 2 items")
		}
		attr := Attribute{Name: octetString(ap.Children[0])}
		for _, v := range ap.Children[1].Children {
			attr.Values = append(attr.Values, octetBytes(v))
		}
		entry.Attributes = append(entry.Attributes, attr)
	}
	return &searchResultEntry{Entry: entry}, nil
}

// searchResultReference is RFC 4511 section 4.5.3: a list of LDAP URLs the
// client may follow to continue the search elsewhere. Referral chasing is
// not implemented, and SearchStream.Next skips these without handing them
// to the caller.
type searchResultReference struct {
	URIs []string
}

func (r *searchResultReference) appTag() int { return ApplicationSearchResultReference }

func (r *searchResultReference) encode() *ber.Packet {
	p := ber.Encode(ber.ClassApplication, ber.TypeConstructed, ApplicationSearchResultReference, nil, "SearchResultReference")
	for _, u := range r.URIs {
		p.AppendChild(newOctetString(u, "uri"))
	}
	return p
}

func decodeSearchResultReference(p *ber.Packet) (*searchResultReference, error) {
	ref := &searchResultReference{}
	for _, c := range p.Children {
		ref.URIs = append(ref.URIs, octetString(c))
	}
	return ref, nil
}

// searchResultDone is RFC 4511 section 4.5.2: the terminal LDAPResult for a
// search. Response controls (such as the Simple Paged Results cookie) are
// decoded onto the enclosing LdapMessage; decodeSearchResultDone does not
// fill this struct's Controls field.
type searchResultDone struct {
	Result   LdapResult
	Controls []Control
}

func (r *searchResultDone) appTag() int { return ApplicationSearchResultDone }

func (r *searchResultDone) encode() *ber.Packet {
	p := newAppSequence(ApplicationSearchResultDone, "SearchResultDone")
	encodeLdapResult(p, r.Result)
	return p
}

func decodeSearchResultDone(p *ber.Packet) (*searchResultDone, error) {
	result, err := decodeLdapResult(p)
	if err != nil {
		return nil, err
	}
	return &searchResultDone{Result: result}, nil
}
