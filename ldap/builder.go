package ldap

import "context"

// SearchRequestBuilder is a fluent constructor for SearchRequest, mirroring
// the shape of request.rs's builder: fill in only the fields that differ
// from the RFC 4511 defaults (whole-subtree scope, never deref aliases, no
// limits, all user attributes) and call Build.
type SearchRequestBuilder struct {
	req       SearchRequest
	filterStr string
}

// NewSearchRequest starts a builder rooted at baseDN.
func NewSearchRequest(baseDN string) *SearchRequestBuilder {
	return &SearchRequestBuilder{req: SearchRequest{
		BaseDN:       baseDN,
		Scope:        ScopeWholeSubtree,
		DerefAliases: NeverDerefAliases,
	}}
}

func (b *SearchRequestBuilder) Scope(scope Scope) *SearchRequestBuilder {
	b.req.Scope = scope
	return b
}

func (b *SearchRequestBuilder) DerefAliases(d DerefAliases) *SearchRequestBuilder {
	b.req.DerefAliases = d
	return b
}

func (b *SearchRequestBuilder) SizeLimit(n int) *SearchRequestBuilder {
	b.req.SizeLimit = n
	return b
}

func (b *SearchRequestBuilder) TimeLimit(seconds int) *SearchRequestBuilder {
	b.req.TimeLimit = seconds
	return b
}

func (b *SearchRequestBuilder) TypesOnly(v bool) *SearchRequestBuilder {
	b.req.TypesOnly = v
	return b
}

// Filter sets the filter from an already-parsed Filter tree.
func (b *SearchRequestBuilder) Filter(f Filter) *SearchRequestBuilder {
	b.req.Filter = f
	b.filterStr = ""
	return b
}

// FilterString sets the filter from an RFC 2254 textual filter, validated
// at Build time so construction errors surface in one place.
func (b *SearchRequestBuilder) FilterString(filter string) *SearchRequestBuilder {
	b.filterStr = filter
	b.req.Filter = nil
	return b
}

func (b *SearchRequestBuilder) Attributes(attrs ...string) *SearchRequestBuilder {
	b.req.Attributes = attrs
	return b
}

func (b *SearchRequestBuilder) Attribute(attr string) *SearchRequestBuilder {
	b.req.Attributes = append(b.req.Attributes, attr)
	return b
}

// Build validates the accumulated options and returns the SearchRequest.
func (b *SearchRequestBuilder) Build() (*SearchRequest, error) {
	if b.filterStr != "" {
		f, err := ParseFilter(b.filterStr)
		if err != nil {
			return nil, err
		}
		b.req.Filter = f
	}
	req := b.req
	return &req, nil
}

// RootDSE fetches the server's root DSE: an anonymous-scope, base-object
// search of the zero-length DN with a present-objectClass filter, the
// conventional way to discover a directory's capabilities before binding.
func (c *Client) RootDSE(ctx context.Context, attributes ...string) (*SearchEntry, error) {
	req := &SearchRequest{
		BaseDN:       "",
		Scope:        ScopeBaseObject,
		DerefAliases: NeverDerefAliases,
		Filter:       Present{Attribute: "objectClass"},
		Attributes:   attributes,
	}
	entries, err := c.SearchAll(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, InvalidResponseError("server returned no entries for root DSE search")
	}
	return &entries[0], nil
}
