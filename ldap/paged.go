package ldap

import (
	"context"
	"io"
)

// PagedSearch drives a SearchRequest across multiple pages using the
// Simple Paged Results control (RFC 2696). Each call to NextPage issues
// one search carrying the cookie from the previous page's
// SearchResultDone; an empty cookie on a response means the server has no
// further pages.
type PagedSearch struct {
	client   *Client
	req      SearchRequest
	pageSize int
	cookie   []byte
	started  bool
	finished bool
}

// SearchPaged prepares a paged search over req, pageSize entries per page.
// No request is sent until the first NextPage call.
func (c *Client) SearchPaged(req *SearchRequest, pageSize int) *PagedSearch {
	return &PagedSearch{client: c, req: *req, pageSize: pageSize}
}

// NextPage fetches the next page of entries. The call that receives the
// server's empty cookie still returns that last page's entries with a nil
// error (for a search whose whole result set fits in one page, that is the
// first call); every call after it returns io.EOF.
func (p *PagedSearch) NextPage(ctx context.Context) ([]SearchEntry, error) {
	if p.finished {
		return nil, io.EOF
	}

	control, err := SimplePagedResultsControl{Size: p.pageSize, Cookie: p.cookie}.toControl()
	if err != nil {
		return nil, err
	}

	stream, err := p.client.Search(ctx, &p.req, control)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	var entries []SearchEntry
	for {
		e, err := stream.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return entries, err
		}
		entries = append(entries, *e)
	}

	p.started = true
	pr, ok, err := findPagedResultsControl(stream.Controls)
	if err != nil {
		return entries, err
	}
	if !ok {
		// A server that accepts a paged search must echo the control on
		// every SearchResultDone, even the last one (with an empty
		// cookie). A Success response with no control at all means the
		// server didn't honor the paged request, which this driver can't
		// recover from silently.
		return entries, InvalidResponseError("server returned no paged results control for a paged search")
	}
	if len(pr.Cookie) == 0 {
		p.finished = true
		return entries, nil
	}
	p.cookie = pr.Cookie
	return entries, nil
}

// Done reports whether the server has signalled there are no more pages.
// False before the first NextPage call.
func (p *PagedSearch) Done() bool {
	return p.started && p.finished
}
