package ldap

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	ber "github.com/go-asn1-ber/asn1-ber"
)

const (
	filterTagAND             = 0
	filterTagOR              = 1
	filterTagNOT             = 2
	filterTagEqualityMatch   = 3
	filterTagSubstrings      = 4
	filterTagGreaterOrEqual  = 5
	filterTagLessOrEqual     = 6
	filterTagPresent         = 7
	filterTagApproxMatch     = 8
	filterTagExtensibleMatch = 9
)

const (
	extensibleMatchRuleTag       = 1
	extensibleMatchTypeTag       = 2
	extensibleMatchValueTag      = 3
	extensibleMatchDNAttrsTag    = 4
)

// Filter is a parsed RFC 2254 search filter node.
type Filter interface {
	String() string
	encode() *ber.Packet
}

// AND is a filter matching every one of its children.
type AND struct{ Filters []Filter }

func (a AND) String() string {
	s := make([]string, len(a.Filters))
	for i, f := range a.Filters {
		s[i] = f.String()
	}
	return fmt.Sprintf("(&%s)", strings.Join(s, ""))
}

func (a AND) encode() *ber.Packet {
	p := newCtxConstructed(filterTagAND, "and")
	for _, f := range a.Filters {
		p.AppendChild(f.encode())
	}
	return p
}

// OR is a filter matching any one of its children.
type OR struct{ Filters []Filter }

func (o OR) String() string {
	s := make([]string, len(o.Filters))
	for i, f := range o.Filters {
		s[i] = f.String()
	}
	return fmt.Sprintf("(|%s)", strings.Join(s, ""))
}

func (o OR) encode() *ber.Packet {
	p := newCtxConstructed(filterTagOR, "or")
	for _, f := range o.Filters {
		p.AppendChild(f.encode())
	}
	return p
}

// NOT negates its single child.
type NOT struct{ Filter Filter }

func (n NOT) String() string { return fmt.Sprintf("(!%s)", n.Filter.String()) }

func (n NOT) encode() *ber.Packet {
	p := newCtxConstructed(filterTagNOT, "not")
	p.AppendChild(n.Filter.encode())
	return p
}

// AttributeValueAssertion is the common shape of equality/ordering/approx
// matches: an attribute description and an assertion value.
type AttributeValueAssertion struct {
	Attribute string
	Value     []byte
}

func (a AttributeValueAssertion) encodeTag(tag int) *ber.Packet {
	p := newCtxConstructed(tag, "ava")
	p.AppendChild(newOctetString(a.Attribute, "attributeDesc"))
	p.AppendChild(newOctetBytes(a.Value, "assertionValue"))
	return p
}

// EqualityMatch is an attribute=value filter item.
type EqualityMatch AttributeValueAssertion

func (f EqualityMatch) encode() *ber.Packet { return AttributeValueAssertion(f).encodeTag(filterTagEqualityMatch) }
func (f EqualityMatch) String() string {
	return fmt.Sprintf("(%s=%s)", filterEscape(f.Attribute), filterEscape(string(f.Value)))
}

// GreaterOrEqual is an attribute>=value filter item.
type GreaterOrEqual AttributeValueAssertion

func (f GreaterOrEqual) encode() *ber.Packet {
	return AttributeValueAssertion(f).encodeTag(filterTagGreaterOrEqual)
}
func (f GreaterOrEqual) String() string {
	return fmt.Sprintf("(%s>=%s)", filterEscape(f.Attribute), filterEscape(string(f.Value)))
}

// LessOrEqual is an attribute<=value filter item.
type LessOrEqual AttributeValueAssertion

func (f LessOrEqual) encode() *ber.Packet { return AttributeValueAssertion(f).encodeTag(filterTagLessOrEqual) }
func (f LessOrEqual) String() string {
	return fmt.Sprintf("(%s<=%s)", filterEscape(f.Attribute), filterEscape(string(f.Value)))
}

// ApproxMatch is an attribute~=value filter item.
type ApproxMatch AttributeValueAssertion

func (f ApproxMatch) encode() *ber.Packet { return AttributeValueAssertion(f).encodeTag(filterTagApproxMatch) }
func (f ApproxMatch) String() string {
	return fmt.Sprintf("(%s~=%s)", filterEscape(f.Attribute), filterEscape(string(f.Value)))
}

// Present is an attribute=* filter item.
type Present struct{ Attribute string }

func (f Present) encode() *ber.Packet {
	return newCtxPrimitive(filterTagPresent, []byte(f.Attribute), "present")
}
func (f Present) String() string { return fmt.Sprintf("(%s=*)", filterEscape(f.Attribute)) }

// Substrings is an attribute=initial*any*final filter item; any of the
// three parts may be absent.
type Substrings struct {
	Attribute string
	Initial   string
	Final     string
	Any       []string
}

func (f Substrings) encode() *ber.Packet {
	p := newCtxConstructed(filterTagSubstrings, "substrings")
	p.AppendChild(newOctetString(f.Attribute, "type"))
	parts := newSequence("substrings")
	if f.Initial != "" {
		parts.AppendChild(newCtxPrimitive(0, []byte(f.Initial), "initial"))
	}
	for _, a := range f.Any {
		if a != "" {
			parts.AppendChild(newCtxPrimitive(1, []byte(a), "any"))
		}
	}
	if f.Final != "" {
		parts.AppendChild(newCtxPrimitive(2, []byte(f.Final), "final"))
	}
	p.AppendChild(parts)
	return p
}

func (f Substrings) String() string {
	n := len(f.Any) + 2
	parts := make([]string, n)
	parts[0] = filterEscape(f.Initial)
	parts[len(parts)-1] = filterEscape(f.Final)
	for i, a := range f.Any {
		parts[i+1] = filterEscape(a)
	}
	return fmt.Sprintf("(%s=%s)", filterEscape(f.Attribute), strings.Join(parts, "*"))
}

// ExtensibleMatch is RFC 2254's extensible match item:
// [type][:dn][:matchingRule]:=value.
type ExtensibleMatch struct {
	MatchingRule string
	Attribute    string
	Value        string
	DNAttributes bool
}

func (f ExtensibleMatch) encode() *ber.Packet {
	p := newCtxConstructed(filterTagExtensibleMatch, "extensibleMatch")
	if f.MatchingRule != "" {
		p.AppendChild(newCtxPrimitive(extensibleMatchRuleTag, []byte(f.MatchingRule), "matchingRule"))
	}
	if f.Attribute != "" {
		p.AppendChild(newCtxPrimitive(extensibleMatchTypeTag, []byte(f.Attribute), "type"))
	}
	p.AppendChild(newCtxPrimitive(extensibleMatchValueTag, []byte(f.Value), "matchValue"))
	if f.DNAttributes {
		p.AppendChild(newCtxBool(extensibleMatchDNAttrsTag, true, "dnAttributes"))
	}
	return p
}

func (f ExtensibleMatch) String() string {
	var b strings.Builder
	b.WriteByte('(')
	if f.Attribute != "" {
		b.WriteString(filterEscape(f.Attribute))
	}
	if f.DNAttributes {
		b.WriteString(":dn")
	}
	if f.MatchingRule != "" {
		b.WriteByte(':')
		b.WriteString(f.MatchingRule)
	}
	b.WriteString(":=")
	b.WriteString(filterEscape(f.Value))
	b.WriteByte(')')
	return b.String()
}

func decodeFilter(p *ber.Packet) (Filter, error) {
	switch p.Tag {
	case filterTagAND:
		var f AND
		for _, c := range p.Children {
			child, err := decodeFilter(c)
			if err != nil {
				return nil, err
			}
			f.Filters = append(f.Filters, child)
		}
		return f, nil
	case filterTagOR:
		var f OR
		for _, c := range p.Children {
			child, err := decodeFilter(c)
			if err != nil {
				return nil, err
			}
			f.Filters = append(f.Filters, child)
		}
		return f, nil
	case filterTagNOT:
		if len(p.Children) != 1 {
			return nil, ProtocolError("not filter should have exactly one child")
		}
		child, err := decodeFilter(p.Children[0])
		if err != nil {
			return nil, err
		}
		return NOT{Filter: child}, nil
	case filterTagEqualityMatch:
		return decodeAVA(p, func(a AttributeValueAssertion) Filter { return EqualityMatch(a) })
	case filterTagGreaterOrEqual:
		return decodeAVA(p, func(a AttributeValueAssertion) Filter { return GreaterOrEqual(a) })
	case filterTagLessOrEqual:
		return decodeAVA(p, func(a AttributeValueAssertion) Filter { return LessOrEqual(a) })
	case filterTagApproxMatch:
		return decodeAVA(p, func(a AttributeValueAssertion) Filter { return ApproxMatch(a) })
	case filterTagPresent:
		return Present{Attribute: octetString(p)}, nil
	case filterTagSubstrings:
		return decodeSubstrings(p)
	case filterTagExtensibleMatch:
		return decodeExtensibleMatch(p)
	default:
		return nil, ProtocolError(fmt.Sprintf("unknown filter tag %d", p.Tag))
	}
}

func decodeAVA(p *ber.Packet, build func(AttributeValueAssertion) Filter) (Filter, error) {
	if len(p.Children) != 2 {
		return nil, ProtocolError("attribute value assertion should have 2 items")
	}
	return build(AttributeValueAssertion{
		Attribute: octetString(p.Children[0]),
		Value:     octetBytes(p.Children[1]),
	}), nil
}

func decodeSubstrings(p *ber.Packet) (Filter, error) {
	if len(p.Children) != 2 {
		return nil, ProtocolError("substrings filter should have 2 items")
	}
	f := Substrings{Attribute: octetString(p.Children[0])}
	parts := p.Children[1].Children
	for i, c := range parts {
		switch c.Tag {
		case 0:
			if i != 0 {
				return nil, ProtocolError("substrings filter has initial as non-first child")
			}
			f.Initial = octetString(c)
		case 1:
			f.Any = append(f.Any, octetString(c))
		case 2:
			if i != len(parts)-1 {
				return nil, ProtocolError("substrings filter has final as non-last child")
			}
			f.Final = octetString(c)
		default:
			return nil, ProtocolError(fmt.Sprintf("unknown substrings filter tag %d", c.Tag))
		}
	}
	return f, nil
}

func decodeExtensibleMatch(p *ber.Packet) (Filter, error) {
	var f ExtensibleMatch
	for _, c := range p.Children {
		switch c.Tag {
		case extensibleMatchRuleTag:
			f.MatchingRule = octetString(c)
		case extensibleMatchTypeTag:
			f.Attribute = octetString(c)
		case extensibleMatchValueTag:
			f.Value = octetString(c)
		case extensibleMatchDNAttrsTag:
			v, err := boolValue(c)
			if err != nil {
				return nil, err
			}
			f.DNAttributes = v
		default:
			return nil, ProtocolError(fmt.Sprintf("unknown extensibleMatch tag %d", c.Tag))
		}
	}
	return f, nil
}

// --- RFC 2254 textual filter parsing ---

type tokenizer struct {
	s    string
	pos  int
	cpos int
}

func (t *tokenizer) next() rune {
	if t.pos == len(t.s) {
		return 0
	}
	r, size := utf8.DecodeRuneInString(t.s[t.pos:])
	t.pos += size
	t.cpos++
	return r
}

var filterEscapes = map[rune]string{
	'(':  `\28`,
	')':  `\29`,
	'&':  `\26`,
	'|':  `\7c`,
	'=':  `\3d`,
	'>':  `\3e`,
	'<':  `\3c`,
	'~':  `\7e`,
	'*':  `\2a`,
	'/':  `\2f`,
	'\\': `\5c`,
}

func filterEscape(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if e, ok := filterEscapes[r]; ok {
			b.WriteString(e)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// readEscape consumes the two hex digits following a backslash already
// read by the caller. Unlike a permissive unescape that leaves malformed
// sequences untouched, a non-hex digit or a truncated escape at end of
// filter is a syntax error: the wire value a caller builds from "\GG"
// should never silently become the three literal characters.
func readEscape(tok *tokenizer) (rune, error) {
	r1 := tok.next()
	r2 := tok.next()
	if r1 == 0 || r2 == 0 {
		return 0, &InvalidFilterError{Pos: tok.cpos, Msg: "truncated escape sequence at end of filter"}
	}
	h := string(r1) + string(r2)
	n, err := strconv.ParseInt(h, 16, 16)
	if err != nil {
		return 0, &InvalidFilterError{Pos: tok.cpos - 2, Msg: "invalid hex escape \\" + h}
	}
	return rune(n), nil
}

// ParseFilter parses an RFC 2254 textual filter such as
// "(&(objectClass=person)(cn=Bob*))".
func ParseFilter(filter string) (Filter, error) {
	if len(filter) == 0 {
		return nil, &InvalidFilterError{Pos: 0, Msg: "empty filter"}
	}
	tok := &tokenizer{s: filter}
	f, err := parseFilterExpr(tok, false)
	if err != nil {
		return nil, err
	}
	if tok.pos != len(tok.s) {
		return nil, &InvalidFilterError{Pos: tok.cpos, Msg: "unexpected trailing data"}
	}
	return f, nil
}

func parseFilterExpr(tok *tokenizer, checkClose bool) (Filter, error) {
	r := tok.next()
	if checkClose && r == ')' {
		tok.pos--
		tok.cpos--
		return nil, nil
	} else if r != '(' {
		return nil, &InvalidFilterError{Pos: tok.cpos - 1, Msg: "expected ("}
	}

	var filter Filter
	r = tok.next()
	switch r {
	case 0:
		return nil, &InvalidFilterError{Pos: tok.cpos, Msg: "unexpected end of filter"}
	case '&', '|':
		var filters []Filter
		for {
			f, err := parseFilterExpr(tok, true)
			if err != nil {
				return nil, err
			}
			if f == nil {
				break
			}
			filters = append(filters, f)
		}
		if r == '&' {
			filter = AND{Filters: filters}
		} else {
			filter = OR{Filters: filters}
		}
	case '!':
		f, err := parseFilterExpr(tok, false)
		if err != nil {
			return nil, err
		}
		filter = NOT{Filter: f}
	default:
		f, err := parseSimpleFilter(tok, r)
		if err != nil {
			return nil, err
		}
		filter = f
	}
	if r := tok.next(); r != ')' {
		return nil, &InvalidFilterError{Pos: tok.cpos - 1, Msg: "expected )"}
	}
	return filter, nil
}

// parseSimpleFilter handles everything after the initial '(' once it's
// known not to be &, |, or !: attribute=value, attribute:dn:rule:=value,
// and the ordering/approx/substring/present variants.
func parseSimpleFilter(tok *tokenizer, first rune) (Filter, error) {
	var name []rune
	var op string
	var dnAttrs bool
	var matchingRule string
	r := first
	for op == "" {
		switch r {
		case 0:
			return nil, &InvalidFilterError{Pos: tok.cpos, Msg: "unexpected end of filter"}
		case '=':
			op = "="
		case '>', '<', '~':
			op = string(r) + "="
			if r2 := tok.next(); r2 != '=' {
				return nil, &InvalidFilterError{Pos: tok.cpos - 1, Msg: "expected = after " + string(r)}
			}
		case ':':
			// Extensible match: [attr][:dn][:rule]:=value
			op = ":="
			rest, err := readExtensibleOptions(tok)
			if err != nil {
				return nil, err
			}
			dnAttrs = rest.dn
			matchingRule = rest.rule
		case '\\':
			e, err := readEscape(tok)
			if err != nil {
				return nil, err
			}
			name = append(name, e)
		default:
			name = append(name, r)
		}
		if op == "" {
			r = tok.next()
		}
	}

	// value is accumulated as raw octets, not runes: an escaped \HH is the
	// single byte the caller asked for, and re-encoding it through a rune
	// would turn any escaped byte >= 0x80 into multi-byte UTF-8, corrupting
	// binary attribute values (see DESIGN.md).
	var value []byte
	hasStar := false
valueLoop:
	for {
		r := tok.next()
		switch r {
		case 0:
			return nil, &InvalidFilterError{Pos: tok.cpos, Msg: "unexpected end of filter"}
		case ')':
			tok.pos--
			tok.cpos--
			break valueLoop
		case '*':
			if op == "=" {
				hasStar = true
			}
			value = append(value, '*')
		case '\\':
			e, err := readEscape(tok)
			if err != nil {
				return nil, err
			}
			value = append(value, byte(e))
		default:
			value = utf8.AppendRune(value, r)
		}
	}

	nameS := string(name)

	if op == ":=" {
		return ExtensibleMatch{
			MatchingRule: matchingRule,
			Attribute:    nameS,
			Value:        string(value),
			DNAttributes: dnAttrs,
		}, nil
	}
	if string(value) == "*" {
		if op != "=" {
			return nil, &InvalidFilterError{Pos: tok.cpos, Msg: "* value not allowed with this operator"}
		}
		return Present{Attribute: nameS}, nil
	}
	if hasStar {
		parts := bytes.Split(value, []byte("*"))
		var any []string
		for _, p := range parts[1 : len(parts)-1] {
			any = append(any, string(p))
		}
		return Substrings{
			Attribute: nameS,
			Initial:   string(parts[0]),
			Final:     string(parts[len(parts)-1]),
			Any:       any,
		}, nil
	}
	switch op {
	case "=":
		return EqualityMatch{Attribute: nameS, Value: value}, nil
	case ">=":
		return GreaterOrEqual{Attribute: nameS, Value: value}, nil
	case "<=":
		return LessOrEqual{Attribute: nameS, Value: value}, nil
	case "~=":
		return ApproxMatch{Attribute: nameS, Value: value}, nil
	default:
		return nil, &InvalidFilterError{Pos: tok.cpos, Msg: "unsupported filter operator"}
	}
}

type extensibleOptions struct {
	dn   bool
	rule string
}

// readExtensibleOptions is called right after the first ':' following an
// attribute description (which may be empty, as in "(:dn:2.4.6.8.10:=Dino)").
// It consumes [dn][:rule]:= and returns once the trailing "=" of ":=" has
// been read, leaving the tokenizer positioned at the start of the value.
func readExtensibleOptions(tok *tokenizer) (extensibleOptions, error) {
	var opts extensibleOptions
	var tokenBuf []rune
	flush := func() error {
		s := string(tokenBuf)
		tokenBuf = nil
		switch {
		case s == "dn":
			opts.dn = true
		case s == "":
			// empty option between colons; RFC 2254 extensibleMatch with
			// no matching rule and no dn.
		default:
			opts.rule = s
		}
		return nil
	}
	for {
		r := tok.next()
		switch r {
		case 0:
			return opts, &InvalidFilterError{Pos: tok.cpos, Msg: "unexpected end of filter in extensible match"}
		case ':':
			if err := flush(); err != nil {
				return opts, err
			}
		case '=':
			if err := flush(); err != nil {
				return opts, err
			}
			return opts, nil
		default:
			tokenBuf = append(tokenBuf, r)
		}
	}
}
