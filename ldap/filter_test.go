package ldap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilterRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want Filter
	}{
		{
			name: "equality",
			in:   "(cn=Babs Jensen)",
			want: EqualityMatch{Attribute: "cn", Value: []byte("Babs Jensen")},
		},
		{
			name: "not",
			in:   "(!(cn=Tim Howes))",
			want: NOT{Filter: EqualityMatch{Attribute: "cn", Value: []byte("Tim Howes")}},
		},
		{
			name: "and-or",
			in:   "(&(objectClass=Person)(|(sn=Jensen)(cn=Babs J*)))",
			want: AND{Filters: []Filter{
				EqualityMatch{Attribute: "objectClass", Value: []byte("Person")},
				OR{Filters: []Filter{
					EqualityMatch{Attribute: "sn", Value: []byte("Jensen")},
					Substrings{Attribute: "cn", Initial: "Babs J"},
				}},
			}},
		},
		{
			name: "present",
			in:   "(o=*)",
			want: Present{Attribute: "o"},
		},
		{
			name: "escaped-value",
			in:   `(o=Parens R Us \28for all your parenthetical needs\29)`,
			want: EqualityMatch{Attribute: "o", Value: []byte("Parens R Us (for all your parenthetical needs)")},
		},
		{
			name: "substrings-any-only",
			in:   `(cn=*fred*)`,
			want: Substrings{Attribute: "cn", Any: []string{"fred"}},
		},
		{
			name: "extensible-attr-rule",
			in:   "(cn:1.2.3.4.5:=Fred Flintstone)",
			want: ExtensibleMatch{Attribute: "cn", MatchingRule: "1.2.3.4.5", Value: "Fred Flintstone"},
		},
		{
			name: "extensible-attr-dn-rule",
			in:   "(sn:dn:2.4.6.8.10:=Barney Rubble)",
			want: ExtensibleMatch{Attribute: "sn", DNAttributes: true, MatchingRule: "2.4.6.8.10", Value: "Barney Rubble"},
		},
		{
			name: "extensible-attr-dn-only",
			in:   "(o:dn:=Ace Industry)",
			want: ExtensibleMatch{Attribute: "o", DNAttributes: true, Value: "Ace Industry"},
		},
		{
			name: "extensible-no-attr",
			in:   "(:dn:2.4.6.8.10:=Dino)",
			want: ExtensibleMatch{DNAttributes: true, MatchingRule: "2.4.6.8.10", Value: "Dino"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseFilter(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseFilterBadEscapes(t *testing.T) {
	bad := []string{
		`(cn=\\CC)`,
		`(cn=\CC\)`,
		`(cn=\aav\bb\0n)`,
		`(cn=a\00test\bx\dd\\12)`,
	}
	for _, in := range bad {
		t.Run(in, func(t *testing.T) {
			_, err := ParseFilter(in)
			require.Error(t, err)
			var fe *InvalidFilterError
			assert.ErrorAs(t, err, &fe)
		})
	}
}

func TestFilterEncodeDecodeRoundTrip(t *testing.T) {
	filters := []Filter{
		EqualityMatch{Attribute: "cn", Value: []byte("Bob")},
		AND{Filters: []Filter{
			Present{Attribute: "objectClass"},
			GreaterOrEqual{Attribute: "age", Value: []byte("21")},
		}},
		Substrings{Attribute: "cn", Initial: "a", Any: []string{"b", "c"}, Final: "d"},
		ExtensibleMatch{Attribute: "cn", MatchingRule: "1.2.3.4.5", Value: "Fred Flintstone"},
	}

	for _, f := range filters {
		p := f.encode()
		decoded, err := decodeFilter(p)
		require.NoError(t, err)
		assert.Equal(t, f, decoded)
	}
}

func TestParseFilterString(t *testing.T) {
	f, err := ParseFilter("(&(objectClass=person)(cn=Bob*))")
	require.NoError(t, err)
	assert.Equal(t, "(&(objectClass=person)(cn=Bob*))", f.String())
}

func TestParseFilterSyntaxErrors(t *testing.T) {
	_, err := ParseFilter("")
	assert.Error(t, err)

	_, err = ParseFilter("cn=bob")
	assert.Error(t, err)

	_, err = ParseFilter("(cn=bob")
	assert.Error(t, err)

	_, err = ParseFilter("(cn=bob))")
	assert.Error(t, err)
}
