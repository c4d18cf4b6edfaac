package ldap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecRoundTrip(t *testing.T) {
	msg := &LdapMessage{
		MessageID: 7,
		Op: &bindRequest{
			DN:   "cn=admin,dc=example,dc=com",
			Auth: AuthenticationChoice{Simple: []byte("secret")},
		},
	}

	out, err := Codec{}.Encode(msg)
	require.NoError(t, err)

	decoded, consumed, err := Codec{}.Decode(out)
	require.NoError(t, err)
	assert.Equal(t, len(out), consumed)
	assert.Equal(t, msg.MessageID, decoded.MessageID)

	req, ok := decoded.Op.(*bindRequest)
	require.True(t, ok)
	assert.Equal(t, "cn=admin,dc=example,dc=com", req.DN)
	assert.Equal(t, []byte("secret"), req.Auth.Simple)
}

func TestCodecDecodeIncomplete(t *testing.T) {
	msg := &LdapMessage{MessageID: 1, Op: &unbindRequest{}}
	out, err := Codec{}.Encode(msg)
	require.NoError(t, err)

	for n := 0; n < len(out); n++ {
		_, _, err := Codec{}.Decode(out[:n])
		assert.ErrorIs(t, err, ErrIncomplete, "prefix of length %d should be reported incomplete", n)
	}

	_, consumed, err := Codec{}.Decode(out)
	require.NoError(t, err)
	assert.Equal(t, len(out), consumed)
}

func TestCodecDecodeConsumesOnlyOneFrame(t *testing.T) {
	first := &LdapMessage{MessageID: 1, Op: &unbindRequest{}}
	second := &LdapMessage{MessageID: 2, Op: &unbindRequest{}}

	b1, err := Codec{}.Encode(first)
	require.NoError(t, err)
	b2, err := Codec{}.Encode(second)
	require.NoError(t, err)

	buf := append(append([]byte{}, b1...), b2...)

	msg, consumed, err := Codec{}.Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, len(b1), consumed)
	assert.Equal(t, 1, msg.MessageID)

	msg, consumed, err = Codec{}.Decode(buf[consumed:])
	require.NoError(t, err)
	assert.Equal(t, len(b2), consumed)
	assert.Equal(t, 2, msg.MessageID)
}

func TestCodecSearchResultRoundTrip(t *testing.T) {
	msg := &LdapMessage{
		MessageID: 42,
		Op: &searchResultEntry{
			Entry: SearchEntry{
				DN: "uid=bob,ou=people,dc=example,dc=com",
				Attributes: []Attribute{
					{Name: "cn", Values: [][]byte{[]byte("Bob")}},
					{Name: "mail", Values: [][]byte{[]byte("bob@example.com"), []byte("b@example.com")}},
				},
			},
		},
		Controls: []Control{{Type: OIDSimplePagedResults, Criticality: false, Value: []byte("x"), HasValue: true}},
	}

	out, err := Codec{}.Encode(msg)
	require.NoError(t, err)

	decoded, _, err := Codec{}.Decode(out)
	require.NoError(t, err)

	entry, ok := decoded.Op.(*searchResultEntry)
	require.True(t, ok)
	assert.Equal(t, msg.Op.(*searchResultEntry).Entry.DN, entry.Entry.DN)
	require.Len(t, decoded.Controls, 1)
	assert.Equal(t, OIDSimplePagedResults, decoded.Controls[0].Type)
}
