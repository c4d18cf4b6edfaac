package ldap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBerScalarRoundTrip(t *testing.T) {
	ip := newInt(12345, "n")
	n, err := intValue(ip)
	require.NoError(t, err)
	assert.EqualValues(t, 12345, n)

	bp := newBool(true, "b")
	b, err := boolValue(bp)
	require.NoError(t, err)
	assert.True(t, b)

	sp := newOctetString("hello", "s")
	assert.Equal(t, "hello", octetString(sp))

	bytesp := newOctetBytes([]byte{0x00, 0x01, 0xff}, "bytes")
	assert.Equal(t, []byte{0x00, 0x01, 0xff}, octetBytes(bytesp))
}

func TestBerOctetStringEmptyValue(t *testing.T) {
	p := newOctetString("", "empty")
	assert.Equal(t, "", octetString(p))
}

func TestBerWrongTypeErrors(t *testing.T) {
	sp := newOctetString("not a number", "s")
	_, err := intValue(sp)
	assert.Error(t, err)

	_, err = boolValue(sp)
	assert.Error(t, err)
}

func TestBerSequenceEncodeDecode(t *testing.T) {
	seq := newSequence("seq")
	seq.AppendChild(newInt(1, "id"))
	seq.AppendChild(newOctetString("dc=example,dc=com", "dn"))

	decoded, err := decodePacket(seq.Bytes())
	require.NoError(t, err)
	require.Len(t, decoded.Children, 2)

	n, err := intValue(decoded.Children[0])
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.Equal(t, "dc=example,dc=com", octetString(decoded.Children[1]))
}
