package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func TestCipher_RoundTrip(t *testing.T) {
	c, err := NewCipher(testKey)
	require.NoError(t, err)

	blob, err := c.Encrypt("page-token")
	require.NoError(t, err)
	assert.NotContains(t, blob, "page-token")

	plain, err := c.Decrypt(blob)
	require.NoError(t, err)
	assert.Equal(t, "page-token", plain)
}

func TestCipher_DecryptMalformed(t *testing.T) {
	c, err := NewCipher(testKey)
	require.NoError(t, err)

	for _, blob := range []string{"not base64!", "c2hvcnQ=", ""} {
		_, err := c.Decrypt(blob)
		assert.ErrorIs(t, err, ErrMalformedCiphertext, blob)
	}
}

func TestCipher_DecryptWithWrongKey(t *testing.T) {
	c, err := NewCipher(testKey)
	require.NoError(t, err)
	blob, err := c.Encrypt("secret")
	require.NoError(t, err)

	other, err := NewCipher([]byte("fedcba9876543210fedcba9876543210"))
	require.NoError(t, err)
	_, err = other.Decrypt(blob)
	assert.ErrorIs(t, err, ErrMalformedCiphertext)
}

func TestNewCipher_RejectsBadKeyLength(t *testing.T) {
	_, err := NewCipher([]byte("short"))
	assert.Error(t, err)
}
