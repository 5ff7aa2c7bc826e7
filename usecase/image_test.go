package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseImageDataURL(t *testing.T) {
	img, err := ParseImageDataURL("")
	require.NoError(t, err)
	assert.Nil(t, img)

	img, err = ParseImageDataURL("data:image/png;base64,aGVsbG8=")
	require.NoError(t, err)
	require.NotNil(t, img)
	assert.Equal(t, "image/png", img.MIMEType)
	assert.Equal(t, []byte("hello"), img.Data)
	assert.Equal(t, "data:image/png;base64,aGVsbG8=", img.Ref)

	img, err = ParseImageDataURL("aGVsbG8=")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", img.MIMEType)

	for _, bad := range []string{"data:image/png;base64", "data:image/png,raw", "data:image/png;base64,!!!"} {
		_, err := ParseImageDataURL(bad)
		assert.ErrorIs(t, err, ErrValidation, bad)
	}
}
