package storage

import (
	"context"
	"strings"
	"testing"

	"doemais/utils"

	"github.com/stretchr/testify/assert"
)

func TestObjectKey(t *testing.T) {
	key := objectKey("donations/d1", "../../etc/photo.jpg")
	assert.True(t, strings.HasPrefix(key, "donations/d1/"))
	assert.True(t, strings.HasSuffix(key, "-photo.jpg"))
	assert.NotContains(t, key, "..")
}

func TestPublicIDFromURL(t *testing.T) {
	url := "https://res.cloudinary.com/demo/image/upload/v1712345678/donations/d1/abc-photo.jpg"
	assert.Equal(t, "donations/d1/abc-photo", publicIDFromURL(url))
	assert.Equal(t, "plain-id", publicIDFromURL("plain-id"))
}

func TestDisabledStore(t *testing.T) {
	_, err := Disabled{}.Upload(context.Background(), strings.NewReader("x"), "f", "a.png", "image/png")
	assert.Equal(t, 422, utils.StatusFor(err))
}
