package uploads

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtension(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{"photo.png", "png", false},
		{"PHOTO.JPG", "jpg", false},
		{"archive.tar.jpeg", "jpeg", false},
		{"anim.gif", "gif", false},
		{"doc.pdf", "", true},
		{"noext", "", true},
		{"trailing.", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Extension(tt.name)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedType)
				assert.False(t, AllowedFile(tt.name))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, AllowedFile(tt.name))
		})
	}
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "image/jpeg", ContentType("JPG"))
	assert.Equal(t, "image/png", ContentType("png"))
	assert.Equal(t, "application/octet-stream", ContentType("exe"))
}

func TestGenerateNameEncodesTime(t *testing.T) {
	now := time.Date(2024, 3, 9, 14, 5, 7, 0, time.Local)

	name := GenerateName(KindRecipes, "png", now)
	assert.Regexp(t, `^20240309_140507_[0-9a-f]{8}\.png$`, name)
	got, ok := NameTime(name)
	require.True(t, ok)
	assert.True(t, now.Equal(got))

	avatar := GenerateName(KindAvatars, "jpg", now)
	assert.Regexp(t, `^avatar_20240309_140507_[0-9a-f]{8}\.jpg$`, avatar)
	got, ok = NameTime(avatar)
	require.True(t, ok)
	assert.True(t, now.Equal(got))

	assert.NotEqual(t, name, GenerateName(KindRecipes, "png", now))
}

func TestNameTimeRejectsForeignNames(t *testing.T) {
	_, ok := NameTime("cat.png")
	assert.False(t, ok)
	_, ok = NameTime("2024-03-09 hello.png")
	assert.False(t, ok)
}

func TestParseURL(t *testing.T) {
	kind, name, err := ParseURL("/uploads/recipes/20240309_140507_abcd1234.png")
	require.NoError(t, err)
	assert.Equal(t, KindRecipes, kind)
	assert.Equal(t, "20240309_140507_abcd1234.png", name)

	kind, name, err = ParseURL("https://cdn.example.com/media/avatars/avatar_x.jpg")
	require.NoError(t, err)
	assert.Equal(t, KindAvatars, kind)
	assert.Equal(t, "avatar_x.jpg", name)

	for _, bad := range []string{"", "/uploads", "/uploads/other/x.png", "/uploads/recipes/..", "https://example.com/cat.png"} {
		_, _, err := ParseURL(bad)
		assert.ErrorIs(t, err, ErrInvalidURL, bad)
	}
}

func TestBuildURL(t *testing.T) {
	assert.Equal(t, "/uploads/recipes/a.png", BuildURL("/uploads", KindRecipes, "a.png"))
	assert.Equal(t, "https://cdn.example.com/avatars/b.png", BuildURL("https://cdn.example.com/", KindAvatars, "b.png"))
}
