// Package uploads stores user-supplied images for recipes and avatars.
//
// Files are renamed on arrival to "<YYYYMMDD_HHMMSS>_<8 hex>.<ext>" (avatars
// carry an extra "avatar_" prefix) and addressed by URLs of the form
// "<base>/<kind>/<name>". The timestamp in the name lets the orphan sweeper
// skip files that were just written and are not yet referenced.
package uploads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind groups uploads by what they illustrate.
type Kind string

const (
	KindRecipes Kind = "recipes"
	KindAvatars Kind = "avatars"
)

// Kinds lists every upload kind.
var Kinds = []Kind{KindRecipes, KindAvatars}

// URLPrefix is the path under which locally stored uploads are served.
const URLPrefix = "/uploads"

const (
	nameTimeLayout = "20060102_150405"
	avatarPrefix   = "avatar_"
)

var (
	ErrUnsupportedType = errors.New("unsupported image type (allowed: png, jpg, jpeg, gif)")
	ErrInvalidURL      = errors.New("not an upload url")
)

var allowedExtensions = map[string]string{
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
}

// File describes a stored upload.
type File struct {
	Kind Kind
	Name string
	URL  string
	// CreatedAt is parsed from the generated name, falling back to the
	// backend's modification time.
	CreatedAt time.Time
}

// Storage persists uploaded images.
type Storage interface {
	// Save stores r under a freshly generated name. original is the client
	// supplied filename; only its extension is used.
	Save(ctx context.Context, kind Kind, original string, r io.Reader) (url string, err error)
	// Delete removes the file behind url. Missing files are not an error.
	Delete(ctx context.Context, url string) error
	// List returns every stored file of the given kind.
	List(ctx context.Context, kind Kind) ([]File, error)
}

// Extension returns the lower-cased extension of name if it is an allowed
// image type.
func Extension(name string) (string, error) {
	idx := strings.LastIndex(name, ".")
	if idx < 0 || idx == len(name)-1 {
		return "", ErrUnsupportedType
	}
	ext := strings.ToLower(name[idx+1:])
	if _, ok := allowedExtensions[ext]; !ok {
		return "", ErrUnsupportedType
	}
	return ext, nil
}

// AllowedFile reports whether name has an allowed image extension.
func AllowedFile(name string) bool {
	_, err := Extension(name)
	return err == nil
}

// ContentType returns the MIME type for an allowed extension.
func ContentType(ext string) string {
	if ct, ok := allowedExtensions[strings.ToLower(ext)]; ok {
		return ct
	}
	return "application/octet-stream"
}

// GenerateName builds a unique stored filename.
func GenerateName(kind Kind, ext string, now time.Time) string {
	name := fmt.Sprintf("%s_%s.%s", now.Format(nameTimeLayout), uuid.NewString()[:8], ext)
	if kind == KindAvatars {
		name = avatarPrefix + name
	}
	return name
}

// NameTime extracts the creation time encoded in a generated name.
func NameTime(name string) (time.Time, bool) {
	name = strings.TrimPrefix(name, avatarPrefix)
	if len(name) < len(nameTimeLayout) {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(nameTimeLayout, name[:len(nameTimeLayout)], time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ParseURL splits an upload URL into kind and name. Only the last two path
// segments are inspected, so URLs with any base are accepted.
func ParseURL(rawURL string) (Kind, string, error) {
	trimmed := strings.TrimRight(rawURL, "/")
	name := path.Base(trimmed)
	kind := Kind(path.Base(path.Dir(trimmed)))

	if !validKind(kind) || name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}
	return kind, name, nil
}

// BuildURL joins base, kind and name into an upload URL.
func BuildURL(base string, kind Kind, name string) string {
	return strings.TrimRight(base, "/") + "/" + string(kind) + "/" + name
}

func validKind(kind Kind) bool {
	for _, k := range Kinds {
		if k == kind {
			return true
		}
	}
	return false
}
