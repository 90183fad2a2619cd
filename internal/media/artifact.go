// Package media holds what the audio and video stages share: the artifact
// type, artifact naming and the ffmpeg runner.
package media

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/oklog/ulid/v2"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Artifact is a generated file on disk.
type Artifact struct {
	Path        string
	ContentType string
}

const (
	ContentTypeMP3 = "audio/mpeg"
	ContentTypeWAV = "audio/wav"
	ContentTypeMP4 = "video/mp4"
)

const maxSlug = 48

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slug turns a title into a lowercase ASCII file name fragment.
func Slug(title string) string {
	folded, _, err := transform.String(stripMarks, title)
	if err != nil {
		folded = title
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
		if b.Len() >= maxSlug {
			break
		}
	}
	s := strings.TrimRight(b.String(), "-")
	if s == "" {
		return "story"
	}
	return s
}

// ArtifactPath returns a fresh path <dir>/<ulid>-<slug>.<ext>. Concurrent
// calls for the same title never collide.
func ArtifactPath(dir, title, ext string) string {
	name := fmt.Sprintf("%s-%s.%s", strings.ToLower(ulid.Make().String()), Slug(title), strings.TrimPrefix(ext, "."))
	return filepath.Join(dir, name)
}
