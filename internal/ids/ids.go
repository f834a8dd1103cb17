package ids

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// New returns a lexicographically sortable identifier used for request ids.
func New() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// Slug lower-cases title, keeps ASCII letters and digits, collapses every
// other run into a single dash and appends a short unique suffix so two posts
// with the same title never collide.
func Slug(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(title) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if b.Len() > 0 && !dash {
			b.WriteByte('-')
			dash = true
		}
	}
	base := strings.TrimSuffix(b.String(), "-")
	if len(base) > 60 {
		base = strings.TrimSuffix(base[:60], "-")
	}
	id := strings.ToLower(New())
	suffix := id[len(id)-8:]
	if base == "" {
		return suffix
	}
	return base + "-" + suffix
}

// CategorySlug is Slug without the unique suffix; category names are unique
// case-insensitively so their slugs are too.
func CategorySlug(name string) string {
	s := Slug(name)
	if i := strings.LastIndexByte(s, '-'); i >= 0 {
		return s[:i]
	}
	return s
}
