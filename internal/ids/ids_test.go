package ids

import (
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_SortableAndUnique(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	list := make([]string, 0, 1000)
	for i := 0; i < 1000; i++ {
		id := New()
		require.Len(t, id, 26)
		_, dup := seen[id]
		require.False(t, dup)
		seen[id] = struct{}{}
		list = append(list, id)
	}
	assert.True(t, sort.StringsAreSorted(list))
}

func TestSlug(t *testing.T) {
	s := Slug("Hello, World!  Go 1.24")
	assert.True(t, strings.HasPrefix(s, "hello-world-go-1-24-"), s)
	assert.NotEqual(t, s, Slug("Hello, World!  Go 1.24"))

	assert.Len(t, Slug("!!!"), 8)
	assert.Equal(t, "tech-news", CategorySlug("Tech  News"))
	assert.Equal(t, "golang", CategorySlug("Golang"))
}
