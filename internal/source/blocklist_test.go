package source

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBlocklist(t *testing.T) {
	t.Parallel()

	b := NewBlocklist([]string{"*.wikipedia.org", ".facebook.com", "x.com", "  ", "*."})
	require.NotNil(t, b)

	require.True(t, b.IsBlocked("en.wikipedia.org"))
	require.True(t, b.IsBlocked("wikipedia.org"))
	require.True(t, b.IsBlocked("WWW.FACEBOOK.COM"))
	require.True(t, b.IsBlocked("x.com"))
	require.False(t, b.IsBlocked("box.com"))
	require.False(t, b.IsBlocked("newarknj.gov"))
	require.False(t, b.IsBlocked(""))
}

func TestNilBlocklistBlocksNothing(t *testing.T) {
	t.Parallel()

	b := NewBlocklist(nil)
	require.Nil(t, b)
	require.False(t, b.IsBlocked("en.wikipedia.org"))
}
