package pathmap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOptimizedImagePath(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"/images/uploads/artists/jane.jpg", "/images/images/web/artists/jane.jpg"},
		{"/uploads/a.jpg", "/images/web/a.jpg"},
		{"/uploads/uploads/a.jpg", "/images/web/uploads/a.jpg"},
		{"/assets/pihla-folk-logo.png", "/assets/pihla-folk-logo.png"},
		{"https://example.com/uploads/x.png", "https://example.com/images/web/x.png"},
		{"uploads/a.jpg", "uploads/a.jpg"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, OptimizedImagePath(tc.in), tc.in)
	}
}
