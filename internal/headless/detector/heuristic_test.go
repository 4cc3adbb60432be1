package detector

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/nj-housing-tracker/internal/housing"
)

func htmlResponse(status int, body string) housing.FetchResponse {
	return housing.FetchResponse{
		StatusCode: status,
		Headers:    http.Header{"Content-Type": {"text/html; charset=utf-8"}},
		Body:       []byte(body),
	}
}

func TestShouldPromote(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		resp housing.FetchResponse
		want bool
	}{
		{"empty body", htmlResponse(200, ""), true},
		{"spa marker", htmlResponse(200, `<div id="__next"></div>`), true},
		{"script density", htmlResponse(200, `<html><script>var a=1;</script><p>t</p></html>`), true},
		{"plain content", htmlResponse(200, `<html><body><p>Affordable housing plan adopted by council.</p></body></html>`), false},
		{"non 200", htmlResponse(404, "not found"), false},
		{"pdf", housing.FetchResponse{
			StatusCode: 200,
			Headers:    http.Header{"Content-Type": {"application/pdf"}},
		}, false},
	}
	h := NewHeuristic(1000)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, h.ShouldPromote(tc.resp))
		})
	}
}

func TestNewHeuristicDefaultThreshold(t *testing.T) {
	t.Parallel()

	require.Equal(t, 2048, NewHeuristic(0).BodyLengthThreshold)
}
