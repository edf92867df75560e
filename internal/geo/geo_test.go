package geo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubLocator struct {
	loc   Location
	err   error
	calls int
}

func (s *stubLocator) Locate(context.Context, string) (Location, error) {
	s.calls++
	return s.loc, s.err
}

func TestCountryName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"ES", "España"},
		{"es", "España"},
		{"España", "España"},
		{"ZZ", "ZZ"},
		{"Germany", "Germany"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CountryName(tt.in), tt.in)
	}

	// applying it twice must not change the result
	assert.Equal(t, CountryName("MX"), CountryName(CountryName("MX")))
}

func TestIsPublicIP(t *testing.T) {
	assert.True(t, IsPublicIP("8.8.8.8"))
	assert.True(t, IsPublicIP("2001:4860:4860::8888"))
	assert.False(t, IsPublicIP("127.0.0.1"))
	assert.False(t, IsPublicIP("10.1.2.3"))
	assert.False(t, IsPublicIP("192.168.0.10"))
	assert.False(t, IsPublicIP(""))
	assert.False(t, IsPublicIP("unknown"))
}

func TestChain_HintsWin(t *testing.T) {
	stub := &stubLocator{loc: Location{Country: "US"}}
	chain := NewChain(zap.NewNop(), stub)

	loc := chain.Resolve(context.Background(), "8.8.8.8", Location{Country: "ES", City: "Madrid"})

	assert.Equal(t, Location{Country: "ES", City: "Madrid"}, loc)
	assert.Zero(t, stub.calls)
}

func TestChain_FallsThroughFailures(t *testing.T) {
	failing := &stubLocator{err: errors.New("boom")}
	empty := &stubLocator{}
	working := &stubLocator{loc: Location{Country: "AR", Region: "Buenos Aires"}}
	chain := NewChain(zap.NewNop(), failing, empty, working)

	loc := chain.Resolve(context.Background(), "8.8.8.8", Location{Country: "XX"})

	assert.Equal(t, "AR", loc.Country)
	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, 1, empty.calls)
}

func TestChain_PrivateIPSkipsLookup(t *testing.T) {
	stub := &stubLocator{loc: Location{Country: "US"}}
	chain := NewChain(zap.NewNop(), stub)

	loc := chain.Resolve(context.Background(), "192.168.1.1", Location{})

	assert.True(t, loc.Empty())
	assert.Zero(t, stub.calls)
}

func TestHTTPLocator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/json/1.1.1.1" {
			w.Write([]byte(`{"status":"success","countryCode":"CL","regionName":"Santiago","city":"Santiago"}`))
			return
		}
		w.Write([]byte(`{"status":"fail","message":"reserved range"}`))
	}))
	defer srv.Close()

	locator, err := NewHTTPLocator(srv.URL+"/json/%s", time.Second)
	require.NoError(t, err)

	loc, err := locator.Locate(context.Background(), "1.1.1.1")
	require.NoError(t, err)
	assert.Equal(t, Location{Country: "CL", Region: "Santiago", City: "Santiago"}, loc)

	_, err = locator.Locate(context.Background(), "2.2.2.2")
	assert.Error(t, err)
}

func TestNewHTTPLocator_RejectsBadTemplate(t *testing.T) {
	for _, tmpl := range []string{
		"http://ip-api.com/json/",
		"http://ip-api.com/json/%s/%s",
		"http://ip-api.com/json/%d",
		"http://ip-api.com/json/%s?fields=a%2Cb",
	} {
		_, err := NewHTTPLocator(tmpl, time.Second)
		assert.ErrorIs(t, err, ErrInvalidURLTemplate, tmpl)
	}

	_, err := NewHTTPLocator("http://ip-api.com/json/%s?fields=status,countryCode", time.Second)
	assert.NoError(t, err)
}
