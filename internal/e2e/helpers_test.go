package e2e

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"chunkgen/internal/httpapi"
	"chunkgen/internal/remote"
	"chunkgen/internal/simulator"
	"chunkgen/internal/wire"
)

// newService starts a chunksim server over a fresh engine. wrap, when not
// nil, intercepts requests before the API sees them.
func newService(t *testing.T, cfg simulator.Config, wrap func(http.Handler) http.Handler) (*httptest.Server, *simulator.Engine) {
	t.Helper()
	e, err := simulator.New(cfg)
	require.NoError(t, err)
	var h http.Handler = httpapi.NewMux(e)
	if wrap != nil {
		h = wrap(h)
	}
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv, e
}

func newClient(t *testing.T, url string, codec wire.Codec, apiKey string) *remote.Client {
	t.Helper()
	c, err := remote.New(remote.Options{BaseURL: url, Codec: codec, APIKey: apiKey})
	require.NoError(t, err)
	return c
}
