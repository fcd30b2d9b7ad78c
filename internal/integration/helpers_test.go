package integration

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/sir_venger/flatstore/internal/app/resthttp"
	"github.com/sir_venger/flatstore/internal/config"
	"github.com/sir_venger/flatstore/pkg/fileclient"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// startService поднимает сервис на диске во временном каталоге и возвращает клиента к нему.
func startService(t *testing.T, dataDir string, mutate func(*config.Config)) *fileclient.Client {
	t.Helper()

	cfg := config.Default()
	cfg.DataDir = dataDir
	if mutate != nil {
		mutate(cfg)
	}

	h, srv, err := resthttp.NewServer(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	ts := httptest.NewServer(h)
	t.Cleanup(func() {
		ts.Close()
		_ = srv.Close()
	})

	return fileclient.New(ts.URL, fileclient.Options{})
}
