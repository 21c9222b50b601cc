package chain

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newExplorerServer(t *testing.T, status, result string, hits *int) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "contract", r.URL.Query().Get("module"))
		assert.Equal(t, "getabi", r.URL.Query().Get("action"))
		assert.NotEmpty(t, r.URL.Query().Get("address"))

		if hits != nil {
			*hits++
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(explorerAbiResponse{
			Status:  status,
			Message: "OK",
			Result:  result,
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func TestGetContractABI(t *testing.T) {
	abi := `[{"type":"function","name":"run","inputs":[]}]`
	server := newExplorerServer(t, "1", abi, nil)

	explorer, err := NewExplorer(server.URL)
	require.NoError(t, err)

	got, err := explorer.GetContractABI(context.Background(), "0x00000000000000000000000000000000000000aa")
	require.NoError(t, err)
	assert.Equal(t, abi, got)
}

func TestGetContractABICachesResult(t *testing.T) {
	hits := 0
	server := newExplorerServer(t, "1", `[]`, &hits)

	explorer, err := NewExplorer(server.URL)
	require.NoError(t, err)

	address := "0x00000000000000000000000000000000000000aa"
	_, err = explorer.GetContractABI(context.Background(), address)
	require.NoError(t, err)
	_, err = explorer.GetContractABI(context.Background(), address)
	require.NoError(t, err)

	assert.Equal(t, 1, hits, "the second lookup is served from cache")
}

func TestGetContractABIRateLimited(t *testing.T) {
	server := newExplorerServer(t, "0", rateLimitMessage, nil)

	explorer, err := NewExplorer(server.URL)
	require.NoError(t, err)

	_, err = explorer.GetContractABI(context.Background(), "0x00000000000000000000000000000000000000aa")
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestGetContractABINotVerified(t *testing.T) {
	server := newExplorerServer(t, "0", notVerifiedMessage, nil)

	explorer, err := NewExplorer(server.URL)
	require.NoError(t, err)

	_, err = explorer.GetContractABI(context.Background(), "0x00000000000000000000000000000000000000aa")
	assert.ErrorIs(t, err, ErrNotVerified)
}

func TestGetContractABIUnknownFault(t *testing.T) {
	server := newExplorerServer(t, "0", "NOTOK", nil)

	explorer, err := NewExplorer(server.URL)
	require.NoError(t, err)

	_, err = explorer.GetContractABI(context.Background(), "0x00000000000000000000000000000000000000aa")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRateLimited)
	assert.NotErrorIs(t, err, ErrNotVerified)
}
