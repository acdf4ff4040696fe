package auth_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

type healthResponse struct {
	Status  string `json:"status"`
	Uptime  string `json:"uptime"`
	Version string `json:"version"`
}

// TestLivezEndpoint verifies the liveness check answers as soon as the
// process is up.
func TestLivezEndpoint(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := newAPIClient(baseURL)

	status, raw := client.get(t, "/livez", "")
	require.Equal(t, http.StatusOK, status)

	health := decodeJSON[healthResponse](t, raw)
	require.Equal(t, "ok", health.Status)
	require.NotEmpty(t, health.Version)
}

// TestReadyzEndpoint verifies readiness, which also proves the store answers.
func TestReadyzEndpoint(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := newAPIClient(baseURL)

	status, raw := client.get(t, "/readyz", "")
	require.Equal(t, http.StatusOK, status)

	health := decodeJSON[healthResponse](t, raw)
	require.Equal(t, "ok", health.Status)
}
