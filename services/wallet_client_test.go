package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPWalletClient(t *testing.T) {
	var gotKey, gotToken string
	var gotBody map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/wallets/u1":
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodGet:
			w.WriteHeader(http.StatusNotFound)
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/wallets/u1/credits":
			gotKey = r.Header.Get("Idempotency-Key")
			gotToken = r.Header.Get("X-Service-Token")
			_ = json.NewDecoder(r.Body).Decode(&gotBody)
			w.WriteHeader(http.StatusCreated)
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/wallets/dup/credits":
			w.WriteHeader(http.StatusConflict)
		default:
			http.Error(w, "boom", http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	client := NewHTTPWalletClient(srv.URL, "svc-token")
	ctx := context.Background()

	assert.True(t, client.HasWallet(ctx, "u1"))
	assert.False(t, client.HasWallet(ctx, "u2"))

	ok, err := client.SendTokens(ctx, WalletTransfer{UserID: "u1", Amount: 40, Reason: "bounty", IdempotencyKey: "tx-1"})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "tx-1", gotKey)
	assert.Equal(t, "svc-token", gotToken)
	assert.Equal(t, float64(40), gotBody["amount"])

	ok, err = client.SendTokens(ctx, WalletTransfer{UserID: "dup", Amount: 1, IdempotencyKey: "tx-1"})
	require.NoError(t, err)
	assert.True(t, ok, "an already-applied key counts as delivered")

	ok, err = client.SendTokens(ctx, WalletTransfer{UserID: "broken", Amount: 1, IdempotencyKey: "tx-2"})
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestHTTPWalletClientUnreachable(t *testing.T) {
	client := NewHTTPWalletClient("http://127.0.0.1:1", "svc-token")
	assert.False(t, client.HasWallet(context.Background(), "u1"))
	_, err := client.SendTokens(context.Background(), WalletTransfer{UserID: "u1", Amount: 1})
	assert.Error(t, err)
}
