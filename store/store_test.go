package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/jrsteele09/go-auth-proxy/store"
	"github.com/jrsteele09/go-auth-proxy/store/memstore"
	"github.com/stretchr/testify/require"
)

type record struct {
	ClientID string `json:"client_id"`
	Scope    string `json:"scope,omitempty"`
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	key := store.RefreshKey("abc")
	require.Equal(t, "refresh:abc", key)
	require.NoError(t, store.PutJSON(ctx, s, key, record{ClientID: "c1", Scope: "mcp"}, time.Minute))

	var got record
	require.NoError(t, store.GetJSON(ctx, s, key, &got))
	require.Equal(t, record{ClientID: "c1", Scope: "mcp"}, got)

	var taken record
	require.NoError(t, store.TakeJSON(ctx, s, key, &taken))
	require.Equal(t, got, taken)
	require.ErrorIs(t, store.GetJSON(ctx, s, key, &got), store.ErrNotFound)
}

func TestDecodeErrorDoesNotLeakKey(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	key := store.AuthCodeKey("0123456789abcdef")
	require.NoError(t, s.Put(ctx, key, []byte("{not json"), 0))

	var got record
	err := store.GetJSON(ctx, s, key, &got)
	require.Error(t, err)
	require.Contains(t, err.Error(), "authcode record")
	require.NotContains(t, err.Error(), "0123456789abcdef")
}
