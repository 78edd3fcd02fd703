package kvstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestGetSetRoundTrip(t *testing.T) {
	kv, err := OpenInMemory()
	require.NoError(t, err)
	defer kv.Close()

	ctx := context.Background()

	var missing payload
	err = kv.Get(ctx, "nope", &missing)
	require.ErrorIs(t, err, ErrKeyNotFound)

	in := payload{Name: "assignments", Count: 3}
	require.NoError(t, kv.Set(ctx, "k", in))

	var out payload
	require.NoError(t, kv.Get(ctx, "k", &out))
	require.Equal(t, in, out)

	// wholesale overwrite, not merge
	require.NoError(t, kv.Set(ctx, "k", payload{Name: "courses"}))
	require.NoError(t, kv.Get(ctx, "k", &out))
	require.Equal(t, payload{Name: "courses"}, out)
}

func TestDelete(t *testing.T) {
	kv, err := OpenInMemory()
	require.NoError(t, err)
	defer kv.Close()

	ctx := context.Background()
	require.NoError(t, kv.Set(ctx, "a", payload{Name: "a"}))
	require.NoError(t, kv.Set(ctx, "b", payload{Name: "b"}))

	// deleting a missing key alongside present ones is not an error
	require.NoError(t, kv.Delete(ctx, "a", "b", "c"))

	var out payload
	require.ErrorIs(t, kv.Get(ctx, "a", &out), ErrKeyNotFound)
	require.ErrorIs(t, kv.Get(ctx, "b", &out), ErrKeyNotFound)
}
