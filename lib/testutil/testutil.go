package testutil

import (
	"testing"

	"duesoon-backend/lib/kvstore"
	"duesoon-backend/lib/telemetry"
)

// SetupKV initializes telemetry for the named test service and opens an
// in-memory store that is torn down with the test.
func SetupKV(t testing.TB, name string) *kvstore.Store {
	cleanupTel := telemetry.SetupForTesting("test:" + name)
	t.Cleanup(cleanupTel)

	kv, err := kvstore.OpenInMemory()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		err := kv.Close()
		if err != nil {
			t.Fatal(err)
		}
	})
	return kv
}
