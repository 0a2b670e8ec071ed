package receipts

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalStoreRoundTrip(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	key, err := store.Put(ctx, "receipt.pdf", "application/pdf", strings.NewReader("%PDF-1.4 fake"))
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(key, ".pdf"))

	rc, contentType, err := store.Get(ctx, key)
	require.NoError(t, err)
	defer rc.Close()
	require.Equal(t, "application/pdf", contentType)
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, "%PDF-1.4 fake", string(body))

	require.NoError(t, store.Delete(ctx, key))
	_, _, err = store.Get(ctx, key)
	require.Error(t, err)

	// Deleting an already-removed key is not an error.
	require.NoError(t, store.Delete(ctx, key))
}

func TestPutRejectsUnsupportedExtension(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Put(context.Background(), "malware.exe", "application/octet-stream", strings.NewReader("x"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported receipt file type")
}

func TestGetRejectsTraversalKeys(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"../etc/passwd", "a/../../b.pdf", "dir/receipt.pdf"} {
		_, _, err := store.Get(context.Background(), key)
		require.Error(t, err, key)
	}
}

func TestNewKeyPreservesExtension(t *testing.T) {
	key, err := NewKey("Lunch Receipt.JPG")
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(key, ".jpg"))

	other, err := NewKey("Lunch Receipt.JPG")
	require.NoError(t, err)
	require.NotEqual(t, key, other)
}
