package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewLocalStore(t.TempDir())

	require.NoError(t, s.Put(ctx, "history/2024/ledger.jsonl", []byte("a\n")))
	require.NoError(t, s.Put(ctx, "history/2024/ledger.jsonl", []byte("a\nb\n")))
	require.NoError(t, s.Put(ctx, "reports/scan.json", []byte("{}")))

	got, err := s.Get(ctx, "history/2024/ledger.jsonl")
	require.NoError(t, err)
	assert.Equal(t, "a\nb\n", string(got))

	keys, err := s.List(ctx, "history/")
	require.NoError(t, err)
	assert.Equal(t, []string{"history/2024/ledger.jsonl"}, keys)

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"history/2024/ledger.jsonl", "reports/scan.json"}, all)
}

func TestLocalStoreNotFound(t *testing.T) {
	s := NewLocalStore(t.TempDir())
	_, err := s.Get(context.Background(), "missing.json")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStoreRejectsEscapingKeys(t *testing.T) {
	ctx := context.Background()
	s := NewLocalStore(t.TempDir())
	for _, key := range []string{"", ".", "..", "../outside", "/etc/passwd"} {
		assert.Error(t, s.Put(ctx, key, []byte("x")), "key %q", key)
	}
}

func TestLocalStoreListMissingRoot(t *testing.T) {
	s := NewLocalStore(filepath.Join(t.TempDir(), "nope"))
	keys, err := s.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestOpenLocalPath(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	target := filepath.Join(dir, "out", "report.json")

	require.NoError(t, WriteURL(ctx, target, []byte(`{"ok":true}`)))
	raw, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(raw))

	got, err := ReadURL(ctx, "file://"+target)
	require.NoError(t, err)
	assert.Equal(t, raw, got)

	_, err = ReadURL(ctx, filepath.Join(dir, "absent.json"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpenRejectsBadS3URL(t *testing.T) {
	ctx := context.Background()
	for _, u := range []string{"s3://bucket-only", "s3:///key"} {
		_, err := Open(ctx, u)
		assert.Error(t, err, u)
	}
	_, err := Open(ctx, "")
	assert.Error(t, err)
}

func TestWithEndpointImpliesPathStyle(t *testing.T) {
	var o Options
	WithEndpoint("http://localhost:4566")(&o)
	WithRegion("eu-west-1")(&o)
	assert.True(t, o.PathStyle)
	assert.Equal(t, "eu-west-1", o.Region)
}
