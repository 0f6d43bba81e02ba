package streaming

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playdar/resolverd/internal/perr"
)

func writeTempFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func TestLocalFile_ReadsFullContentThenEOF(t *testing.T) {
	path := writeTempFile(t, "track.mp3", []byte("some audio bytes"))
	lf := NewLocalFile(path)

	var out []byte
	buf := make([]byte, 4)
	for {
		n, err := lf.ReadBytes(context.Background(), buf)
		require.NoError(t, err)
		if n == 0 {
			break
		}
		out = append(out, buf[:n]...)
	}
	assert.Equal(t, "some audio bytes", string(out))
}

func TestLocalFile_ContentLengthAndMimeType(t *testing.T) {
	path := writeTempFile(t, "track.mp3", []byte("abcd"))
	lf := NewLocalFile(path)

	assert.Equal(t, int64(4), lf.ContentLength())
	assert.Equal(t, "audio/mpeg", lf.MimeType())
}

func TestLocalFile_MissingFileReturnsError(t *testing.T) {
	lf := NewLocalFile(filepath.Join(t.TempDir(), "missing.mp3"))
	_, err := lf.ReadBytes(context.Background(), make([]byte, 16))
	assert.Error(t, err)
}

func TestLocalFile_CancelledBeforeReadReturnsStreamCancelled(t *testing.T) {
	path := writeTempFile(t, "track.mp3", []byte("abcd"))
	lf := NewLocalFile(path)
	lf.Cancel()

	_, err := lf.ReadBytes(context.Background(), make([]byte, 16))
	var pe *perr.Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, perr.StreamCancelled, pe.StreamKind)
}

func TestLocalFile_ContextCancelledBeforeReadReturnsError(t *testing.T) {
	path := writeTempFile(t, "track.mp3", []byte("abcd"))
	lf := NewLocalFile(path)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := lf.ReadBytes(ctx, make([]byte, 16))
	assert.Error(t, err)
}

func TestLocalFile_InstanceIsIndependentAndUnopened(t *testing.T) {
	path := writeTempFile(t, "track.mp3", []byte("abcd"))
	lf := NewLocalFile(path)
	_, err := lf.ReadBytes(context.Background(), make([]byte, 1))
	require.NoError(t, err)

	other := lf.Instance()
	assert.NotSame(t, lf, other)

	buf := make([]byte, 4)
	n, err := other.ReadBytes(context.Background(), buf)
	require.NoError(t, err)
	assert.Equal(t, "abcd", string(buf[:n]), "a fresh Instance starts reading from the beginning")
}

func TestLocalFile_CancelClosesUnderlyingFile(t *testing.T) {
	path := writeTempFile(t, "track.mp3", []byte("abcd"))
	lf := NewLocalFile(path)
	_, err := lf.ReadBytes(context.Background(), make([]byte, 1))
	require.NoError(t, err)

	lf.Cancel()
	assert.NotPanics(t, func() { lf.Cancel() })
}
