package streaming

import (
	"context"
	"io"
	"mime"
	"os"
	"path/filepath"
	"sync"

	"github.com/playdar/resolverd/internal/perr"
	"github.com/playdar/resolverd/internal/playdarlog"
)

// LocalFile is a blocking-read-from-disk Strategy. content_length and
// mime_type are known up front from the filesystem and extension.
type LocalFile struct {
	path string

	mu         sync.Mutex
	f          *os.File
	size       int64
	cancelled  bool
	opened     bool
}

// NewLocalFile constructs a LocalFile over path without opening it; the
// file is opened lazily on the first ReadBytes.
func NewLocalFile(path string) *LocalFile {
	return &LocalFile{path: path}
}

func (l *LocalFile) ensureOpen() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.opened {
		return nil
	}
	f, err := os.Open(l.path)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	l.f = f
	l.size = info.Size()
	l.opened = true
	return nil
}

func (l *LocalFile) ReadBytes(ctx context.Context, buf []byte) (int, error) {
	select {
	case <-ctx.Done():
		return 0, perr.Stream(perr.StreamCancelled, "read cancelled", ctx.Err())
	default:
	}

	if err := l.ensureOpen(); err != nil {
		return 0, perr.Stream(perr.StreamIO, "open local file", err)
	}

	l.mu.Lock()
	cancelled := l.cancelled
	f := l.f
	l.mu.Unlock()
	if cancelled {
		return 0, perr.Stream(perr.StreamCancelled, "stream cancelled", nil)
	}

	n, err := f.Read(buf)
	if err == io.EOF {
		return n, nil
	}
	if err != nil {
		return n, perr.Stream(perr.StreamIO, "read local file", err)
	}
	return n, nil
}

func (l *LocalFile) MimeType() string {
	ext := filepath.Ext(l.path)
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}

func (l *LocalFile) ContentLength() int64 {
	if err := l.ensureOpen(); err != nil {
		return ContentLengthUnknown
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.size
}

func (l *LocalFile) Debug() string {
	return "LocalFile(" + l.path + ")"
}

// Instance returns a fresh LocalFile over the same path, unopened — cheap
// per-request isolation so several concurrent responses can stream the
// same file independently.
func (l *LocalFile) Instance() Strategy {
	return NewLocalFile(l.path)
}

func (l *LocalFile) Cancel() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancelled {
		return
	}
	l.cancelled = true
	if l.f != nil {
		if err := l.f.Close(); err != nil {
			playdarlog.Stream().Warn().Err(err).Str("path", l.path).Msg("close local file on cancel")
		}
	}
}
