package assembly

import (
	"bytes"
	"context"
	"io"
	"path"

	"github.com/tutorcast/api/internal/client"
)

// ObjectSink uploads the project under Prefix in an object store
type ObjectSink struct {
	Storage client.StorageClient
	Prefix  string
}

func (s ObjectSink) Write(ctx context.Context, target string, r io.Reader, contentType string) (string, error) {
	if err := checkTarget(target); err != nil {
		return "", err
	}
	// uploads need a seekable body to be signed
	if _, ok := r.(io.ReadSeeker); !ok {
		data, err := io.ReadAll(r)
		if err != nil {
			return "", err
		}
		r = bytes.NewReader(data)
	}
	return s.Storage.Upload(ctx, path.Join(s.Prefix, target), r, contentType)
}
