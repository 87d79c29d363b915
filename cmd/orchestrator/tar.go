package main

import (
	"archive/tar"
	"bytes"
	"fmt"
	"io"
)

// tarSingleFile builds a tar archive containing one regular file, the
// format the container runtime's copy-in/copy-out API requires on both
// sides of the wire.
func tarSingleFile(name string, data []byte) ([]byte, error) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	hdr := &tar.Header{
		Name: name,
		Mode: 0o644,
		Size: int64(len(data)),
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return nil, fmt.Errorf("tar header for %s: %w", name, err)
	}
	if _, err := tw.Write(data); err != nil {
		return nil, fmt.Errorf("tar write for %s: %w", name, err)
	}
	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("tar close for %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// untarSingleFile reads the first regular file entry out of a tar stream,
// which is what the container runtime returns for a copy-out of a single path.
func untarSingleFile(r io.Reader) ([]byte, error) {
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil, fmt.Errorf("no file found in tar stream")
		}
		if err != nil {
			return nil, fmt.Errorf("read tar entry: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, fmt.Errorf("read tar entry body: %w", err)
		}
		return data, nil
	}
}
