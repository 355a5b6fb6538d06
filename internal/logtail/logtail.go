package logtail

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
)

const chunkSize = 8 * 1024

// Read returns at most maxLines from the end of the file at path, oldest
// first. A missing file yields no lines and no error.
func Read(path string, maxLines int) ([]string, error) {
	if maxLines <= 0 {
		return nil, nil
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat log: %w", err)
	}
	return tail(file, info.Size(), maxLines)
}

// tail reads backwards from size in fixed chunks until it has seen
// maxLines complete lines or reached the start of r.
func tail(r io.ReaderAt, size int64, maxLines int) ([]string, error) {
	var (
		data []byte
		off  = size
		buf  = make([]byte, chunkSize)
	)
	for off > 0 {
		n := int64(chunkSize)
		if off < n {
			n = off
		}
		off -= n
		if _, err := r.ReadAt(buf[:n], off); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read log: %w", err)
		}
		data = append(append(make([]byte, 0, int(n)+len(data)), buf[:n]...), data...)
		// One extra newline marks the start of the oldest wanted line.
		if bytes.Count(data, []byte{'\n'}) > maxLines {
			break
		}
	}

	data = bytes.TrimSuffix(data, []byte{'\n'})
	if len(data) == 0 {
		return nil, nil
	}
	parts := bytes.Split(data, []byte{'\n'})
	if len(parts) > maxLines {
		parts = parts[len(parts)-maxLines:]
	}
	lines := make([]string, len(parts))
	for i, p := range parts {
		lines[i] = string(bytes.TrimSuffix(p, []byte{'\r'}))
	}
	return lines, nil
}
