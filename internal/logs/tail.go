package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

const maxLineBytes = 1024 * 1024

// FileName is the log file written next to stderr when logging.dir is set.
const FileName = "winfp.log"

// Last returns up to limit trailing lines of path and the offset just past
// them. A missing file yields no lines and offset zero.
func Last(path string, limit int) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if limit <= 0 {
		offset, err := file.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, 0, fmt.Errorf("seek log file: %w", err)
		}
		return nil, offset, nil
	}

	ring := make([]string, limit)
	count, next := 0, 0
	offset, err := scanLines(file, func(line string) {
		ring[next] = line
		next = (next + 1) % limit
		if count < limit {
			count++
		}
	})
	if err != nil {
		return nil, 0, err
	}

	lines := make([]string, 0, count)
	start := 0
	if count == limit {
		start = next
	}
	for i := 0; i < count; i++ {
		lines = append(lines, ring[(start+i)%limit])
	}
	return lines, offset, nil
}

// Follow polls path every interval and calls emit for each complete line
// written after offset. A file that shrinks is read again from the start. It
// returns when ctx is done.
func Follow(ctx context.Context, path string, offset int64, interval time.Duration, emit func(string)) error {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		next, err := readFrom(path, offset, emit)
		if err != nil {
			return err
		}
		offset = next

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func readFrom(path string, offset int64, emit func(string)) (int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return offset, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return offset, fmt.Errorf("stat log file: %w", err)
	}
	if offset > info.Size() {
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return offset, fmt.Errorf("seek log file: %w", err)
	}
	read, err := scanLines(file, emit)
	if err != nil {
		return offset, err
	}
	return offset + read, nil
}

// scanLines calls fn for every newline-terminated line and returns the bytes
// consumed. A trailing partial line is left for the next read.
func scanLines(r io.Reader, fn func(string)) (int64, error) {
	reader := bufio.NewReaderSize(r, 64*1024)
	var consumed int64
	for {
		line, err := reader.ReadString('\n')
		if err == nil {
			consumed += int64(len(line))
			text := line[:len(line)-1]
			if n := len(text); n > 0 && text[n-1] == '\r' {
				text = text[:n-1]
			}
			if len(text) > maxLineBytes {
				text = text[:maxLineBytes]
			}
			fn(text)
			continue
		}
		if errors.Is(err, io.EOF) {
			return consumed, nil
		}
		return consumed, fmt.Errorf("read log file: %w", err)
	}
}
