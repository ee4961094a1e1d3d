package sessions

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
)

const readerBufferSize = 256 * 1024

// ScanJSONL calls onLine for every non-blank line of a .jsonl file until
// onLine returns false. Lines of any length are delivered whole; the slice
// is only valid for the duration of the call.
func ScanJSONL(path string, onLine func(line []byte) bool) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	reader := bufio.NewReaderSize(f, readerBufferSize)
	for {
		line, readErr := reader.ReadBytes('\n')
		if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
			if !onLine(trimmed) {
				return nil
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return nil
			}
			return fmt.Errorf("reading %s: %w", path, readErr)
		}
	}
}
