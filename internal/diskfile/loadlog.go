package diskfile

import (
	"bufio"
	"io"
	"os"

	"github.com/icza/backscanner"
)

// LoadLog is an append-only text log of "key=<k> rid=(<pageNo>, <slot>)"
// lines, written by the bulk-load CLI subcommand as it inserts tuples
// into a B+Tree index. It exists purely as an operator-facing audit
// trail; the index itself never reads it back.
type LoadLog struct {
	f *os.File
}

// OpenLoadLog opens (creating if necessary) a LoadLog at path for
// appending.
func OpenLoadLog(path string) (*LoadLog, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	return &LoadLog{f: f}, nil
}

// Append writes a single line to the log.
func (l *LoadLog) Append(line string) error {
	_, err := l.f.WriteString(line + "\n")
	return err
}

// Close closes the log file.
func (l *LoadLog) Close() error {
	return l.f.Close()
}

// TailLines returns up to n of the most recently appended lines, read
// backwards from the end of the file so that reporting the tail of a
// large bulk load doesn't require scanning it forward from the start.
func TailLines(path string, n int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	scanner := backscanner.New(f, int(info.Size()))
	lines := make([]string, 0, n)
	trailing := true
	for len(lines) < n {
		line, _, err := scanner.Line()
		if err != nil {
			if err == io.EOF || err == bufio.ErrBufferFull {
				break
			}
			return nil, err
		}
		// Append ends every line with "\n", so the first line read
		// backwards is the empty remainder after that final newline.
		if trailing {
			trailing = false
			if line == "" {
				continue
			}
		}
		lines = append(lines, line)
	}
	// Reverse into forward chronological order.
	for i, j := 0, len(lines)-1; i < j; i, j = i+1, j-1 {
		lines[i], lines[j] = lines[j], lines[i]
	}
	return lines, nil
}
