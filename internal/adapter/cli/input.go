package cli

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync"
)

// lineReader is the only reader of the input; the prompt, browse and watch loops receive from it.
type lineReader struct {
	scanner *bufio.Scanner
	once    sync.Once
	lines   chan string
	err     error
}

func newLineReader(in io.Reader) *lineReader {
	return &lineReader{scanner: bufio.NewScanner(in), lines: make(chan string)}
}

func (r *lineReader) start() {
	r.once.Do(func() {
		go func() {
			defer close(r.lines)
			for r.scanner.Scan() {
				r.lines <- strings.TrimSpace(r.scanner.Text())
			}
			r.err = r.scanner.Err()
		}()
	})
}

// Lines is the shared stream; it is closed at end of input.
func (r *lineReader) Lines() <-chan string {
	r.start()
	return r.lines
}

// Next waits for a line. ok is false at end of input or when ctx is done.
func (r *lineReader) Next(ctx context.Context) (line string, ok bool) {
	select {
	case line, ok = <-r.Lines():
		return line, ok
	case <-ctx.Done():
		return "", false
	}
}

// Err is the scanner error once Lines is closed.
func (r *lineReader) Err() error {
	return r.err
}
