// Package nfc reads card UIDs from a keyboard-wedge NFC reader, which types
// each UID as a hex line into the coordinator's terminal.
package nfc

import (
	"bufio"
	"context"
	"encoding/hex"
	"io"
	"log/slog"
	"strings"
	"sync"

	dErrors "satnam/pkg/domain-errors"
)

// LineSource yields input lines. NextLine must honour ctx.
type LineSource interface {
	NextLine(ctx context.Context) (string, error)
}

// ReaderSource turns an io.Reader into a LineSource shared by prompts and
// card scans. Lines are read on demand; a read abandoned by a cancelled
// caller stays outstanding and its line goes to the next caller.
type ReaderSource struct {
	br      *bufio.Reader
	mu      sync.Mutex
	pending chan readResult
}

type readResult struct {
	line string
	err  error
}

func NewReaderSource(r io.Reader) *ReaderSource {
	return &ReaderSource{br: bufio.NewReader(r)}
}

func (s *ReaderSource) NextLine(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.pending == nil {
		ch := make(chan readResult, 1)
		s.pending = ch
		go func() {
			line, err := s.br.ReadString('\n')
			if err == io.EOF && line != "" {
				err = nil
			}
			ch <- readResult{line: strings.TrimRight(line, "\r\n"), err: err}
		}()
	}
	ch := s.pending
	s.mu.Unlock()

	select {
	case res := <-ch:
		s.mu.Lock()
		s.pending = nil
		s.mu.Unlock()
		return res.line, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Busy reports whether a read is outstanding. Callers that read the
// terminal directly, such as password prompts, must drain it first.
func (s *ReaderSource) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending != nil
}

// Wedge implements card.Scanner over a LineSource.
type Wedge struct {
	src    LineSource
	logger *slog.Logger
}

func NewWedge(src LineSource, logger *slog.Logger) *Wedge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Wedge{src: src, logger: logger}
}

// Scan waits for the next non-blank line and decodes it as a UID. Reader
// formats such as "04:A2:2B:1A" and "04 a2 2b 1a" are accepted.
func (w *Wedge) Scan(ctx context.Context) ([]byte, error) {
	for {
		line, err := w.src.NextLine(ctx)
		if err != nil {
			if err == io.EOF {
				return nil, dErrors.New(dErrors.CodeDevice, "card reader input closed")
			}
			return nil, err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		uid, err := ParseUID(line)
		if err != nil {
			w.logger.WarnContext(ctx, "ignoring unreadable card input", "length", len(line))
			return nil, err
		}
		return uid, nil
	}
}

// ParseUID decodes a 4, 7 or 10 byte ISO 14443 UID.
func ParseUID(s string) ([]byte, error) {
	cleaned := strings.NewReplacer(":", "", " ", "", "-", "").Replace(strings.TrimSpace(s))
	uid, err := hex.DecodeString(cleaned)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeDevice, "card reader sent a non-hex UID")
	}
	switch len(uid) {
	case 4, 7, 10:
		return uid, nil
	}
	return nil, dErrors.New(dErrors.CodeDevice, "card UID must be 4, 7 or 10 bytes")
}
