package nfc

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "satnam/pkg/domain-errors"
)

func TestParseUID(t *testing.T) {
	for _, in := range []string{"04A22B1A", "04:a2:2b:1a", "04 A2 2B 1A 5C 80 01"} {
		uid, err := ParseUID(in)
		require.NoError(t, err, in)
		assert.Equal(t, byte(0x04), uid[0])
	}
	for _, in := range []string{"zz", "04A2", "04A22B1A5C"} {
		_, err := ParseUID(in)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeDevice), in)
	}
}

func TestWedgeSkipsBlankLines(t *testing.T) {
	w := NewWedge(NewReaderSource(strings.NewReader("\n  \n04:A2:2B:1A\n")), nil)
	uid, err := w.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte{0x04, 0xa2, 0x2b, 0x1a}, uid)
}

func TestWedgeClosedInput(t *testing.T) {
	w := NewWedge(NewReaderSource(strings.NewReader("")), nil)
	_, err := w.Scan(context.Background())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeDevice))
}

func TestWedgeHonoursDeadline(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	w := NewWedge(NewReaderSource(pr), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := w.Scan(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestReaderSourceSharedBetweenCallers(t *testing.T) {
	src := NewReaderSource(strings.NewReader("yes\n04A22B1A\n"))
	line, err := src.NextLine(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "yes", line)

	uid, err := NewWedge(src, nil).Scan(context.Background())
	require.NoError(t, err)
	assert.Len(t, uid, 4)
}

func TestAbandonedReadGoesToNextCaller(t *testing.T) {
	pr, pw := io.Pipe()
	src := NewReaderSource(pr)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := src.NextLine(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, src.Busy())

	go func() { _, _ = pw.Write([]byte("retry\n")) }()
	line, err := src.NextLine(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "retry", line)
	assert.False(t, src.Busy())
}
