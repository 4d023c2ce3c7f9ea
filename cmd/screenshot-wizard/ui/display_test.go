package ui

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{250 * time.Millisecond, "250ms"},
		{1500 * time.Millisecond, "2s"},
		{42 * time.Second, "42s"},
		{3*time.Minute + 5*time.Second, "3m 5s"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.in), tt.in.String())
	}
}

func TestTable(t *testing.T) {
	var buf bytes.Buffer
	restore := SetOutput(&buf, &buf)
	defer restore()

	Table([]string{"File", "Result"}, [][]string{{"a.png", "ok"}, {"long-name.pdf", "failed"}})

	assert.Equal(t, "File           Result\n----           ------\na.png          ok\nlong-name.pdf  failed\n", buf.String())
}

func TestMessagesWithoutColor(t *testing.T) {
	InitUI(true)
	var stdout, stderr bytes.Buffer
	restore := SetOutput(&stdout, &stderr)
	defer restore()

	Success("done %d", 1)
	Error("broke")

	assert.Equal(t, "✓ done 1\n", stdout.String())
	assert.Equal(t, "✗ broke\n", stderr.String())
}
