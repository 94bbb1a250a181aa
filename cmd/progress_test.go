package cmd

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"
)

// syncBuffer guards a bytes.Buffer shared with the printer goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestProgressPrinterLifecycle(t *testing.T) {
	out := &syncBuffer{}
	printer := newProgressPrinter(out, 0, "scan")
	if printer.total != 1 {
		t.Fatalf("expected total to be clamped to 1, got %d", printer.total)
	}

	printer.Start()
	printer.Increment(false, false, 500*time.Millisecond)
	printer.Increment(false, true, time.Second)
	printer.Increment(true, false, 1500*time.Millisecond)
	time.Sleep(350 * time.Millisecond) // allow ticker to tick at least once
	printer.Stop()

	output := out.String()
	if !strings.Contains(output, "Progress: 3/3") {
		t.Fatalf("expected summary progress, got %q", output)
	}
	if !strings.Contains(output, "OK:1") || !strings.Contains(output, "Partial:1") || !strings.Contains(output, "Fail:1") {
		t.Fatalf("expected OK/Partial/Fail counts in output, got %q", output)
	}
	if !strings.Contains(output, "Avg:1.00s") {
		t.Fatalf("expected average duration in output, got %q", output)
	}
}
