package loopback

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/danmuck/spi2wb/internal/testutil/testlog"
	"github.com/google/go-cmp/cmp"
)

func TestMirrorsAndRecordsFrames(t *testing.T) {
	testlog.Start(t)
	ctx := context.Background()
	tr := New()
	if _, err := tr.ExchangeByte(ctx, 0x01); !errors.Is(err, ErrNotSelected) {
		t.Fatalf("expected ErrNotSelected, got=%v", err)
	}

	if err := tr.Select(ctx); err != nil {
		t.Fatalf("select: %v", err)
	}
	for _, b := range []byte{0x82, 0xCA} {
		in, err := tr.ExchangeByte(ctx, b)
		if err != nil || in != b {
			t.Fatalf("exchange 0x%02X got=0x%02X err=%v", b, in, err)
		}
	}
	if err := tr.Delay(ctx, 100*time.Nanosecond); err != nil {
		t.Fatalf("delay: %v", err)
	}
	if err := tr.Deselect(ctx); err != nil {
		t.Fatalf("deselect: %v", err)
	}
	// a second deselect closes no frame
	_ = tr.Deselect(ctx)

	if diff := cmp.Diff([][]byte{{0x82, 0xCA}}, tr.Frames()); diff != "" {
		t.Fatalf("frames (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]time.Duration{100 * time.Nanosecond}, tr.Delays()); diff != "" {
		t.Fatalf("delays (-want +got):\n%s", diff)
	}
}

func TestHonorsCancelledContext(t *testing.T) {
	testlog.Start(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tr := New()
	if err := tr.Select(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("select got=%v", err)
	}
	if _, err := tr.ExchangeByte(ctx, 0x00); !errors.Is(err, context.Canceled) {
		t.Fatalf("exchange got=%v", err)
	}
}
