package timing

import (
	"context"
	"sync"
	"testing"
	"time"

	"screencrop/internal/logger"
)

func TestTracker_StartEnd(t *testing.T) {
	rec := logger.NewRecorder()
	tr := NewTracker(rec)

	ctx := tr.StartTiming(context.Background(), "decode")
	time.Sleep(2 * time.Millisecond)
	d := tr.EndTiming(ctx)

	if d < 2*time.Millisecond {
		t.Errorf("EndTiming() = %v, want >= 2ms", d)
	}
	stats := tr.Summary()
	if len(stats) != 1 || stats[0].Operation != "decode" || stats[0].Count != 1 || stats[0].Total != d {
		t.Errorf("Summary() = %+v, want one decode of %v", stats, d)
	}
	if entries := rec.AtLevel(logger.DebugLevel); len(entries) != 1 || entries[0].Fields["operation"] != "decode" {
		t.Errorf("debug entries = %+v, want one for decode", entries)
	}
}

func TestTracker_IgnoresForeignContext(t *testing.T) {
	tr := NewTracker(nil)

	if d := tr.EndTiming(context.Background()); d != 0 {
		t.Errorf("EndTiming(background) = %v, want 0", d)
	}
	if d := tr.EndTiming(nil); d != 0 {
		t.Errorf("EndTiming(nil) = %v, want 0", d)
	}
	if len(tr.Summary()) != 0 {
		t.Error("foreign context was recorded")
	}
}

func TestTracker_Summary(t *testing.T) {
	tr := NewTracker(nil)

	var crops []time.Duration
	for _, pause := range []time.Duration{time.Millisecond, 3 * time.Millisecond} {
		ctx := tr.StartTiming(context.Background(), "crop")
		time.Sleep(pause)
		crops = append(crops, tr.EndTiming(ctx))
	}
	tr.EndTiming(tr.StartTiming(context.Background(), "decode"))

	stats := tr.Summary()
	if len(stats) != 2 {
		t.Fatalf("Summary() len = %d, want 2", len(stats))
	}

	crop := stats[0]
	if crop.Operation != "crop" || crop.Count != 2 {
		t.Fatalf("stats[0] = %+v, want crop x2", crop)
	}
	total := crops[0] + crops[1]
	max := crops[0]
	if crops[1] > max {
		max = crops[1]
	}
	if crop.Total != total || crop.Max != max || crop.Average != total/2 {
		t.Errorf("crop stat = %+v, want total %v max %v", crop, total, max)
	}
	if stats[1].Operation != "decode" || stats[1].Count != 1 {
		t.Errorf("stats[1] = %+v, want decode x1", stats[1])
	}
}

func TestTracker_ConcurrentSpans(t *testing.T) {
	tr := NewTracker(nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.EndTiming(tr.StartTiming(context.Background(), "save_image"))
		}()
	}
	wg.Wait()

	stats := tr.Summary()
	if len(stats) != 1 || stats[0].Count != 8 {
		t.Errorf("Summary() = %+v, want 8 save_image spans", stats)
	}
}
