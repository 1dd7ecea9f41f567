package course

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// pollerHarness swaps the course out from under the poller the way a
// builder session does.
type pollerHarness struct {
	mu  sync.Mutex
	crs *Course

	refreshes int32
	inFlight  int32
	overlaps  int32
	block     time.Duration
}

func (h *pollerHarness) course() *Course {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.crs
}

func (h *pollerHarness) setCourse(crs *Course) {
	h.mu.Lock()
	h.crs = crs
	h.mu.Unlock()
}

func (h *pollerHarness) refresh(context.Context) error {
	if atomic.AddInt32(&h.inFlight, 1) > 1 {
		atomic.AddInt32(&h.overlaps, 1)
	}
	if h.block > 0 {
		time.Sleep(h.block)
	}
	atomic.AddInt32(&h.inFlight, -1)
	atomic.AddInt32(&h.refreshes, 1)
	return nil
}

func (h *pollerHarness) refreshCount() int32 {
	return atomic.LoadInt32(&h.refreshes)
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func Test_Poller_startsAndStopsOnVideoState(t *testing.T) {
	h := &pollerHarness{crs: courseWithVideos(StatusDraft, VideoProcessing)}
	p := NewPoller(h.course, h.refresh, 5*time.Millisecond)
	defer p.Stop()

	p.Update()
	if !p.Active() {
		t.Fatal("poller not active with a processing video")
	}

	waitFor(t, time.Second, func() bool { return h.refreshCount() > 0 })

	// transcoding done; the loop must wind itself down
	h.setCourse(courseWithVideos(StatusDraft, VideoReady))
	waitFor(t, time.Second, func() bool { return !p.Active() })

	count := h.refreshCount()
	time.Sleep(30 * time.Millisecond)
	if got := h.refreshCount(); got != count {
		t.Errorf("refresh count moved after stop: %d -> %d", count, got)
	}
}

func Test_Poller_noStartWithoutInProgressVideo(t *testing.T) {
	h := &pollerHarness{crs: courseWithVideos(StatusDraft, VideoReady)}
	p := NewPoller(h.course, h.refresh, 5*time.Millisecond)
	defer p.Stop()

	p.Update()
	if p.Active() {
		t.Error("poller active without an in-progress video")
	}

	h.setCourse(nil)
	p.Update()
	if p.Active() {
		t.Error("poller active with a nil course")
	}
}

func Test_Poller_updateDoesNotRestartRunningLoop(t *testing.T) {
	h := &pollerHarness{crs: courseWithVideos(StatusDraft, VideoProcessing)}
	p := NewPoller(h.course, h.refresh, 30*time.Millisecond)
	defer p.Stop()

	p.Update()
	// a burst of unrelated updates must not reset the pending timer
	for i := 0; i < 10; i++ {
		time.Sleep(2 * time.Millisecond)
		p.Update()
	}
	waitFor(t, time.Second, func() bool { return h.refreshCount() > 0 })
}

func Test_Poller_stop(t *testing.T) {
	h := &pollerHarness{crs: courseWithVideos(StatusDraft, VideoProcessing)}
	p := NewPoller(h.course, h.refresh, 5*time.Millisecond)

	p.Update()
	p.Stop()
	if p.Active() {
		t.Error("poller active after Stop")
	}

	count := h.refreshCount()
	time.Sleep(30 * time.Millisecond)
	if got := h.refreshCount(); got != count {
		t.Errorf("refresh count moved after Stop: %d -> %d", count, got)
	}

	// a stopped poller stays stopped
	p.Update()
	if p.Active() {
		t.Error("poller restarted after Stop")
	}
}

func Test_Poller_setEnabled(t *testing.T) {
	h := &pollerHarness{crs: courseWithVideos(StatusDraft, VideoProcessing)}
	p := NewPoller(h.course, h.refresh, 5*time.Millisecond)
	defer p.Stop()

	p.SetEnabled(false)
	p.Update()
	if p.Active() {
		t.Error("poller active while disabled")
	}

	p.SetEnabled(true)
	if !p.Active() {
		t.Error("poller not re-evaluated on enable")
	}
	waitFor(t, time.Second, func() bool { return h.refreshCount() > 0 })
}

func Test_Poller_noOverlappingRefreshes(t *testing.T) {
	h := &pollerHarness{
		crs:   courseWithVideos(StatusDraft, VideoProcessing),
		block: 20 * time.Millisecond,
	}
	p := NewPoller(h.course, h.refresh, 5*time.Millisecond)
	defer p.Stop()

	p.Update()
	waitFor(t, 2*time.Second, func() bool { return h.refreshCount() >= 3 })

	if got := atomic.LoadInt32(&h.overlaps); got != 0 {
		t.Errorf("overlapping refreshes = %d, want 0", got)
	}
}
