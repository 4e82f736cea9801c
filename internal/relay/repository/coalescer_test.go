package repository

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// flushRecorder 收集每次 flush 拿到的 dirty 集合
type flushRecorder struct {
	mu      sync.Mutex
	flushes [][]string
}

func (r *flushRecorder) flush(dirty []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flushes = append(r.flushes, dirty)
}

func (r *flushRecorder) snapshot() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]string, len(r.flushes))
	copy(out, r.flushes)
	return out
}

// 測試同一窗口內的髒標記折成一次 flush
func TestCoalescer_FoldsWindow(t *testing.T) {
	rec := &flushRecorder{}
	c := NewCoalescer(30*time.Millisecond, rec.flush)

	c.Dirty("r-b")
	c.Dirty("r-a")
	c.Dirty("r-b") // 重複標記不加東西

	assert.Eventually(t, func() bool {
		return len(rec.snapshot()) == 1
	}, time.Second, 5*time.Millisecond)

	got := rec.snapshot()
	assert.Equal(t, []string{"r-a", "r-b"}, got[0]) // 排序後交給 flush
}

// 測試 flush 後窗口重新打開
func TestCoalescer_ReopensWindow(t *testing.T) {
	rec := &flushRecorder{}
	c := NewCoalescer(20*time.Millisecond, rec.flush)

	c.Dirty("r-1")
	assert.Eventually(t, func() bool {
		return len(rec.snapshot()) == 1
	}, time.Second, 5*time.Millisecond)

	c.Dirty("r-2")
	assert.Eventually(t, func() bool {
		return len(rec.snapshot()) == 2
	}, time.Second, 5*time.Millisecond)

	got := rec.snapshot()
	assert.Equal(t, []string{"r-1"}, got[0])
	assert.Equal(t, []string{"r-2"}, got[1])
}

// 測試 FlushNow 同步落盤，乾淨時是 no-op
func TestCoalescer_FlushNow(t *testing.T) {
	rec := &flushRecorder{}
	c := NewCoalescer(time.Hour, rec.flush) // 窗口長到不會自己觸發

	c.Dirty("r-1")
	c.FlushNow()
	assert.Equal(t, [][]string{{"r-1"}}, rec.snapshot())

	// 沒新的髒標記就不再呼叫 flush
	c.FlushNow()
	assert.Len(t, rec.snapshot(), 1)
}

// 測試 flush 進行中落下的髒標記折進下一個窗口
func TestCoalescer_DirtyDuringFlush(t *testing.T) {
	rec := &flushRecorder{}
	var c *Coalescer
	var once sync.Once

	c = NewCoalescer(20*time.Millisecond, func(dirty []string) {
		rec.flush(dirty)
		once.Do(func() {
			c.Dirty("r-late") // flush 在鎖外跑，重入不會死鎖
		})
	})

	c.Dirty("r-early")

	assert.Eventually(t, func() bool {
		return len(rec.snapshot()) == 2
	}, time.Second, 5*time.Millisecond)

	got := rec.snapshot()
	assert.Equal(t, []string{"r-early"}, got[0])
	assert.Equal(t, []string{"r-late"}, got[1])
}
