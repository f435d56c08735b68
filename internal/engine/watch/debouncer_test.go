package watch_test

import (
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/engine/watch"
)

type batchRecorder struct {
	mu      sync.Mutex
	batches [][]string
}

func (r *batchRecorder) record(paths []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, paths)
}

func (r *batchRecorder) get() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.batches
}

func TestDebouncer_Add_SinglePath(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		rec := &batchRecorder{}
		d := watch.NewDebouncer(100*time.Millisecond, rec.record)

		d.Add("/project/src/site.less")
		assert.Equal(t, 1, d.Pending())

		time.Sleep(150 * time.Millisecond)
		synctest.Wait()

		require.Len(t, rec.get(), 1)
		assert.Equal(t, []string{"/project/src/site.less"}, rec.get()[0])
		assert.Zero(t, d.Pending())
	})
}

func TestDebouncer_Add_CoalescesInOrder(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		rec := &batchRecorder{}
		d := watch.NewDebouncer(100*time.Millisecond, rec.record)

		d.Add("/project/src/b.less")
		time.Sleep(60 * time.Millisecond)
		d.Add("/project/src/a.less")
		time.Sleep(60 * time.Millisecond)
		d.Add("/project/src/b.less")

		// 120ms after the first add, the window restarted twice.
		synctest.Wait()
		assert.Empty(t, rec.get())

		time.Sleep(150 * time.Millisecond)
		synctest.Wait()

		require.Len(t, rec.get(), 1)
		assert.Equal(t, []string{"/project/src/b.less", "/project/src/a.less"}, rec.get()[0])
	})
}

func TestDebouncer_SeparateWindows(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		rec := &batchRecorder{}
		d := watch.NewDebouncer(50*time.Millisecond, rec.record)

		d.Add("/project/a.js")
		time.Sleep(100 * time.Millisecond)
		d.Add("/project/b.js")
		time.Sleep(100 * time.Millisecond)
		synctest.Wait()

		assert.Equal(t, [][]string{{"/project/a.js"}, {"/project/b.js"}}, rec.get())
	})
}

func TestDebouncer_StaleExpiryDoesNotFlush(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		rec := &batchRecorder{}
		d := watch.NewDebouncer(100*time.Millisecond, rec.record)

		d.Add("/project/src/a.less")
		first := d.Window()
		d.Add("/project/src/b.less")

		// The first window's timer lost the race with the second Add.
		d.Expire(first)
		assert.Empty(t, rec.get())
		assert.Equal(t, 2, d.Pending())

		time.Sleep(50 * time.Millisecond)
		synctest.Wait()
		assert.Empty(t, rec.get(), "flushed before the restarted window expired")

		time.Sleep(100 * time.Millisecond)
		synctest.Wait()
		assert.Equal(t, [][]string{{"/project/src/a.less", "/project/src/b.less"}}, rec.get())
	})
}

func TestDebouncer_ExpiryAfterStop(t *testing.T) {
	rec := &batchRecorder{}
	d := watch.NewDebouncer(time.Hour, rec.record)

	d.Add("/project/src/a.less")
	gen := d.Window()
	d.Stop()
	d.Expire(gen)

	assert.Empty(t, rec.get())
}

func TestDebouncer_Stop(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		rec := &batchRecorder{}
		d := watch.NewDebouncer(100*time.Millisecond, rec.record)

		d.Add("/project/src/site.less")
		d.Stop()

		time.Sleep(200 * time.Millisecond)
		synctest.Wait()

		assert.Empty(t, rec.get())
		assert.Zero(t, d.Pending())
	})
}

func TestDebouncer_NilCallback(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		d := watch.NewDebouncer(10*time.Millisecond, nil)
		d.Add("/project/src/site.less")

		assert.NotPanics(t, func() {
			time.Sleep(20 * time.Millisecond)
			synctest.Wait()
		})
	})
}
