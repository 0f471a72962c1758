package main

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ygrebnov/tpool"
	"github.com/ygrebnov/tpool/aio"
	"github.com/ygrebnov/tpool/rundown"
)

type scenario func(ctx context.Context, tp *tpool.ThreadPool, cfg config, log *logrus.Entry) error

var scenarios = map[string]scenario{
	"submit": submitScenario,
	"post":   postScenario,
	"timer":  timerScenario,
	"wait":   waitScenario,
	"io":     ioScenario,
}

func submitScenario(_ context.Context, tp *tpool.ThreadPool, _ config, log *logrus.Entry) error {
	const n = 10000
	rd := rundown.New()
	var ran atomic.Int64
	for i := 0; i < n; i++ {
		if !rd.Acquire() {
			return fmt.Errorf("rundown acquire failed at %d", i)
		}
		err := tp.SubmitWork(func(*tpool.CallbackInstance) {
			defer rd.Release()
			ran.Add(1)
		})
		if err != nil {
			rd.Release()
			return err
		}
	}
	rd.Wait()
	log.Debugf("%d submitted callbacks ran", ran.Load())
	if ran.Load() != n {
		return fmt.Errorf("ran %d of %d submitted callbacks", ran.Load(), n)
	}
	return nil
}

func postScenario(_ context.Context, tp *tpool.ThreadPool, _ config, _ *logrus.Entry) error {
	const n = 100
	var ran atomic.Int64
	items := make([]*tpool.WorkItem, 0, n)
	for i := 0; i < n; i++ {
		w, err := tp.NewWorkItem(func(*tpool.CallbackInstance) { ran.Add(1) })
		if err != nil {
			return err
		}
		items = append(items, w)
	}
	for _, w := range items {
		if err := w.Post(); err != nil {
			return err
		}
		if err := w.Post(); err != nil {
			return err
		}
	}
	for _, w := range items {
		w.Close()
	}
	if ran.Load() != 2*n {
		return fmt.Errorf("ran %d of %d posted callbacks", ran.Load(), 2*n)
	}
	return nil
}

func timerScenario(ctx context.Context, tp *tpool.ThreadPool, cfg config, log *logrus.Entry) error {
	const n = 200
	var fired atomic.Int64
	timers := make([]*tpool.TimerWorkItem, 0, n)
	defer func() {
		for _, t := range timers {
			t.Close()
		}
	}()
	for i := 0; i < n; i++ {
		t, err := tp.Schedule(func(*tpool.CallbackInstance) { fired.Add(1) },
			tpool.After(time.Second), 500*time.Millisecond, 15*time.Millisecond)
		if err != nil {
			return err
		}
		timers = append(timers, t)
	}

	select {
	case <-time.After(cfg.TimerWindow):
	case <-ctx.Done():
		return ctx.Err()
	}
	for _, t := range timers {
		t.Join()
	}
	log.Debugf("%d timer firings", fired.Load())
	if fired.Load() <= n {
		return fmt.Errorf("timers fired %d times, want more than %d", fired.Load(), n)
	}
	return nil
}

func waitScenario(ctx context.Context, tp *tpool.ThreadPool, _ config, _ *logrus.Entry) error {
	const n = 200
	ev := tpool.NewEvent(false, true)
	var signaled, timedOut atomic.Int64
	for i := 0; i < n; i++ {
		done := tpool.NewEvent(true, false)
		w, err := tp.ScheduleWait(func(ci *tpool.CallbackInstance, r tpool.WaitResult) {
			if r == tpool.WaitSignaled {
				signaled.Add(1)
			} else {
				timedOut.Add(1)
			}
			ci.SetEventOnReturn(done)
		}, ev, tpool.After(5*time.Second))
		if err != nil {
			return err
		}
		if err := done.Wait(ctx); err != nil {
			w.Close()
			return err
		}
		w.Close()
		ev.Set()
	}
	if signaled.Load() != n || timedOut.Load() != 0 {
		return fmt.Errorf("waits: %d signaled, %d timed out", signaled.Load(), timedOut.Load())
	}
	return nil
}

func ioScenario(_ context.Context, tp *tpool.ThreadPool, cfg config, log *logrus.Entry) error {
	f, err := os.CreateTemp(cfg.Dir, "tpstress-*.bin")
	if err != nil {
		return err
	}
	name := f.Name()
	defer os.Remove(name)
	file := aio.New(f)

	var completed, failed, bytes atomic.Int64
	h, err := tp.NewIoHandler(file, func(_ *tpool.CallbackInstance, _ any, status error, n int) {
		if status != nil {
			failed.Add(1)
			return
		}
		completed.Add(1)
		bytes.Add(int64(n))
	})
	if err != nil {
		_ = file.Close()
		return err
	}

	buf := make([]byte, cfg.IoSize)
	for i := 0; i < cfg.IoOps; i++ {
		g, err := h.StartIo()
		if err != nil {
			break
		}
		res, err := file.WriteAt(buf, int64(i)*int64(cfg.IoSize), i)
		g.Resolve(res)
		if err != nil {
			log.WithError(err).Warn("Write was not issued")
		}
	}
	h.Close()
	if err := file.Close(); err != nil {
		return err
	}

	want := int64(cfg.IoOps) * int64(cfg.IoSize)
	if completed.Load() != int64(cfg.IoOps) || bytes.Load() != want {
		return fmt.Errorf("io: %d completed, %d failed, %d bytes, want %d bytes",
			completed.Load(), failed.Load(), bytes.Load(), want)
	}
	return nil
}
