// Package tpool runs callbacks on a bounded pool of worker goroutines in
// response to four kinds of triggers, and guarantees that no callback runs
// against a trigger object once it has been closed.
//
// Trigger objects
//   - WorkItem: Post schedules one invocation; posting N times runs N invocations.
//   - TimerWorkItem: fires at a due time, optionally every period, with an
//     optional coalescing window.
//   - WaitWorkItem: fires once per ScheduleWait, when a Waitable is signaled or
//     the due time passes first. The callback receives WaitSignaled or WaitTimeout.
//   - IoHandler: delivers completions of operations issued against an IoHandle.
//     Every operation is announced with StartIo and the returned IoGuard is
//     resolved exactly once.
//
// Teardown
// Every trigger object has Join, which waits for dispatched callbacks, and
// Close, which stops new triggers, joins and releases the object exactly once.
// WorkItem, TimerWorkItem and WaitWorkItem add CancelAndJoin, which also drops
// dispatched invocations that have not started. WaitWorkItem.Join leaves a
// pending wait armed; CancelAndJoin and Close disarm it. ScopedJoin defers a
// single Join.
//
// Pools
// Without WithPool, trigger objects use DefaultPool, which is created on first
// use from the TPOOL_* environment and never closed. NewThreadPool creates an
// explicit pool with caller managed lifetime; it must outlive every trigger
// object bound to it.
//
// Callbacks
// A callback receives a CallbackInstance valid for that invocation only. It can
// register actions run after the callback returns (SetEventOnReturn,
// ReleaseSemaphoreOnReturn, ReleaseMutexOnReturn, FreeModuleOnReturn) and ask
// whether it may run long. Callback panics are recovered and reported to the
// pool's panic handler as errors wrapping ErrCallbackPanicked. Invocations of
// one trigger object may run concurrently, including successive firings of a
// periodic timer.
package tpool
