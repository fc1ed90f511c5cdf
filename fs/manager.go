// Package fs is a deterministic in-memory filesystem model: a
// single-in-flight-request disk pipeline, sparse file content, and a
// crash/shutdown/restart lifecycle, so the event manager and step generator
// have something real to schedule FsEvents against.
package fs

import (
	"time"

	"github.com/egnees/mc-proto-sub000/address"
	"github.com/egnees/mc-proto-sub000/event"
	"github.com/egnees/mc-proto-sub000/runtime"
)

// Manager owns one node's filesystem: its disk pipeline and the table of
// open files. The zero value is not usable; construct with [New].
type Manager struct {
	node      string
	sched     Scheduler
	disk      *Disk
	files     map[string]*content
	available bool
}

// New constructs a Manager for node, with a disk whose completion delay is
// drawn from [minDelay, maxDelay] and whose write capacity is capacity
// bytes.
func New(node string, sched Scheduler, minDelay, maxDelay time.Duration, capacity int) *Manager {
	return &Manager{
		node:      node,
		sched:     sched,
		disk:      newDisk(sched, minDelay, maxDelay, capacity),
		files:     make(map[string]*content),
		available: true,
	}
}

// Available reports whether the filesystem currently accepts operations
// (false after crash, until a subsequent restart calls [Manager.Raise]).
func (m *Manager) Available() bool { return m.available }

// Raise marks the filesystem available again after a node restart.
func (m *Manager) Raise() { m.available = true }

// Crash destroys the filesystem: every file and pending request is gone,
// and the manager refuses further operations until raised.
func (m *Manager) Crash() {
	m.disk.crash()
	m.files = make(map[string]*content)
	m.available = false
}

// Shutdown clears the pending request queue but preserves file contents;
// [Manager.Raise] restores availability without losing data.
func (m *Manager) Shutdown() {
	m.disk.shutdown()
	m.available = false
}

// Create makes an empty file, an instant (unscheduled) operation.
func (m *Manager) Create(proc address.Address, name string) error {
	m.sched.LogFileRequested(proc, event.FsCreate)
	var outcome error
	switch {
	case !m.available:
		outcome = &Error{Kind: StorageNotAvailable}
	case name == "":
		outcome = &Error{Kind: BadPath}
	default:
		if _, exists := m.files[name]; exists {
			outcome = &Error{Kind: FileAlreadyExists, File: name}
		} else {
			m.files[name] = &content{}
		}
	}
	m.sched.LogFileInstant(proc, event.FsCreate)
	return outcome
}

// Delete removes a file, an instant operation; its capacity is released
// back to the disk immediately.
func (m *Manager) Delete(proc address.Address, name string) error {
	m.sched.LogFileRequested(proc, event.FsDelete)
	var outcome error
	if !m.available {
		outcome = &Error{Kind: StorageNotAvailable}
	} else if c, exists := m.files[name]; exists {
		delete(m.files, name)
		m.disk.release(c.size())
	} else {
		outcome = &Error{Kind: FileNotFound, File: name}
	}
	m.sched.LogFileInstant(proc, event.FsDelete)
	return outcome
}

// Open resolves a file handle for proc, an instant operation.
func (m *Manager) Open(proc address.Address, name string) (*File, error) {
	m.sched.LogFileRequested(proc, event.FsOpen)
	var outcome error
	switch {
	case !m.available:
		outcome = &Error{Kind: StorageNotAvailable}
	default:
		if _, exists := m.files[name]; !exists {
			outcome = &Error{Kind: FileNotFound, File: name}
		}
	}
	m.sched.LogFileInstant(proc, event.FsOpen)
	if outcome != nil {
		return nil, outcome
	}
	return &File{mgr: m, proc: proc, name: name}, nil
}

// File is an open handle onto one of a Manager's files, scoped to the
// process that opened or created it.
type File struct {
	mgr  *Manager
	proc address.Address
	name string
}

// Name returns the file's path.
func (f *File) Name() string { return f.name }

// Size reports the file's current length, failing if the filesystem is
// unavailable or the file has since been deleted.
func (f *File) Size() (int, error) {
	if !f.mgr.available {
		return 0, &Error{Kind: StorageNotAvailable}
	}
	c, ok := f.mgr.files[f.name]
	if !ok {
		return 0, &Error{Kind: FileNotAvailable, File: f.name}
	}
	return c.size(), nil
}

// Read performs an asynchronous disk read at offset into buf, suspending
// the calling task until the scheduled completion event fires; it returns
// the number of bytes actually read (clamped to the readable residual).
// Must be called from within a task (ctx is the calling task's context).
func (f *File) Read(ctx *runtime.Context, buf []byte, offset int) (int, error) {
	if !f.mgr.available {
		return 0, &Error{Kind: StorageNotAvailable}
	}
	c, ok := f.mgr.files[f.name]
	if !ok {
		return 0, &Error{Kind: FileNotAvailable, File: f.name}
	}
	residual := c.size() - offset
	if residual < 0 {
		residual = 0
	}
	n := len(buf)
	if n > residual {
		n = residual
	}

	ev, err := f.submit(ctx, event.FsRead, nil)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		c.read(offset, buf[:n])
	}
	_ = ev
	return n, nil
}

// Write performs an asynchronous disk write of buf at offset, suspending
// the calling task until the scheduled completion event fires. Capacity is
// reserved synchronously at submission time; a write that would exceed the
// disk's configured capacity fails with StorageLimitReached without ever
// mutating file content.
func (f *File) Write(ctx *runtime.Context, buf []byte, offset int) (int, error) {
	if !f.mgr.available {
		return 0, &Error{Kind: StorageNotAvailable}
	}
	c, ok := f.mgr.files[f.name]
	if !ok {
		return 0, &Error{Kind: FileNotAvailable, File: f.name}
	}

	reserveErr := f.mgr.disk.reserve(len(buf))

	_, err := f.submit(ctx, event.FsWrite, reserveErr)
	if err != nil {
		return 0, err
	}
	c.write(offset, buf)
	return len(buf), nil
}

// submit drives one disk-pipelined request to completion: log Initiated,
// enqueue, await this request's turn, then await its scheduled outcome.
func (f *File) submit(ctx *runtime.Context, kind event.FsKind, outcome error) (event.FsEvent, error) {
	f.mgr.sched.LogFileInitiated(f.proc, kind)
	turnWaiter := f.mgr.disk.enqueue(f.proc, kind, outcome)
	t := runtime.Await[turn](ctx, turnWaiter)
	ev := runtime.Await[event.FsEvent](ctx, t.waiter)
	f.mgr.disk.completed()
	return ev, ev.Outcome
}
