package fs_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/egnees/mc-proto-sub000/address"
	"github.com/egnees/mc-proto-sub000/event"
	"github.com/egnees/mc-proto-sub000/fs"
	"github.com/egnees/mc-proto-sub000/runtime"
)

type noRecipients struct{}

func (noRecipients) HasProcess(address.Address) bool { return false }

type noDispatch struct{}

func (noDispatch) DeliverUdp(address.Address, address.Address, any) {}
func (noDispatch) DeliverLocal(address.Address, any)                {}

func makeCtx(owner address.Address) *runtime.Context {
	return &runtime.Context{Owner: owner}
}

// driveToQuiescence selects every currently-ready event in order, dispatching
// each one, until nothing remains pending — the disk's pipeline only ever
// has one request in flight, so this always makes forward progress.
func driveToQuiescence(mgr *event.Manager) {
	for mgr.ReadyCount() > 0 {
		ev := mgr.NextReady(0)
		mgr.HandleEventOutcome(ev)
	}
}

// TestFileCreateWriteRead exercises the scenario of creating a file, writing
// to it, and reading the written bytes back, driving the disk's single
// pending-request pipeline to completion at each stage.
func TestFileCreateWriteRead(t *testing.T) {
	rt := runtime.New()
	mgr := event.New(rt, noRecipients{}, noDispatch{}, makeCtx)
	proc := address.New("n1", "p1")
	disk := fs.New("n1", mgr, 5*time.Millisecond, 10*time.Millisecond, 1024)

	type outcome struct {
		writeN   int
		writeErr error
		readN    int
		readErr  error
		readBuf  []byte
	}

	var result outcome
	runtime.Spawn(rt, proc, func(ctx *runtime.Context) struct{} {
		require.NoError(t, disk.Create(proc, "f1"))

		f, err := disk.Open(proc, "f1")
		require.NoError(t, err)

		wn, werr := f.Write(ctx, []byte("hello"), 0)

		buf := make([]byte, 5)
		rn, rerr := f.Read(ctx, buf, 0)

		result = outcome{writeN: wn, writeErr: werr, readN: rn, readErr: rerr, readBuf: buf}
		return struct{}{}
	})

	rt.RunToFixedPoint(makeCtx)
	require.Equal(t, 1, mgr.ReadyCount(), "the write's FsEvent should be the only one pending")

	// HandleEventOutcome drains the runtime to a fixed point internally, so
	// a single pass here also carries the task through to its subsequent
	// read request and that request's own completion.
	driveToQuiescence(mgr)

	require.NoError(t, result.writeErr)
	require.Equal(t, 5, result.writeN)
	require.NoError(t, result.readErr)
	require.Equal(t, 5, result.readN)
	require.Equal(t, "hello", string(result.readBuf))
}

// TestDiskCapacityRejectsOversizedWrite checks that a write exceeding the
// disk's configured capacity fails with StorageLimitReached and never
// mutates file content; the rejection is still delivered through the
// disk's pipelined completion event.
func TestDiskCapacityRejectsOversizedWrite(t *testing.T) {
	rt := runtime.New()
	mgr := event.New(rt, noRecipients{}, noDispatch{}, makeCtx)
	proc := address.New("n1", "p1")
	disk := fs.New("n1", mgr, time.Millisecond, time.Millisecond, 4)

	require.NoError(t, disk.Create(proc, "f1"))
	f, err := disk.Open(proc, "f1")
	require.NoError(t, err)

	var writeErr error
	var size int
	runtime.Spawn(rt, proc, func(ctx *runtime.Context) struct{} {
		_, writeErr = f.Write(ctx, []byte("toolong"), 0)
		size, _ = f.Size()
		return struct{}{}
	})

	rt.RunToFixedPoint(makeCtx)
	driveToQuiescence(mgr)
	rt.RunToFixedPoint(makeCtx)

	var fsErr *fs.Error
	require.ErrorAs(t, writeErr, &fsErr)
	require.Equal(t, fs.StorageLimitReached, fsErr.Kind)
	require.Equal(t, 0, size)
}

// TestCrashDestroysFiles checks that crashing a node's filesystem drops its
// files and refuses further operations until raised.
func TestCrashDestroysFiles(t *testing.T) {
	rt := runtime.New()
	mgr := event.New(rt, noRecipients{}, noDispatch{}, makeCtx)
	proc := address.New("n1", "p1")
	disk := fs.New("n1", mgr, time.Millisecond, time.Millisecond, 1024)

	require.NoError(t, disk.Create(proc, "f1"))
	disk.Crash()

	require.False(t, disk.Available())
	err := disk.Create(proc, "f2")
	var fsErr *fs.Error
	require.ErrorAs(t, err, &fsErr)
	require.Equal(t, fs.StorageNotAvailable, fsErr.Kind)

	disk.Raise()
	require.True(t, disk.Available())
	_, err = disk.Open(proc, "f1")
	require.ErrorAs(t, err, &fsErr)
	require.Equal(t, fs.FileNotFound, fsErr.Kind, "crash must have destroyed f1's contents")
}
