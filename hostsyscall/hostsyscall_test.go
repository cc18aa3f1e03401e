package hostsyscall

import (
	"bytes"
	"strings"
	"testing"
)

type fakeRegs struct {
	args      [4]uint32
	ret       uint32
	exceptET  uint32
	exceptED  uint32
	exceptHit bool
}

func (r *fakeRegs) Arg(n int) uint32  { return r.args[n] }
func (r *fakeRegs) SetReturn(v uint32) { r.ret = v }
func (r *fakeRegs) RaiseException(et, ed uint32) {
	r.exceptHit = true
	r.exceptET, r.exceptED = et, ed
}

type fakeMem struct{ mem map[uint32]byte }

func newFakeMem() *fakeMem { return &fakeMem{mem: map[uint32]byte{}} }

func (m *fakeMem) ReadBytes(addr uint32, n int) []byte {
	b := make([]byte, n)
	for i := 0; i < n; i++ {
		b[i] = m.mem[addr+uint32(i)]
	}
	return b
}

func (m *fakeMem) WriteBytes(addr uint32, data []byte) {
	for i, b := range data {
		m.mem[addr+uint32(i)] = b
	}
}

func (m *fakeMem) writeCString(addr uint32, s string) {
	m.WriteBytes(addr, append([]byte(s), 0))
}

func TestExitReturnsStatus(t *testing.T) {
	d := NewDispatcher(&FileSystem{})
	regs := &fakeRegs{args: [4]uint32{uint32(SysExit), 42}}
	req, err := d.Dispatch(SysExit, regs, newFakeMem())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req == nil || req.Status != 42 {
		t.Fatalf("ExitRequest = %+v, want Status=42", req)
	}
}

func TestDoneIsNotExit(t *testing.T) {
	d := NewDispatcher(&FileSystem{})
	req, err := d.Dispatch(SysDone, &fakeRegs{}, newFakeMem())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req == nil || !req.IsDone {
		t.Fatalf("ExitRequest = %+v, want IsDone", req)
	}
}

func TestPrintCharWritesStdout(t *testing.T) {
	var out bytes.Buffer
	d := NewDispatcher(&FileSystem{Stdout: nopReadWriter{&out}})
	regs := &fakeRegs{args: [4]uint32{uint32(SysPrintChar), 'H'}}
	if _, err := d.Dispatch(SysPrintChar, regs, newFakeMem()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.String() != "H" {
		t.Errorf("stdout = %q, want %q", out.String(), "H")
	}
}

func TestWriteToStdoutFD(t *testing.T) {
	var out bytes.Buffer
	mem := newFakeMem()
	mem.WriteBytes(0x100, []byte("Hi"))
	d := NewDispatcher(&FileSystem{Stdout: nopReadWriter{&out}})
	regs := &fakeRegs{args: [4]uint32{uint32(SysWrite), 1, 0x100, 2}}
	if _, err := d.Dispatch(SysWrite, regs, mem); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.String() != "Hi" {
		t.Errorf("stdout = %q, want %q", out.String(), "Hi")
	}
	if regs.ret != 2 {
		t.Errorf("return = %d, want 2 (bytes written)", regs.ret)
	}
}

func TestOpenCloseAllocatesAndFreesSlot(t *testing.T) {
	opened := map[string]bool{}
	fs := &FileSystem{
		Open: func(path string, flags, mode int) (int, error) {
			opened[path] = true
			return 99, nil
		},
		Close: func(fd int) error { return nil },
	}
	d := NewDispatcher(fs)
	mem := newFakeMem()
	mem.writeCString(0x10, "/tmp/foo")

	regs := &fakeRegs{args: [4]uint32{uint32(SysOpen), 0x10, ORdOnly, 0}}
	if _, err := d.Dispatch(SysOpen, regs, mem); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if regs.ret < NumStdDescriptors {
		t.Fatalf("open returned fd %d, want >= %d", regs.ret, NumStdDescriptors)
	}
	if !opened["/tmp/foo"] {
		t.Errorf("Open was not called with the decoded path")
	}

	closeRegs := &fakeRegs{args: [4]uint32{uint32(SysClose), regs.ret}}
	if _, err := d.Dispatch(SysClose, closeRegs, mem); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if closeRegs.ret != 0 {
		t.Errorf("close return = %d, want 0", closeRegs.ret)
	}
}

func TestExceptionSelectorRaisesOnThread(t *testing.T) {
	d := NewDispatcher(&FileSystem{})
	regs := &fakeRegs{args: [4]uint32{uint32(SysException), 7, 0xAB}}
	if _, err := d.Dispatch(SysException, regs, newFakeMem()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !regs.exceptHit || regs.exceptET != 7 || regs.exceptED != 0xAB {
		t.Errorf("RaiseException not forwarded correctly: %+v", regs)
	}
}

func TestSystemSelectorIsRefused(t *testing.T) {
	d := NewDispatcher(&FileSystem{})
	regs := &fakeRegs{args: [4]uint32{uint32(SysSystem)}}
	if _, err := d.Dispatch(SysSystem, regs, newFakeMem()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if int32(regs.ret) != -1 {
		t.Errorf("SYSTEM should return -1 without executing anything, got %d", int32(regs.ret))
	}
}

func TestIsSimulationReturnsOne(t *testing.T) {
	d := NewDispatcher(&FileSystem{})
	regs := &fakeRegs{}
	if _, err := d.Dispatch(SysIsSim, regs, newFakeMem()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if regs.ret != 1 {
		t.Errorf("IS_SIMULATION = %d, want 1", regs.ret)
	}
}

func TestUnknownSelectorErrors(t *testing.T) {
	d := NewDispatcher(&FileSystem{})
	if _, err := d.Dispatch(Selector(999), &fakeRegs{}, newFakeMem()); err == nil {
		t.Fatalf("expected an error for an unknown selector")
	} else if !strings.Contains(err.Error(), "unknown selector") {
		t.Errorf("error = %v, want it to mention the unknown selector", err)
	}
}

// nopReadWriter adapts a bytes.Buffer (Write-only use in these tests) to
// io.ReadWriter without pulling in a real file.
type nopReadWriter struct{ *bytes.Buffer }

func (nopReadWriter) Read(p []byte) (int, error) { return 0, nil }
