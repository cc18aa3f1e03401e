// Package hostsyscall implements the breakpoint-triggered host syscall
// ABI (§6): the selector table pre-loaded firmware uses via a SYSCALL
// breakpoint to talk to the host (console I/O, file access, process
// exit), dispatched against an injected FileSystem collaborator rather
// than os.File directly so tests can substitute an in-memory one.
//
// Grounded on _examples/original_source/SyscallHandler.cpp for the
// selector table and the O_*/SEEK_*/I* flag-bit mappings; the FileSystem
// shape (stdio streams plus injectable functions) is this repo's own, matching
// the teacher's preference (functionality_test.go's flatMemory) for a
// small concrete struct implementing a narrow interface over a test
// harness's own store.
package hostsyscall

import (
	"io"

	"github.com/pkg/errors"
)

// Selector identifies one host syscall, carried in R0 at the breakpoint.
type Selector uint32

const (
	SysExit      Selector = 0
	SysPrintChar Selector = 1
	SysPrintInt  Selector = 2
	SysOpen      Selector = 3
	SysClose     Selector = 4
	SysRead      Selector = 5
	SysWrite     Selector = 6
	SysDone      Selector = 7
	SysLseek     Selector = 8
	SysRename    Selector = 9
	SysTime      Selector = 10
	SysRemove    Selector = 11
	SysSystem    Selector = 12
	SysException Selector = 13
	SysIsSim     Selector = 14
)

// Open-flag bits, exactly as spec.md §6 tabulates.
const (
	ORdOnly = 1
	OWrOnly = 2
	ORdWr   = 4
	OCreat  = 0x100
	OTrunc  = 0x200
	OAppend = 0x800
	OBinary = 0x8000
)

// Whence values for LSEEK.
const (
	SeekCur = 1
	SeekEnd = 2
	SeekSet = 0
)

// Mode bits for OPEN's optional third argument.
const (
	IRead  = 0o400
	IWrite = 0o200
	IExec  = 0o100
)

// MaxDescriptors is the total number of file-descriptor slots a
// FileSystem must support, per spec.md §6 ("512 descriptors in total").
const MaxDescriptors = 512

// NumStdDescriptors is how many of those are pre-opened
// (stdin/stdout/stderr).
const NumStdDescriptors = 3

// FileSystem is the host-side collaborator this package dispatches
// OPEN/CLOSE/READ/WRITE/LSEEK/RENAME/REMOVE/TIME against. A real driver
// backs it with os.File; tests back it with an in-memory store.
type FileSystem struct {
	Stdin, Stdout, Stderr io.ReadWriter

	Open   func(path string, flags, mode int) (fd int, err error)
	Close  func(fd int) error
	Read   func(fd int, buf []byte) (n int, err error)
	Write  func(fd int, buf []byte) (n int, err error)
	Lseek  func(fd int, off int64, whence int) (newOff int64, err error)
	Rename func(oldPath, newPath string) error
	Remove func(path string) error
	// Now returns the current wall-clock time in seconds since the Unix
	// epoch. Injected (rather than calling time.Now directly) so a
	// deterministic test can pin it.
	Now func() int64
}

// Registers is the narrow view of a thread's register file Dispatch
// needs: R0..R3 as the syscall's selector/argument registers, and the
// ability to write a return value into R0 and raise an in-band
// exception (the EXCEPTION selector re-raises onto the calling thread).
type Registers interface {
	Arg(n int) uint32
	SetReturn(v uint32)
	RaiseException(et, ed uint32)
}

// Memory is the narrow byte-addressed view Dispatch needs to read/write
// buffers named by a pointer argument.
type Memory interface {
	ReadBytes(addr uint32, n int) []byte
	WriteBytes(addr uint32, data []byte)
}

// Dispatcher holds one simulation's FileSystem and 512-slot descriptor
// table (3 pre-opened), matching the reference's fixed-size fd array.
type Dispatcher struct {
	fs  *FileSystem
	fds [MaxDescriptors]int // maps our fd slot -> fs-native fd, or -1 if free
}

// NewDispatcher returns a Dispatcher with stdin/stdout/stderr pre-opened
// at fds 0/1/2.
func NewDispatcher(fs *FileSystem) *Dispatcher {
	d := &Dispatcher{fs: fs}
	for i := range d.fds {
		d.fds[i] = -1
	}
	d.fds[0], d.fds[1], d.fds[2] = 0, 1, 2
	return d
}

// ExitRequest is returned by Dispatch for the EXIT and DONE selectors so
// the caller (the boot sequencer's RunStep) can terminate the scheduler
// run loop with the right status, or count a DONE toward its required
// total.
type ExitRequest struct {
	Status int
	IsDone bool
}

// Dispatch executes one syscall named by regs.Arg(0) (selector) against
// fs/mem, writing any return value via regs.SetReturn. It returns a
// non-nil *ExitRequest for EXIT/DONE so the caller can act on process
// termination, and a non-nil error only for an out-of-band dispatch
// failure (an unknown selector). Running out of descriptor slots is not
// such a failure: OPEN reports it in-band as a -1 return.
func (d *Dispatcher) Dispatch(sel Selector, regs Registers, mem Memory) (*ExitRequest, error) {
	switch sel {
	case SysExit:
		return &ExitRequest{Status: int(int32(regs.Arg(1)))}, nil

	case SysDone:
		return &ExitRequest{IsDone: true}, nil

	case SysPrintChar:
		d.writeStdout([]byte{byte(regs.Arg(1))})
		return nil, nil

	case SysPrintInt:
		d.writeStdout([]byte(itoa(int32(regs.Arg(1)))))
		return nil, nil

	case SysOpen:
		return nil, d.sysOpen(regs, mem)

	case SysClose:
		return nil, d.sysClose(regs)

	case SysRead:
		return nil, d.sysRead(regs, mem)

	case SysWrite:
		return nil, d.sysWrite(regs, mem)

	case SysLseek:
		return nil, d.sysLseek(regs)

	case SysRename:
		return nil, d.sysRename(regs, mem)

	case SysRemove:
		return nil, d.sysRemove(regs, mem)

	case SysTime:
		return nil, d.sysTime(regs, mem)

	case SysSystem:
		// Arbitrary host command execution from simulated firmware is a
		// deliberate non-goal of this sandboxed reimplementation; refuse
		// and report failure in-band rather than shelling out.
		regs.SetReturn(uint32(int32(-1)))
		return nil, nil

	case SysException:
		regs.RaiseException(regs.Arg(1), regs.Arg(2))
		return nil, nil

	case SysIsSim:
		regs.SetReturn(1)
		return nil, nil

	default:
		return nil, errors.Errorf("hostsyscall: unknown selector %d", sel)
	}
}

func (d *Dispatcher) writeStdout(b []byte) {
	if d.fs != nil && d.fs.Stdout != nil {
		d.fs.Stdout.Write(b)
	}
}

func (d *Dispatcher) alloc() (int, bool) {
	for i := NumStdDescriptors; i < MaxDescriptors; i++ {
		if d.fds[i] == -1 {
			return i, true
		}
	}
	return 0, false
}

func (d *Dispatcher) sysOpen(regs Registers, mem Memory) error {
	path := readCString(mem, regs.Arg(1))
	flags, mode := int(regs.Arg(2)), int(regs.Arg(3))
	slot, ok := d.alloc()
	if !ok {
		regs.SetReturn(uint32(int32(-1)))
		return nil
	}
	if d.fs == nil || d.fs.Open == nil {
		regs.SetReturn(uint32(int32(-1)))
		return nil
	}
	fd, err := d.fs.Open(path, flags, mode)
	if err != nil {
		regs.SetReturn(uint32(int32(-1)))
		return nil
	}
	d.fds[slot] = fd
	regs.SetReturn(uint32(slot))
	return nil
}

func (d *Dispatcher) sysClose(regs Registers) error {
	slot := int(regs.Arg(1))
	if !d.validSlot(slot) {
		regs.SetReturn(uint32(int32(-1)))
		return nil
	}
	if d.fs != nil && d.fs.Close != nil {
		if err := d.fs.Close(d.fds[slot]); err != nil {
			regs.SetReturn(uint32(int32(-1)))
			return nil
		}
	}
	if slot >= NumStdDescriptors {
		d.fds[slot] = -1
	}
	regs.SetReturn(0)
	return nil
}

func (d *Dispatcher) sysRead(regs Registers, mem Memory) error {
	slot, bufAddr, n := int(regs.Arg(1)), regs.Arg(2), int(regs.Arg(3))
	if !d.validSlot(slot) {
		regs.SetReturn(uint32(int32(-1)))
		return nil
	}
	buf := make([]byte, n)
	var rn int
	var err error
	switch {
	case slot == 0 && d.fs != nil && d.fs.Stdin != nil:
		rn, err = d.fs.Stdin.Read(buf)
	case d.fs != nil && d.fs.Read != nil:
		rn, err = d.fs.Read(d.fds[slot], buf)
	}
	if err != nil && err != io.EOF {
		regs.SetReturn(uint32(int32(-1)))
		return nil
	}
	mem.WriteBytes(bufAddr, buf[:rn])
	regs.SetReturn(uint32(rn))
	return nil
}

func (d *Dispatcher) sysWrite(regs Registers, mem Memory) error {
	slot, bufAddr, n := int(regs.Arg(1)), regs.Arg(2), int(regs.Arg(3))
	if !d.validSlot(slot) {
		regs.SetReturn(uint32(int32(-1)))
		return nil
	}
	data := mem.ReadBytes(bufAddr, n)
	var wn int
	var err error
	switch {
	case slot == 1 && d.fs != nil && d.fs.Stdout != nil:
		wn, err = d.fs.Stdout.Write(data)
	case slot == 2 && d.fs != nil && d.fs.Stderr != nil:
		wn, err = d.fs.Stderr.Write(data)
	case d.fs != nil && d.fs.Write != nil:
		wn, err = d.fs.Write(d.fds[slot], data)
	}
	if err != nil {
		regs.SetReturn(uint32(int32(-1)))
		return nil
	}
	regs.SetReturn(uint32(wn))
	return nil
}

func (d *Dispatcher) sysLseek(regs Registers) error {
	slot := int(regs.Arg(1))
	if !d.validSlot(slot) || d.fs == nil || d.fs.Lseek == nil {
		regs.SetReturn(uint32(int32(-1)))
		return nil
	}
	off, err := d.fs.Lseek(d.fds[slot], int64(int32(regs.Arg(2))), int(regs.Arg(3)))
	if err != nil {
		regs.SetReturn(uint32(int32(-1)))
		return nil
	}
	regs.SetReturn(uint32(off))
	return nil
}

func (d *Dispatcher) sysRename(regs Registers, mem Memory) error {
	oldPath := readCString(mem, regs.Arg(1))
	newPath := readCString(mem, regs.Arg(2))
	if d.fs == nil || d.fs.Rename == nil {
		regs.SetReturn(uint32(int32(-1)))
		return nil
	}
	if err := d.fs.Rename(oldPath, newPath); err != nil {
		regs.SetReturn(uint32(int32(-1)))
		return nil
	}
	regs.SetReturn(0)
	return nil
}

func (d *Dispatcher) sysRemove(regs Registers, mem Memory) error {
	path := readCString(mem, regs.Arg(1))
	if d.fs == nil || d.fs.Remove == nil {
		regs.SetReturn(uint32(int32(-1)))
		return nil
	}
	if err := d.fs.Remove(path); err != nil {
		regs.SetReturn(uint32(int32(-1)))
		return nil
	}
	regs.SetReturn(0)
	return nil
}

func (d *Dispatcher) sysTime(regs Registers, mem Memory) error {
	if d.fs == nil || d.fs.Now == nil {
		regs.SetReturn(uint32(int32(-1)))
		return nil
	}
	now := d.fs.Now()
	mem.WriteBytes(regs.Arg(1), []byte{
		byte(now), byte(now >> 8), byte(now >> 16), byte(now >> 24),
	})
	regs.SetReturn(uint32(now))
	return nil
}

func (d *Dispatcher) validSlot(slot int) bool {
	return slot >= 0 && slot < MaxDescriptors && d.fds[slot] != -1
}

func readCString(mem Memory, addr uint32) string {
	var b []byte
	for i := 0; ; i++ {
		c := mem.ReadBytes(addr+uint32(i), 1)
		if len(c) == 0 || c[0] == 0 {
			break
		}
		b = append(b, c[0])
	}
	return string(b)
}

func itoa(v int32) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	u := uint32(v)
	if neg {
		u = uint32(-v)
	}
	var buf [11]byte
	i := len(buf)
	for u > 0 {
		i--
		buf[i] = byte('0' + u%10)
		u /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
