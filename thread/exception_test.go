package thread

import "testing"

type fakeTranslator struct {
	physical map[uint32]uint32
}

func (f *fakeTranslator) TargetPC(pc uint32) uint32 { return pc * 2 }
func (f *fakeTranslator) PhysicalAddress(reg uint32) uint32 {
	if f.physical != nil {
		if v, ok := f.physical[reg]; ok {
			return v
		}
	}
	return reg
}
func (f *fakeTranslator) IsValidAddress(addr uint32) bool { return addr < 0x10000 }

func TestExceptionCapturesStateAndForcesKernelMode(t *testing.T) {
	th, _ := newTestThread()
	th.SetReg(ED, 0x77)
	th.sr.Set(EEBLE, true)
	th.sr.Set(IEBLE, true)
	th.SetReg(KEP, 0x100)

	tr := &fakeTranslator{}
	newPC := th.Exception(tr, 42, ExceptionArithmetic, 0xAB)

	if StatusRegister(th.Reg(SSR))&(1<<EEBLE) == 0 {
		t.Errorf("SSR should capture the pre-trap SR (with EEBLE set) before it is cleared")
	}
	if th.Reg(SPC) != 84 {
		t.Errorf("SPC = %d, want TargetPC(42) = 84", th.Reg(SPC))
	}
	if th.Reg(SED) != 0x77 {
		t.Errorf("SED = %#x, want the previous ED 0x77", th.Reg(SED))
	}
	if !th.sr.Test(INK) {
		t.Errorf("exception should force INK on")
	}
	if th.sr.Test(EEBLE) || th.sr.Test(IEBLE) {
		t.Errorf("exception should force EEBLE/IEBLE off")
	}
	if th.Reg(ET) != uint32(ExceptionArithmetic) {
		t.Errorf("ET = %d, want %d", th.Reg(ET), ExceptionArithmetic)
	}
	if th.Reg(ED) != 0xAB {
		t.Errorf("ED = %#x, want 0xab", th.Reg(ED))
	}
	if newPC != 0x100>>1 {
		t.Errorf("newPC = %#x, want KEP>>1 = %#x", newPC, 0x100>>1)
	}
}

func TestExceptionKCallAddsVectorOffset(t *testing.T) {
	th, _ := newTestThread()
	th.SetReg(KEP, 0x100)
	tr := &fakeTranslator{}
	newPC := th.Exception(tr, 0, ExceptionKCall, 0)
	want := (uint32(0x100) + kcallVectorOffset) >> 1
	if newPC != want {
		t.Errorf("newPC = %#x, want %#x", newPC, want)
	}
}

func TestExceptionPanicsOnMisalignedKEP(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected a panic on a misaligned KEP")
		}
	}()
	th, _ := newTestThread()
	th.SetReg(KEP, 0x101)
	th.Exception(&fakeTranslator{}, 0, ExceptionIllegalInstruction, 0)
}

func TestExceptionPanicsOnInvalidKEP(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected a panic on an out-of-range KEP")
		}
	}()
	th, _ := newTestThread()
	th.SetReg(KEP, 0x20000)
	th.Exception(&fakeTranslator{}, 0, ExceptionIllegalInstruction, 0)
}
