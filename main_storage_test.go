package main

import "testing"

func TestMainStorageSizeValidation(t *testing.T) {
	bad := []uint32{0, PSA_SIZE - 1, PSA_SIZE + 1, MAX_STORAGE_SIZE + PSA_SIZE}
	for _, size := range bad {
		if _, err := NewMainStorage(size); err == nil {
			t.Errorf("NewMainStorage(%#x) succeeded, want error", size)
		}
	}

	ms, err := NewMainStorage(2 * PSA_SIZE)
	if err != nil {
		t.Fatalf("NewMainStorage(%#x): %v", 2*PSA_SIZE, err)
	}
	if ms.Size() != 2*PSA_SIZE {
		t.Fatalf("Size = %#x, want %#x", ms.Size(), 2*PSA_SIZE)
	}
}

func TestMainStorageBigEndian(t *testing.T) {
	ms, err := NewMainStorage(PSA_SIZE)
	if err != nil {
		t.Fatalf("NewMainStorage: %v", err)
	}

	if !ms.Write32WithFault(0x100, 0x0A0B0C0D) {
		t.Fatalf("Write32 faulted")
	}
	want := []uint8{0x0A, 0x0B, 0x0C, 0x0D}
	for i, w := range want {
		got, ok := ms.Read8WithFault(0x100 + uint32(i))
		if !ok {
			t.Fatalf("Read8(%#x) faulted", 0x100+i)
		}
		if got != w {
			t.Errorf("byte %d = %#02x, want %#02x", i, got, w)
		}
	}

	if !ms.Write64WithFault(0x200, 0x1122334455667788) {
		t.Fatalf("Write64 faulted")
	}
	hi, _ := ms.Read32WithFault(0x200)
	lo, _ := ms.Read32WithFault(0x204)
	if hi != 0x11223344 || lo != 0x55667788 {
		t.Fatalf("Read32 halves = %#08x %#08x, want 0x11223344 0x55667788", hi, lo)
	}

	if !ms.Write16WithFault(0x51, 0xBEEF) {
		t.Fatalf("Write16 faulted")
	}
	if got, _ := ms.Read16WithFault(0x51); got != 0xBEEF {
		t.Fatalf("Read16 = %#04x, want 0xBEEF", got)
	}
}

func TestMainStorageFaults(t *testing.T) {
	ms, err := NewMainStorage(PSA_SIZE)
	if err != nil {
		t.Fatalf("NewMainStorage: %v", err)
	}
	size := ms.Size()

	if _, ok := ms.Read8WithFault(size); ok {
		t.Errorf("Read8 at end did not fault")
	}
	if ok := ms.Write8WithFault(size-1, 0xFF); !ok {
		t.Errorf("Write8 at last byte faulted")
	}
	if _, ok := ms.Read32WithFault(size - 3); ok {
		t.Errorf("straddling Read32 did not fault")
	}
	if _, ok := ms.Read32WithFault(size - 4); !ok {
		t.Errorf("Read32 at last word faulted")
	}
	if ok := ms.Write64WithFault(size-7, 1); ok {
		t.Errorf("straddling Write64 did not fault")
	}
}

func TestMainStorageReset(t *testing.T) {
	ms, err := NewMainStorage(PSA_SIZE)
	if err != nil {
		t.Fatalf("NewMainStorage: %v", err)
	}
	ms.Write32WithFault(ITIMER_LOCATION, 0xDEADBEEF)
	ms.Reset()
	if got, _ := ms.Read32WithFault(ITIMER_LOCATION); got != 0 {
		t.Fatalf("after Reset, word = %#08x, want 0", got)
	}
}
