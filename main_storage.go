// main_storage.go - Main storage for IronEngine

/*
 ██▓ ██▀███   ▒█████   ███▄    █    ▓█████  ███▄    █   ▄████  ██▓ ███▄    █ ▓█████
▓██▒▓██ ▒ ██▒▒██▒  ██▒ ██ ▀█   █    ▓█   ▀  ██ ▀█   █  ██▒ ▀█▒▓██▒ ██ ▀█   █ ▓█   ▀
▒██▒▓██ ░▄█ ▒▒██░  ██▒▓██  ▀█ ██▒   ▒███   ▓██  ▀█ ██▒▒██░▄▄▄░▒██▒▓██  ▀█ ██▒▒███
░██░▒██▀▀█▄  ▒██   ██░▓██▒  ▐▌██▒   ▒▓█  ▄ ▓██▒  ▐▌██▒░▓█  ██▓░██░▓██▒  ▐▌██▒▒▓█  ▄
░██░░██▓ ▒██▒░ ████▓▒░▒██░   ▓██░   ░▒████▒▒██░   ▓██░░▒▓███▀▒░██░▒██░   ▓██░░▒████▒
░▓  ░ ▒▓ ░▒▓░░ ▒░▒░▒░ ░ ▒░   ▒ ▒    ░░ ▒░ ░░ ▒░   ▒ ▒  ░▒   ▒ ░▓  ░ ▒░   ▒ ▒ ░░ ▒░ ░
 ▒ ░  ░▒ ░ ▒░  ░ ▒ ▒░ ░ ░░   ░ ▒░    ░ ░  ░░ ░░   ░ ▒░  ░   ░  ▒ ░░ ░░   ░ ▒░ ░ ░  ░
 ▒ ░  ░░   ░ ░ ░ ░ ▒     ░   ░ ░       ░      ░   ░ ░ ░ ░   ░  ▒ ░   ░   ░ ░    ░
 ░     ░         ░ ░           ░       ░  ░         ░       ░  ░           ░    ░  ░

(c) 2025 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/IronEngine
License: GPLv3 or later
*/

/*
main_storage.go - Main Storage for IronEngine

This module implements the emulated machine's main storage. Mainframe
convention is big-endian throughout, and low storage is architecturally
significant: every CPU owns a one-page prefix save area (PSA) whose fields,
notably the interval timer word at offset 0x50, are read and written by both
the emulated software and the timer subsystem.

Core Features:

    A contiguous block of byte-addressable storage, sized at configuration
    time in whole pages.
    Big-endian read/write operations at 8, 16, 32 and 64-bit widths, each
    with an explicit fault return instead of silent wrap-around.
    Per-CPU prefix translation so that each processor sees its own PSA page.
    Full storage reset capability.

Concurrency:

    A sync.RWMutex synchronises all accesses. The timer subsystem touches
    storage only for the interval timer word; the operator console and the
    scripting layer may inspect any address while the machine runs.
*/

package main

import (
	"encoding/binary"
	"fmt"
	"sync"
)

// MainStorage is the machine's byte-addressable storage block.
type MainStorage struct {
	mutex sync.RWMutex
	bytes []byte
}

func NewMainStorage(size uint32) (*MainStorage, error) {
	if size == 0 || size > MAX_STORAGE_SIZE || size%PSA_SIZE != 0 {
		return nil, fmt.Errorf("invalid storage size %#x: need a non-zero multiple of %#x up to %#x",
			size, PSA_SIZE, MAX_STORAGE_SIZE)
	}
	return &MainStorage{bytes: make([]byte, size)}, nil
}

func (ms *MainStorage) Size() uint32 {
	return uint32(len(ms.bytes))
}

func (ms *MainStorage) Read8WithFault(addr uint32) (uint8, bool) {
	ms.mutex.RLock()
	defer ms.mutex.RUnlock()
	if addr >= uint32(len(ms.bytes)) {
		return 0, false
	}
	return ms.bytes[addr], true
}

func (ms *MainStorage) Write8WithFault(addr uint32, value uint8) bool {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()
	if addr >= uint32(len(ms.bytes)) {
		return false
	}
	ms.bytes[addr] = value
	return true
}

func (ms *MainStorage) Read16WithFault(addr uint32) (uint16, bool) {
	ms.mutex.RLock()
	defer ms.mutex.RUnlock()
	if uint64(addr)+2 > uint64(len(ms.bytes)) {
		return 0, false
	}
	return binary.BigEndian.Uint16(ms.bytes[addr : addr+2]), true
}

func (ms *MainStorage) Write16WithFault(addr uint32, value uint16) bool {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()
	if uint64(addr)+2 > uint64(len(ms.bytes)) {
		return false
	}
	binary.BigEndian.PutUint16(ms.bytes[addr:addr+2], value)
	return true
}

func (ms *MainStorage) Read32WithFault(addr uint32) (uint32, bool) {
	ms.mutex.RLock()
	defer ms.mutex.RUnlock()
	if uint64(addr)+4 > uint64(len(ms.bytes)) {
		return 0, false
	}
	return binary.BigEndian.Uint32(ms.bytes[addr : addr+4]), true
}

func (ms *MainStorage) Write32WithFault(addr uint32, value uint32) bool {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()
	if uint64(addr)+4 > uint64(len(ms.bytes)) {
		return false
	}
	binary.BigEndian.PutUint32(ms.bytes[addr:addr+4], value)
	return true
}

func (ms *MainStorage) Read64WithFault(addr uint32) (uint64, bool) {
	ms.mutex.RLock()
	defer ms.mutex.RUnlock()
	if uint64(addr)+8 > uint64(len(ms.bytes)) {
		return 0, false
	}
	return binary.BigEndian.Uint64(ms.bytes[addr : addr+8]), true
}

func (ms *MainStorage) Write64WithFault(addr uint32, value uint64) bool {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()
	if uint64(addr)+8 > uint64(len(ms.bytes)) {
		return false
	}
	binary.BigEndian.PutUint64(ms.bytes[addr:addr+8], value)
	return true
}

// Reset clears the entire storage block to zero under the write lock.
func (ms *MainStorage) Reset() {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()
	for i := range ms.bytes {
		ms.bytes[i] = 0
	}
}
