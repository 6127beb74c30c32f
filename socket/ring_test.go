// SPDX-License-Identifier: MIT
//
// Copyright © 2018 Kent Gibson <warthog618@gmail.com>.

package socket

import "testing"

func TestRingBufferReadWrite(t *testing.T) {
	r := newRingBuffer(4)
	r.write([]byte{1, 2, 3})
	if r.len() != 3 {
		t.Fatalf("len = %d, want 3", r.len())
	}
	out := make([]byte, 2)
	n := r.read(out)
	if n != 2 || out[0] != 1 || out[1] != 2 {
		t.Fatalf("read = %v, n=%d", out, n)
	}
	if r.len() != 1 {
		t.Fatalf("len = %d, want 1", r.len())
	}
}

func TestRingBufferOverwritesOldestWhenFull(t *testing.T) {
	r := newRingBuffer(4)
	r.write([]byte{1, 2, 3, 4})
	r.write([]byte{5, 6})
	if r.len() != 4 {
		t.Fatalf("len = %d, want 4 (capacity)", r.len())
	}
	out := make([]byte, 4)
	n := r.read(out)
	if n != 4 {
		t.Fatalf("n = %d, want 4", n)
	}
	want := []byte{3, 4, 5, 6}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("read = %v, want %v", out, want)
		}
	}
}

func TestRingBufferReadMoreThanAvailable(t *testing.T) {
	r := newRingBuffer(8)
	r.write([]byte{9})
	out := make([]byte, 4)
	n := r.read(out)
	if n != 1 || out[0] != 9 {
		t.Fatalf("n=%d out=%v", n, out)
	}
}

func TestRingBufferReset(t *testing.T) {
	r := newRingBuffer(4)
	r.write([]byte{1, 2})
	r.reset()
	if r.len() != 0 {
		t.Fatalf("len = %d, want 0 after reset", r.len())
	}
}
