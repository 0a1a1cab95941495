/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package atomic_test

import (
	"testing"

	libatm "github.com/sabouaram/tlsuv/atomic"
)

func TestValueLoadDefault(t *testing.T) {
	v := libatm.NewValueDefault[int](42, 99)
	if got := v.Load(); got != 42 {
		t.Fatalf("Load before Store: got %d, want 42", got)
	}
}

func TestValueStoreLoad(t *testing.T) {
	v := libatm.NewValue[string]()
	v.Store("hello")
	if got := v.Load(); got != "hello" {
		t.Fatalf("Load after Store: got %q, want %q", got, "hello")
	}
}

func TestValueStoreEmptyUsesDefault(t *testing.T) {
	v := libatm.NewValueDefault[int](0, 7)
	v.Store(0)
	if got := v.Load(); got != 7 {
		t.Fatalf("Store(0) should substitute default store value: got %d, want 7", got)
	}
}

func TestValueSwap(t *testing.T) {
	v := libatm.NewValue[int]()
	v.Store(1)
	old := v.Swap(2)
	if old != 1 {
		t.Fatalf("Swap returned %d, want 1", old)
	}
	if got := v.Load(); got != 2 {
		t.Fatalf("Load after Swap: got %d, want 2", got)
	}
}

func TestValueCompareAndSwap(t *testing.T) {
	v := libatm.NewValue[int]()
	v.Store(5)

	if v.CompareAndSwap(6, 7) {
		t.Fatal("CompareAndSwap should fail when old does not match")
	}
	if !v.CompareAndSwap(5, 7) {
		t.Fatal("CompareAndSwap should succeed when old matches")
	}
	if got := v.Load(); got != 7 {
		t.Fatalf("Load after successful CompareAndSwap: got %d, want 7", got)
	}
}
