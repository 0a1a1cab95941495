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

package atomic

import (
	"sync/atomic"
)

// wrapped boxes T so a zero-value T can still be stored in an atomic.Value,
// which panics on Store when given a nil interface.
type wrapped[T any] struct {
	v T
}

// val is the internal implementation of Value[T].
// It wraps sync/atomic.Value with type-safe operations and default value support.
type val[T any] struct {
	av atomic.Value
	dl T
	ds T
}

// Load retrieves the current value atomically.
// Returns the configured default load value if nothing has been stored yet.
func (o *val[T]) Load() (out T) {
	if w, ok := Cast[wrapped[T]](o.av.Load()); ok {
		return w.v
	}
	return o.dl
}

// Store sets the value atomically.
// If the provided value is empty (as determined by IsEmpty), the configured
// default store value is used instead.
func (o *val[T]) Store(in T) {
	if IsEmpty[T](in) {
		in = o.ds
	}
	o.av.Store(wrapped[T]{v: in})
}

// Swap atomically stores the new value and returns the old value.
func (o *val[T]) Swap(in T) (old T) {
	if IsEmpty[T](in) {
		in = o.ds
	}

	prev := o.av.Swap(wrapped[T]{v: in})
	if w, ok := Cast[wrapped[T]](prev); ok {
		return w.v
	}
	return o.dl
}

// CompareAndSwap atomically compares the current value with old and, if
// they match, stores new.
func (o *val[T]) CompareAndSwap(old, in T) bool {
	if IsEmpty[T](old) {
		old = o.ds
	}
	if IsEmpty[T](in) {
		in = o.ds
	}

	return o.av.CompareAndSwap(wrapped[T]{v: old}, wrapped[T]{v: in})
}
