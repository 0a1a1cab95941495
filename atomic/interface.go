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

// Package atomic provides a generic, type-safe wrapper around sync/atomic.Value,
// trimmed from the teacher's github.com/nabbar/golib/atomic down to the single
// Value[T] shape this module's stream package needs (a one-slot
// generation counter); the teacher's
// Map/MapTyped siblings have no consumer here.
package atomic

// Value is a generic, concurrency-safe holder for T backed by sync/atomic.Value.
type Value[T any] interface {
	// Load returns the current value, or the configured default load value
	// if nothing has been stored yet.
	Load() (val T)
	// Store sets the value. An empty value is replaced by the configured
	// default store value.
	Store(val T)
	// Swap atomically stores new and returns the previous value.
	Swap(new T) (old T)
	// CompareAndSwap atomically compares the current value with old and,
	// if they match, stores new.
	CompareAndSwap(old, new T) (swapped bool)
}

// NewValue returns a Value[T] with zero-value defaults for load and store.
func NewValue[T any]() Value[T] {
	var zero T
	return NewValueDefault[T](zero, zero)
}

// NewValueDefault returns a Value[T] whose Load falls back to def when
// empty, and whose Store substitutes def for an empty value.
func NewValueDefault[T any](loadDefault, storeDefault T) Value[T] {
	o := &val[T]{
		dl: loadDefault,
		ds: storeDefault,
	}
	o.av.Store(wrapped[T]{v: loadDefault})
	return o
}
