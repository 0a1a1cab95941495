/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
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

// Package errors provides error-code classification, parent-error hierarchy,
// and stack-frame capture shared by every package in this module.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// FuncMap is called for each error in a hierarchy by Error.Map; returning
// false stops the walk.
type FuncMap func(e error) bool

// Error extends the standard error with a numeric code and a parent chain.
type Error interface {
	error

	// IsCode reports whether this error's own code equals the given code.
	IsCode(code CodeError) bool
	// HasCode reports whether this error or any parent carries the given code.
	HasCode(code CodeError) bool
	// GetCode returns this error's own code.
	GetCode() CodeError
	// GetParentCode returns the de-duplicated codes of this error and all parents.
	GetParentCode() []CodeError

	// Is implements compatibility with the standard errors.Is.
	Is(e error) bool
	// IsError reports whether e has the same message as this error's own message.
	IsError(e error) bool
	// HasError reports whether err's message appears anywhere in the parent chain.
	HasError(err error) bool
	// HasParent reports whether this error carries at least one parent.
	HasParent() bool
	// GetParent returns the parent chain, optionally including this error itself.
	GetParent(withMainError bool) []error
	// Map walks this error and its parents depth-first.
	Map(fct FuncMap) bool
	// ContainsString reports whether s appears in this error's or any parent's message.
	ContainsString(s string) bool

	// Add appends non-nil errors to the parent chain.
	Add(parent ...error)
	// SetParent replaces the parent chain.
	SetParent(parent ...error)

	// Code returns the numeric code as a plain uint16.
	Code() uint16
	// CodeSlice returns the codes of this error and all parents, in order.
	CodeSlice() []uint16

	// StringError returns this error's own message, ignoring parents.
	StringError() string
	// StringErrorSlice returns this error's and all parents' messages.
	StringErrorSlice() []string

	// GetError returns a bare error wrapping this error's own message.
	GetError() error
	// GetErrorSlice returns bare errors for this error and all its parents.
	GetErrorSlice() []error
	// Unwrap exposes the parent chain to errors.Is / errors.As.
	Unwrap() []error

	// GetTrace returns the file:line this error was created at.
	GetTrace() string
}

// Is reports whether e can be treated as an Error.
func Is(e error) bool {
	var err Error
	return errors.As(e, &err)
}

// Get returns e as an Error if possible, else nil.
func Get(e error) Error {
	var err Error
	if errors.As(e, &err) {
		return err
	}
	return nil
}

// Has reports whether e or its parents carry code.
func Has(e error, code CodeError) bool {
	if err := Get(e); err == nil {
		return false
	} else {
		return err.HasCode(code)
	}
}

// ContainsString reports whether e's message chain contains s.
func ContainsString(e error, s string) bool {
	if e == nil {
		return false
	} else if err := Get(e); err == nil {
		return strings.Contains(e.Error(), s)
	} else {
		return err.ContainsString(s)
	}
}

// Make wraps e as an Error, reusing it unchanged if it already is one.
func Make(e error) Error {
	var err Error

	if e == nil {
		return nil
	} else if errors.As(e, &err) {
		return err
	}

	return &ers{
		c: 0,
		e: e.Error(),
		p: nil,
		t: getFrame(),
	}
}

// MakeIfError folds a list of possibly-nil errors into a single Error, or nil
// if every entry was nil.
func MakeIfError(err ...error) Error {
	var e Error

	for _, p := range err {
		if p == nil {
			continue
		} else if e == nil {
			e = Make(p)
		} else {
			e.Add(p)
		}
	}

	return e
}

// New creates an Error with the given code, message, and parents.
func New(code uint16, message string, parent ...error) Error {
	p := make([]Error, 0, len(parent))

	for _, e := range parent {
		if er := Make(e); er != nil {
			p = append(p, er)
		}
	}

	return &ers{
		c: code,
		e: message,
		p: p,
		t: getFrame(),
	}
}

// Newf creates an Error whose message is built with fmt.Sprintf.
func Newf(code uint16, pattern string, args ...any) Error {
	return &ers{
		c: code,
		e: fmt.Sprintf(pattern, args...),
		p: make([]Error, 0),
		t: getFrame(),
	}
}
