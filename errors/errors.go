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

package errors

import (
	"runtime"
	"strings"
)

type ers struct {
	c uint16
	e string
	p []Error
	t runtime.Frame
}

func getFrame() runtime.Frame {
	var pcs [8]uintptr
	// skip runtime.Callers + getFrame, then every New/Newf/Make/
	// CodeError.Error frame of this package, up to the creating caller
	n := runtime.Callers(2, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	for {
		frame, more := frames.Next()
		if !strings.HasPrefix(frame.Function, "github.com/sabouaram/tlsuv/errors.") {
			return frame
		}
		if !more {
			return runtime.Frame{}
		}
	}
}

func (e *ers) is(err *ers) bool {
	if e == nil || err == nil {
		return false
	}

	ss, sd := e.GetTrace(), err.GetTrace()
	if (len(ss) > 0) != (len(sd) > 0) {
		return false
	} else if len(ss) > 0 {
		return strings.EqualFold(ss, sd)
	}

	ms, md := e.Error(), err.Error()
	if (len(ms) > 0) != (len(md) > 0) {
		return false
	} else if len(ms) > 0 {
		return strings.EqualFold(ms, md)
	}

	cs, cd := e.Code(), err.Code()
	if (cs > 0) != (cd > 0) {
		return false
	}

	return cs == cd
}

func (e *ers) Is(err error) bool {
	if err == nil {
		return false
	}

	if er, ok := err.(*ers); ok {
		return e.is(er)
	}

	return e.IsError(err)
}

func (e *ers) Add(parent ...error) {
	for _, v := range parent {
		if v == nil {
			continue
		}

		if er, ok := v.(*ers); ok {
			if e.IsError(er) {
				for _, erp := range er.p {
					e.Add(erp)
				}
			} else {
				e.p = append(e.p, er)
			}
		} else if err, ok := v.(Error); ok {
			e.p = append(e.p, err)
		} else {
			e.p = append(e.p, &ers{c: 0, e: v.Error()})
		}
	}
}

func (e *ers) SetParent(parent ...error) {
	e.p = make([]Error, 0, len(parent))
	e.Add(parent...)
}

func (e *ers) IsCode(code CodeError) bool {
	return e.c == code.Uint16()
}

func (e *ers) HasCode(code CodeError) bool {
	if e.IsCode(code) {
		return true
	}

	for _, p := range e.p {
		if p.HasCode(code) {
			return true
		}
	}

	return false
}

func (e *ers) GetCode() CodeError {
	return CodeError(e.c)
}

func (e *ers) GetParentCode() []CodeError {
	res := []CodeError{e.GetCode()}

	for _, p := range e.p {
		res = append(res, p.GetParentCode()...)
	}

	return unicCodeSlice(res)
}

func (e *ers) IsError(err error) bool {
	return strings.EqualFold(e.e, err.Error())
}

func (e *ers) HasError(err error) bool {
	if e.IsError(err) {
		return true
	}

	for _, p := range e.p {
		if p.IsError(err) || p.HasError(err) {
			return true
		}
	}

	return false
}

func (e *ers) HasParent() bool {
	return len(e.p) > 0
}

func (e *ers) GetParent(withMainError bool) []error {
	res := make([]error, 0, len(e.p)+1)

	if withMainError {
		res = append(res, &ers{c: e.c, e: e.e, t: e.t})
	}

	for _, er := range e.p {
		res = append(res, er.GetParent(true)...)
	}

	return res
}

func (e *ers) Map(fct FuncMap) bool {
	if !fct(e) {
		return false
	}

	for _, er := range e.p {
		if !er.Map(fct) {
			return false
		}
	}

	return true
}

func (e *ers) ContainsString(s string) bool {
	if strings.Contains(e.e, s) {
		return true
	}

	for _, p := range e.p {
		if p.ContainsString(s) {
			return true
		}
	}

	return false
}

func (e *ers) Code() uint16 {
	return e.c
}

func (e *ers) CodeSlice() []uint16 {
	res := []uint16{e.c}

	for _, p := range e.p {
		if c := p.Code(); c > 0 {
			res = append(res, c)
		}
	}

	return res
}

func (e *ers) StringError() string {
	return e.e
}

func (e *ers) StringErrorSlice() []string {
	res := []string{e.e}

	for _, p := range e.p {
		res = append(res, p.StringErrorSlice()...)
	}

	return res
}

func (e *ers) Error() string {
	if len(e.p) == 0 {
		return e.e
	}

	parts := make([]string, 0, len(e.p)+1)
	parts = append(parts, e.e)

	for _, p := range e.p {
		if s := p.Error(); s != "" {
			parts = append(parts, s)
		}
	}

	return strings.Join(parts, ": ")
}

func (e *ers) GetError() error {
	if e.e == "" {
		return nil
	}

	return &ers{c: e.c, e: e.e, t: e.t}
}

func (e *ers) GetErrorSlice() []error {
	return e.GetParent(true)
}

func (e *ers) Unwrap() []error {
	res := make([]error, 0, len(e.p))

	for _, p := range e.p {
		res = append(res, p)
	}

	return res
}

func (e *ers) GetTrace() string {
	if e.t.File == "" {
		return ""
	}

	return e.t.File + ":" + CodeError(e.t.Line).String()
}
