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

package stream

import (
	"log"
	"os"
	"strconv"
	"sync"
)

// debugLevel mirrors engine's TLSUV_DEBUG convention (§6): unset or
// non-numeric means silent.
var (
	debugOnce  sync.Once
	debugLevel int
)

func debugEnabled() bool {
	debugOnce.Do(func() {
		v, err := strconv.Atoi(os.Getenv("TLSUV_DEBUG"))
		if err == nil {
			debugLevel = v
		}
	})
	return debugLevel > 0
}

func debugf(format string, args ...any) {
	if !debugEnabled() {
		return
	}
	log.Printf("tlsuv/stream: "+format, args...)
}
