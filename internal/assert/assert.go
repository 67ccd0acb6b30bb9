/*
 * Copyright 2025 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package assert holds the invariant checks used by the allocators.
//
// A failed check is a programming error, so it panics instead of returning an error.
package assert

import "fmt"

// Fatal panics with the formatted message if cond is false, in every build.
func Fatal(cond bool, format string, args ...any) {
	if !cond {
		fail(format, args...)
	}
}

func fail(format string, args ...any) {
	panic("allocx: " + fmt.Sprintf(format, args...))
}
