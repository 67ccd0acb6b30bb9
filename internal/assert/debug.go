//go:build !release

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

package assert

// Enabled reports whether debug-only checks are compiled in.
// Build with the release tag to turn them off.
const Enabled = true

// Debug panics with the formatted message if cond is false.
// It is a no-op when compiled with the release build tag.
func Debug(cond bool, format string, args ...any) {
	if !cond {
		fail(format, args...)
	}
}
