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

//go:build !unix

package arena

// Map falls back to a heap buffer where anonymous mappings are not available.
func Map(size int) ([]byte, error) {
	b, err := New(size)
	if err != nil {
		return nil, err
	}
	clear(b)
	return b, nil
}

// Unmap is a no-op for buffers returned by the heap fallback of Map.
func Unmap(b []byte) error { return nil }
