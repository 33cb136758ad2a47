// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build race

package lfring

// RaceEnabled is true when the race detector is active.
// Used by tests to skip concurrent tests: atomix operations appear to the
// detector as plain memory accesses, so rings shared between goroutines
// trigger false positives.
const RaceEnabled = true
