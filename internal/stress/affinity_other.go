// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !linux

package stress

import "runtime"

// pin locks the calling goroutine to its OS thread. Binding the thread to
// a CPU is not supported on this platform.
func pin(int) error {
	runtime.LockOSThread()
	return nil
}
