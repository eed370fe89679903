// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package epoll wraps the Linux readiness poller used by netcore's
// reactor. Only Linux is implemented (poller_linux.go); Open on any other
// GOOS returns ErrUnsupported (poller_other.go), mirroring the way the
// pack's internal/bo package picks a byte-order implementation per CPU
// architecture via build tags — here the split is per OS poller instead.
package epoll
