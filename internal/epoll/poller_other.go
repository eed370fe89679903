//go:build !linux

// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package epoll

import "time"

// Poller is an unimplemented stand-in on non-Linux platforms.
type Poller struct{}

// Open always fails on non-Linux platforms; only epoll is implemented.
func Open() (*Poller, error) {
	return nil, ErrUnsupported
}

func (p *Poller) Close() error { return ErrUnsupported }

func (p *Poller) Add(fd int, interest Interest) error { return ErrUnsupported }

func (p *Poller) Modify(fd int, interest Interest) error { return ErrUnsupported }

func (p *Poller) Remove(fd int) error { return ErrUnsupported }

func (p *Poller) Wait(events []Event, timeout time.Duration) (int, error) {
	return 0, ErrUnsupported
}
