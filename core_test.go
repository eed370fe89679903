// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package netcore_test

import (
	"bytes"
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"code.hybscloud.com/netcore"
)

// echoCallbacks records its bound address and bounces every received frame
// back to its sender, exercising Listen, the accept path, OnFrames, and
// Context.WriteFrame together.
type echoCallbacks struct {
	netcore.BaseCallbacks
	addr chan net.Addr
}

func (c echoCallbacks) OnListen(ctx *netcore.Context, listenerID int, addr net.Addr) {
	c.addr <- addr
}

func (echoCallbacks) OnFrames(ctx *netcore.Context, id int, frames [][]byte) {
	for _, f := range frames {
		ctx.WriteFrame(id, f)
	}
}

// clientCallbacks sends one frame once connected and reports what comes back.
type clientCallbacks struct {
	netcore.BaseCallbacks
	send     []byte
	received chan []byte
}

func (c *clientCallbacks) OnConnect(ctx *netcore.Context, id int, remote net.Addr, err error) {
	if err != nil {
		close(c.received)
		return
	}
	ctx.WriteFrame(id, c.send)
}

func (c *clientCallbacks) OnFrames(ctx *netcore.Context, id int, frames [][]byte) {
	for _, f := range frames {
		c.received <- f
	}
}

func TestCoreEchoRoundTrip(t *testing.T) {
	addrCh := make(chan net.Addr, 1)
	server, err := netcore.NewCore(echoCallbacks{addr: addrCh})
	if err != nil {
		t.Fatalf("NewCore(server): %v", err)
	}
	if _, err := server.Listen("127.0.0.1:0"); err != nil {
		t.Fatalf("Listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = server.Run(ctx)
	}()

	var addr net.Addr
	select {
	case addr = <-addrCh:
	case <-time.After(5 * time.Second):
		t.Fatal("server never reported its bound address")
	}

	received := make(chan []byte, 1)
	client, err := netcore.NewCore(&clientCallbacks{send: []byte("ping"), received: received})
	if err != nil {
		t.Fatalf("NewCore(client): %v", err)
	}
	if _, err := client.Connect(addr.String()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	go func() {
		defer wg.Done()
		_ = client.Run(ctx)
	}()

	select {
	case got, ok := <-received:
		if !ok {
			t.Fatal("connect failed before any frame was exchanged")
		}
		if !bytes.Equal(got, []byte("ping")) {
			t.Fatalf("echoed frame = %q, want %q", got, "ping")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("echo round trip timed out")
	}

	cancel()
	wg.Wait()
}

// TestCoreShutdownViaWriteHandle exercises the cross-thread Shutdown
// path: Shutdown is requested via a WriteHandle from outside the reactor
// goroutine, and Run must return once every endpoint is torn down.
func TestCoreShutdownViaWriteHandle(t *testing.T) {
	cb := &shutdownCallbacks{}
	core, err := netcore.NewCore(cb)
	if err != nil {
		t.Fatalf("NewCore: %v", err)
	}
	if _, err := core.Listen("127.0.0.1:0"); err != nil {
		t.Fatalf("Listen: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		_ = core.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	core.WriteHandle().Shutdown()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Shutdown")
	}

	if !cb.shutdownCalled() {
		t.Fatal("OnShutdown never ran")
	}
}

type shutdownCallbacks struct {
	netcore.BaseCallbacks
	mu   sync.Mutex
	done bool
}

func (c *shutdownCallbacks) OnShutdown(ctx *netcore.Context) {
	c.mu.Lock()
	c.done = true
	c.mu.Unlock()
}

func (c *shutdownCallbacks) shutdownCalled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}
