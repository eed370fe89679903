// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"code.hybscloud.com/netcore"
	"github.com/urfave/cli"
)

// VERSION is populated via build flags when packaging official binaries.
var VERSION = "SELFBUILD"

func main() {
	app := cli.NewApp()
	app.Name = "netcore-broadcast"
	app.Usage = "relays every received frame to all other connected clients"
	app.Version = VERSION
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "listen, l", Value: ":9901", Usage: "listen address"},
		cli.DurationFlag{Name: "heartbeat", Value: 30 * time.Second, Usage: "server->client heartbeat interval, 0 disables it"},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		log.Fatalln(err)
	}
}

func run(c *cli.Context) error {
	app := &broadcastApp{}
	core, err := netcore.NewCore(app)
	if err != nil {
		return err
	}
	if _, err := core.Listen(c.String("listen")); err != nil {
		return err
	}
	app.handle = core.WriteHandle()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if d := c.Duration("heartbeat"); d > 0 {
		go app.heartbeat(ctx, d)
	}
	return core.Run(ctx)
}

// broadcastApp fans every inbound frame out to every other connected
// client. It keeps its own id set guarded by a mutex because the
// heartbeat goroutine enqueues writes through a WriteHandle from outside
// the reactor goroutine, while OnAccept/OnClose run on it.
type broadcastApp struct {
	netcore.BaseCallbacks

	handle netcore.WriteHandle

	mu   sync.Mutex
	ids  map[int]struct{}
}

func (a *broadcastApp) OnListen(ctx *netcore.Context, listenerID int, addr net.Addr) {
	log.Printf("listening on %s", addr)
}

func (a *broadcastApp) OnAccept(ctx *netcore.Context, id, listenerID int, remote net.Addr) {
	a.mu.Lock()
	if a.ids == nil {
		a.ids = make(map[int]struct{})
	}
	a.ids[id] = struct{}{}
	a.mu.Unlock()
	log.Printf("client %d joined from %s", id, remote)
}

func (a *broadcastApp) OnClose(ctx *netcore.Context, id int, err error) {
	a.mu.Lock()
	delete(a.ids, id)
	a.mu.Unlock()
}

func (a *broadcastApp) OnFrames(ctx *netcore.Context, id int, frames [][]byte) {
	a.mu.Lock()
	targets := make([]int, 0, len(a.ids))
	for other := range a.ids {
		if other != id {
			targets = append(targets, other)
		}
	}
	a.mu.Unlock()

	for _, f := range frames {
		for _, target := range targets {
			ctx.WriteFrame(target, f)
		}
	}
}

func (a *broadcastApp) heartbeat(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			a.mu.Lock()
			targets := make([]int, 0, len(a.ids))
			for id := range a.ids {
				targets = append(targets, id)
			}
			a.mu.Unlock()
			msg := []byte(fmt.Sprintf("heartbeat %d", now.Unix()))
			for _, id := range targets {
				a.handle.WriteFrame(id, msg)
			}
		}
	}
}
