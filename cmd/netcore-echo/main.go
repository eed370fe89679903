// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"code.hybscloud.com/netcore"
	"github.com/BurntSushi/toml"
	"github.com/urfave/cli"
)

// VERSION is populated via build flags when packaging official binaries.
var VERSION = "SELFBUILD"

// config is the optional TOML file format accepted by -config; every field
// can also be set by its matching command-line flag, and a value present in
// the file overrides the flag.
type config struct {
	Listen    string `toml:"listen"`
	Snappy    bool   `toml:"snappy"`
	MaxWriteB int    `toml:"max_write_buffer"`
}

func main() {
	app := cli.NewApp()
	app.Name = "netcore-echo"
	app.Usage = "single-threaded echo server built on netcore"
	app.Version = VERSION
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "listen, l", Value: ":9900", Usage: "listen address, eg: \"0.0.0.0:9900\""},
		cli.StringFlag{Name: "config, c", Usage: "path to a TOML config file"},
		cli.BoolFlag{Name: "snappy", Usage: "snappy-compress frame payloads"},
		cli.IntFlag{Name: "max-write-buffer", Value: netcore.DefaultMaxWriteBuffer, Usage: "per-connection write buffer high-water mark, in bytes"},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		log.Fatalln(err)
	}
}

func run(c *cli.Context) error {
	cfg := config{
		Listen:    c.String("listen"),
		Snappy:    c.Bool("snappy"),
		MaxWriteB: c.Int("max-write-buffer"),
	}
	if path := c.String("config"); path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return err
		}
	}

	codec := netcore.IdentityCodec
	if cfg.Snappy {
		codec = netcore.SnappyCodec()
	}

	core, err := netcore.NewCore(
		&echoApp{},
		netcore.WithCodec(codec),
		netcore.WithMaxWriteBuffer(cfg.MaxWriteB),
	)
	if err != nil {
		return err
	}
	if _, err := core.Listen(cfg.Listen); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return core.Run(ctx)
}

type echoApp struct {
	netcore.BaseCallbacks
}

func (echoApp) OnListen(ctx *netcore.Context, listenerID int, addr net.Addr) {
	log.Printf("listening on %s", addr)
}

func (echoApp) OnAccept(ctx *netcore.Context, id, listenerID int, remote net.Addr) {
	log.Printf("accepted connection %d from %s", id, remote)
}

func (echoApp) OnFrames(ctx *netcore.Context, id int, frames [][]byte) {
	for _, f := range frames {
		ctx.WriteFrame(id, f)
	}
}

func (echoApp) OnClose(ctx *netcore.Context, id int, err error) {
	log.Printf("connection %d closed: %v", id, err)
}

func (echoApp) OnControlError(ctx *netcore.Context, id int, err error) {
	log.Printf("control error on %d: %v", id, err)
}
