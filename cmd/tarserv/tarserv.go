// tarserv serves directories as streamed tar archives over HTTP.
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/aurora-is-near/tarstream/src/deliver"
)

func main() {
	app := &cli.App{
		Name:  "tarserv",
		Usage: "serve directories as tar archives over http",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "listen",
				Aliases: []string{"l"},
				Value:   "127.0.0.1:18123",
				Usage:   "IP:Port to listen on",
			},
			&cli.StringFlag{
				Name:    "prefix",
				Aliases: []string{"p"},
				Value:   "/",
				Usage:   "request path prefix",
			},
			&cli.StringFlag{
				Name:    "dir",
				Aliases: []string{"d"},
				Value:   "/var/snapshots/",
				Usage:   "directory to serve",
			},
		},
		Action: serve,
	}
	if err := app.Run(os.Args); err != nil {
		logrus.Fatal(err)
	}
}

func serve(c *cli.Context) error {
	logrus.Info("Starting...")
	go func() {
		if err := deliver.Serve(c.String("listen"), c.String("prefix"), c.String("dir")); err != nil {
			logrus.WithError(err).Fatal("listen")
		}
	}()
	logrus.Info("Running")
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	<-sig
	logrus.Info("Stop")
	return nil
}
