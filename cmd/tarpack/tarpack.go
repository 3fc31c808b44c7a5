// tarpack packs a directory into a USTAR archive written to stdout or a
// file.
package main

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/aurora-is-near/tarstream/src/targen"
	"github.com/aurora-is-near/tarstream/src/walk"
)

func main() {
	app := &cli.App{
		Name:      "tarpack",
		Usage:     "pack a directory into a tar archive",
		ArgsUsage: "<directory>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Value:   "-",
				Usage:   "output file, - for stdout",
			},
			&cli.BoolFlag{
				Name:  "numeric-owner",
				Usage: "strip symbolic owner and group names",
			},
		},
		Action: pack,
	}
	if err := app.Run(os.Args); err != nil {
		logrus.Fatal(err)
	}
}

func pack(c *cli.Context) error {
	dir := c.Args().First()
	if dir == "" {
		return errors.New("missing directory argument")
	}
	var out io.Writer = os.Stdout
	if name := c.String("output"); name != "-" {
		f, err := os.OpenFile(name, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o640)
		if err != nil {
			return errors.Wrap(err, "create output")
		}
		defer func() { _ = f.Close() }()
		out = f
	}
	options := []targen.Option{targen.OptRewrite(walk.Relative(dir))}
	if c.Bool("numeric-owner") {
		options = append(options, targen.OptNumericIDs)
	}
	stream := targen.NewStream(options...)
	g := new(errgroup.Group)
	g.Go(func() error {
		defer func() { _ = stream.Finalize() }()
		return walk.Pack(dir, stream)
	})
	g.Go(func() error {
		_, err := io.Copy(out, stream)
		return err
	})
	return g.Wait()
}
