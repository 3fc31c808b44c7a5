// tarcat lists the entries of a tar archive, or writes a single entry's
// content to stdout.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/aurora-is-near/tarstream/src/tarparse"
)

func main() {
	app := &cli.App{
		Name:      "tarcat",
		Usage:     "list or extract entries of a tar archive",
		ArgsUsage: "<archive.tar>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "print size, mode and ownership",
			},
			&cli.StringFlag{
				Name:  "extract",
				Usage: "write the content of the named entry to stdout",
			},
		},
		Action: cat,
	}
	if err := app.Run(os.Args); err != nil {
		logrus.Fatal(err)
	}
}

func cat(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return errors.New("missing archive argument")
	}
	var in io.Reader = os.Stdin
	if name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		in = f
	}
	stream := tarparse.NewStream(callbacks(c))
	buf := make([]byte, 32*1024)
	for {
		n, err := in.Read(buf)
		if n > 0 {
			if werr := stream.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
	}
	return stream.Settled()
}

func callbacks(c *cli.Context) tarparse.Callbacks {
	extract := c.String("extract")
	if extract != "" {
		return tarparse.Callbacks{
			OnFile: func(e *tarparse.Entry, data io.Reader) error {
				if e.Path != extract {
					return nil
				}
				_, err := io.Copy(os.Stdout, data)
				return err
			},
		}
	}
	verbose := c.Bool("verbose")
	list := func(e *tarparse.Entry) error {
		if verbose {
			_, err := fmt.Printf("%#o %d/%d %11d %s\n", e.Mode, e.UID, e.GID, e.Size, e.Path)
			return err
		}
		_, err := fmt.Println(e.Path)
		return err
	}
	return tarparse.Callbacks{
		OnDirectory: list,
		OnFile: func(e *tarparse.Entry, data io.Reader) error {
			return list(e)
		},
	}
}
