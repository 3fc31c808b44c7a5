// tarhash writes a digest line for every file entry of a tar archive.
package main

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/aurora-is-near/tarstream/src/splitting"
)

func main() {
	app := &cli.App{
		Name:      "tarhash",
		Usage:     "list per-entry content digests of a tar archive",
		ArgsUsage: "<input.tar>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "algorithm",
				Aliases: []string{"a"},
				Value:   splitting.AlgorithmSHA256,
				Usage:   "digest algorithm: sha256 or blake3",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Value:   "-",
				Usage:   "output file, - for stdout",
			},
		},
		Action: hash,
	}
	if err := app.Run(os.Args); err != nil {
		logrus.Fatal(err)
	}
}

func hash(c *cli.Context) error {
	input := c.Args().First()
	if input == "" {
		return errors.New("missing archive argument")
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
	return splitting.ReadDigests(input, c.String("algorithm"), out)
}
