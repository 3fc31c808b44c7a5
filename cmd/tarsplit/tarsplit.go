// tarsplit splits a tar archive near its middle into two valid archives.
package main

import (
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/aurora-is-near/tarstream/src/splitting"
)

func main() {
	app := &cli.App{
		Name:      "tarsplit",
		Usage:     "split a tar archive at its block-aligned midpoint",
		ArgsUsage: "<input.tar>",
		Action: func(c *cli.Context) error {
			input := c.Args().First()
			if input == "" {
				return errors.New("missing archive argument")
			}
			return splitting.Split(input)
		},
	}
	if err := app.Run(os.Args); err != nil {
		logrus.Fatal(err)
	}
}
