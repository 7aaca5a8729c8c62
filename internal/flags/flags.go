// Copyright 2024 Terminos Network
// This file is part of the gtos library.
//
// The gtos library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The gtos library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the gtos library. If not, see <http://www.gnu.org/licenses/>.

package flags

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

// NewApp creates an app with the available txexecd flags grouped under
// the categories declared in categories.go. gitCommit/gitDate are
// injected via linker flags at build time; usage is the one-line
// description shown in --help.
func NewApp(gitCommit, gitDate, usage string) *cli.App {
	app := cli.NewApp()
	app.EnableBashCompletion = true
	app.Version = versionString(gitCommit, gitDate)
	app.Usage = usage
	app.Copyright = "Copyright 2024 Terminos Network"
	app.Before = func(ctx *cli.Context) error {
		MigrateGlobalFlags(ctx)
		return nil
	}
	return app
}

func versionString(gitCommit, gitDate string) string {
	v := "dev"
	if gitCommit != "" {
		v = gitCommit
		if len(v) > 8 {
			v = v[:8]
		}
	}
	if gitDate != "" {
		v = fmt.Sprintf("%s-%s", v, gitDate)
	}
	return v
}

// MigrateGlobalFlags copies flag values set on any ancestor context down
// into ctx (unless ctx already sets them), the same flattening
// cmd/utils/flags.go's MigrateGlobalFlags performs for gtos's own
// subcommands, so a flag works whether passed before or after the
// command name.
func MigrateGlobalFlags(ctx *cli.Context) {
	lineage := ctx.Lineage()
	for i := len(lineage) - 1; i >= 0; i-- {
		c := lineage[i]
		if c == ctx {
			continue
		}
		for _, name := range c.LocalFlagNames() {
			if ctx.IsSet(name) || !c.IsSet(name) {
				continue
			}
			_ = ctx.Set(name, c.String(name))
		}
	}
}
