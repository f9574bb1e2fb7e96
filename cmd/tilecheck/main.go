// Command tilecheck validates Partridge board configuration files. For each
// file it reports the board dimensions, the inventory area and whether the
// inventory covers the board exactly.
//
// Usage:
//
//	tilecheck [--strict] [--quiet] [PATH ...]
//
// PATH may be a JSON file or a directory of JSON files; it defaults to
// ./configs. The command exits non-zero when any file is invalid.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/partridge-board/game/engine"
)

const defaultConfigDir = "configs"

var errNoConfigs = errors.New("no config files found")

// report is the outcome of checking one file
type report struct {
	Path   string
	Config *engine.BoardConfig
	Area   int
	Err    error
}

func (r report) ok() bool { return r.Err == nil }

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:      "tilecheck",
		Usage:     "validate Partridge board configurations",
		ArgsUsage: "[PATH ...]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "strict",
				Usage: "require an exact tiling even when the config does not ask for one",
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "only print failures",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			paths := cmd.Args().Slice()
			if len(paths) == 0 {
				paths = []string{defaultConfigDir}
			}

			files, err := collectFiles(paths)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				return errNoConfigs
			}

			failed := 0
			for _, file := range files {
				r := checkFile(file, cmd.Bool("strict"))
				if !r.ok() {
					failed++
				}
				if r.ok() && cmd.Bool("quiet") {
					continue
				}
				printReport(cmd.Root().Writer, r)
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d configs invalid", failed, len(files))
			}
			return nil
		},
	}
}

// collectFiles expands directories into their JSON files
func collectFiles(paths []string) ([]string, error) {
	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("cannot read %s: %w", path, err)
		}
		if !info.IsDir() {
			files = append(files, path)
			continue
		}

		matches, err := filepath.Glob(filepath.Join(path, "*.json"))
		if err != nil {
			return nil, err
		}
		sort.Strings(matches)
		files = append(files, matches...)
	}
	return files, nil
}

func checkFile(path string, strict bool) report {
	r := report{Path: path}

	config, err := engine.LoadBoardConfig(path)
	if err != nil {
		r.Err = err
		return r
	}
	r.Config = config
	r.Area = engine.TilingArea(config.SquareSizes)

	if strict && !config.RequireExactTiling {
		r.Err = engine.CheckTiling(config)
	}
	return r
}

func printReport(w io.Writer, r report) {
	name := filepath.Base(r.Path)
	if r.Config == nil {
		fmt.Fprintf(w, "FAIL %s: %v\n", name, r.Err)
		return
	}

	board := r.Config.GridSize * r.Config.GridSize
	line := fmt.Sprintf("%s %dx%d sizes 1..%d area %d/%d",
		r.Config.Name, r.Config.GridSize, r.Config.GridSize, r.Config.SquareSizes, r.Area, board)
	if r.Config.RequireExactTiling {
		line += " exact"
	}

	if r.Err != nil {
		fmt.Fprintf(w, "FAIL %s: %s: %v\n", name, line, r.Err)
		return
	}
	fmt.Fprintf(w, "OK   %s: %s\n", name, line)
}
