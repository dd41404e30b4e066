package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	cli "github.com/urfave/cli/v2"

	"minijvm/config"
	"minijvm/debugger"
	"minijvm/jvm"
)

func splitClassPath(path string) (dir, entry string) {
	dir = filepath.Dir(path)
	base := filepath.Base(path)
	return dir, strings.TrimSuffix(base, ".class")
}

func runCommand(c *cli.Context) error {
	cfg, err := config.LoadFrom(c.String("config"))
	if err != nil {
		return cli.Exit(err, 1)
	}

	var dir, entry string
	if c.Args().Len() > 0 {
		dir, entry = splitClassPath(c.Args().First())
	} else if cfg.Run.ClassDir != "" {
		dir, entry = cfg.Run.ClassDir, cfg.Run.EntryClass
	} else {
		return cli.Exit("usage: minijvm run [--debug N] [--config FILE] <class-file>", 1)
	}

	level := cfg.Run.DebugLevel
	if c.IsSet("debug") {
		level = c.Int("debug")
	}

	interp := jvm.NewInterp(dir, os.Stdout, jvm.DebugLevel(level))

	if jvm.DebugLevel(level) == jvm.DebugInteractive {
		d := debugger.NewDebugger(interp, entry, cfg.Debugger.ShowStaticFields, cfg.Debugger.HistorySize)
		t := debugger.NewTUI(d)
		if err := t.Run(); err != nil {
			return cli.Exit(err, 1)
		}
		if d.RunErr != nil {
			return cli.Exit(d.RunErr, 1)
		}
		return nil
	}

	if err := interp.Run(entry); err != nil {
		jvm.DumpState(os.Stderr, interp, err)
		return cli.Exit("", 1)
	}
	return nil
}

func disasmCommand(c *cli.Context) error {
	if c.Args().Len() < 1 {
		return cli.Exit("usage: minijvm disasm <class-file>", 1)
	}
	dir, entry := splitClassPath(c.Args().First())
	pool := jvm.NewStringPool()
	parsed, err := jvm.LoadClassFileForDisasm(dir, entry, pool)
	if err != nil {
		return cli.Exit(err, 1)
	}
	jvm.Disassemble(os.Stdout, parsed, pool)
	return nil
}

func main() {
	app := &cli.App{
		Name:  "minijvm",
		Usage: "a minimal stack-based class-file bytecode interpreter",
		Commands: []*cli.Command{
			{
				Name:      "run",
				Usage:     "load and execute a class file's main method",
				ArgsUsage: "<class-file>",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "debug", Usage: "0=off, 1=trace, 2=interactive"},
					&cli.StringFlag{Name: "config", Usage: "path to a TOML config file"},
				},
				Action: runCommand,
			},
			{
				Name:      "disasm",
				Usage:     "print a class file's constant pool and instructions",
				ArgsUsage: "<class-file>",
				Action:    disasmCommand,
			},
		},
		Action: func(c *cli.Context) error {
			return cli.ShowAppHelp(c)
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
