// rmftool is a CLI utility for inspecting RMF scene files.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/Faultbox/rmf-reader/internal/config"
	"github.com/Faultbox/rmf-reader/internal/logger"
	"github.com/Faultbox/rmf-reader/pkg/rmf"
)

// errUsage makes a command print its usage line.
var errUsage = errors.New("usage")

type command struct {
	usage string
	run   func(env *env, args []string) error
}

var commands = map[string]command{
	"info":    {"info <file.rmf>", cmdInfo},
	"tree":    {"tree [-select expr] <file.rmf>", cmdTree},
	"dump":    {"dump [-format text|yaml] <file.rmf>", cmdDump},
	"mesh":    {"mesh <file.rmf> <model> <mesh>", cmdMesh},
	"texture": {"texture <file.rmf> <texture> <output>", cmdTexture},
	"config":  {"config [output.yaml]", cmdConfig},
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	name := os.Args[1]
	switch name {
	case "help", "-h", "--help":
		printUsage()
		return
	}

	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", name)
		printUsage()
		os.Exit(1)
	}

	fs := flag.NewFlagSet(name, flag.ExitOnError)
	flags := config.RegisterFlags(fs)
	_ = fs.Parse(os.Args[2:])

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	e := &env{cfg: cfg, out: os.Stdout}
	if err := cmd.run(e, fs.Args()); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "Usage: rmftool %s\n", cmd.usage)
		} else {
			logger.Error("command failed", zap.String("command", name), zap.Error(err))
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		logger.Sync()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`rmftool - RMF scene file utility

Usage:
  rmftool <command> [options] <args>

Commands:
  info <file.rmf>                        Show scene information
  tree <file.rmf>                        Show the node/model/region/permutation tree
  dump <file.rmf>                        Print a scene summary (text or yaml)
  mesh <file.rmf> <model> <mesh>         Print triangles and positions of one mesh
  texture <file.rmf> <texture> <output>  Write embedded texture bytes to a file
  config [output.yaml]                   Save the effective configuration

Options:
  -config path     Config file (default ./rmftool.yaml)
  -debug           Enable debug logging
  -format fmt      Output format: text or yaml
  -select expr     Selection expression for tree
  -log-file path   Also write logs to this file

Examples:
  rmftool info tank.rmf
  rmftool tree -select "region == 'hull' && !instanced" tank.rmf
  rmftool dump -format yaml tank.rmf
  rmftool mesh tank.rmf tank 0
  rmftool texture tank.rmf tank_diffuse diffuse.dds
  rmftool config -debug -format yaml`)
}

// env is what every command receives.
type env struct {
	cfg *config.Config
	out io.Writer
}

func (e *env) open(path string) (*rmf.Scene, error) {
	log := logger.Named("rmf")
	scene, err := rmf.Open(path, rmf.WithLogger(log))
	if err != nil {
		return nil, err
	}
	log.Info("opened scene", zap.String("path", path), zap.String("name", scene.Name))
	return scene, nil
}
