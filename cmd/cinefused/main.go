// Command cinefused runs the cinefuse daemon in the foreground. It is the
// standalone equivalent of `cinefuse daemon` for init systems that manage
// the process directly.
package main

import (
	"context"
	"flag"
	"log"
	"strings"

	"cinefuse/internal/config"
	"cinefuse/internal/daemonrun"
)

func main() {
	configPath := flag.String("config", "", "configuration file path")
	diagnostic := flag.Bool("diagnostic", false, "enable diagnostic mode with separate DEBUG logs")
	flag.Parse()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("ensure directories: %v", err)
	}

	opts := daemonrun.Options{
		LogLevel:    cfg.Logging.Level,
		Development: strings.EqualFold(cfg.Logging.Format, "console"),
		Diagnostic:  *diagnostic,
	}
	if err := daemonrun.Run(context.Background(), cfg, opts); err != nil {
		log.Fatalf("run daemon: %v", err)
	}
}
