// Command endpoint serves OpenAI and Hugging Face compatible inference
// routes in front of TEI and Whisper backends.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/kbukum/endpoints/util"
	"github.com/kbukum/endpoints/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "endpoint:", err)
		os.Exit(1)
	}
}

func run() error {
	configFile := flag.String("config", "", "path to a YAML config file")
	envFile := flag.String("env", "", "path to a .env file")
	showVersion := flag.Bool("version", false, "print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Get().Short())
		return nil
	}

	cfg, err := loadConfig(*configFile, *envFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.Version = util.Coalesce(cfg.Version, version.Get().Short())

	app, _, err := newApp(cfg)
	if err != nil {
		return err
	}
	return app.Run(context.Background())
}
