// Command server runs the read-only query API over the exported
// pipeline artifacts.
package main

import (
	"flag"
	"fmt"
	"os"

	"evintel/internal/app"
	"evintel/internal/config"
	"evintel/pkg/contracts"
)

func main() {
	configPath := flag.String("config", "", "optional YAML config file")
	port := flag.Int("port", 0, "override the listen port")
	dataRoot := flag.String("data", "", "root directory holding data/reports (defaults to the executable directory)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(contracts.GetVersionString())
		return
	}

	opts, err := buildOptions(*configPath, *port, *dataRoot)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	application, err := app.NewApplication(opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start: %v\n", err)
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func buildOptions(configPath string, port int, dataRoot string) ([]app.Option, error) {
	var opts []app.Option

	if configPath != "" || port != 0 {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return nil, err
		}
		if port != 0 {
			cfg.Server.Port = port
		}
		opts = append(opts, app.WithConfig(cfg))
	}

	if dataRoot != "" {
		opts = append(opts, app.WithPaths(config.PathsFromRoot(dataRoot)))
	}

	return opts, nil
}

func loadConfig(configPath string) (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromFile(configPath)
	}
	return config.Load()
}
