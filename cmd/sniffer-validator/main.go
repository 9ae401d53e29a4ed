package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"snifferconfig/internal/app"
	"snifferconfig/internal/config"
	"snifferconfig/internal/controller"
	"snifferconfig/internal/logging"
)

const (
	exitAccepted = 0
	exitRejected = 1
	exitUsage    = 2
)

// main starts validator service or validates one document.
// Params: CLI flags (--config-file or --config-dir, optional --input).
// Returns: process exit code by startup/run or validation result.
func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("sniffer-validator", flag.ContinueOnError)
	flags.SetOutput(stderr)
	var (
		configFile = flags.String("config-file", "", "path to one TOML config file")
		configDir  = flags.String("config-dir", "", "path to directory with TOML config fragments")
		input      = flags.String("input", "", "validate one document from file (or - for stdin) and exit")
	)
	if err := flags.Parse(args); err != nil {
		return exitUsage
	}

	if strings.TrimSpace(*input) != "" {
		return validateOnce(*configFile, *configDir, *input, stdin, stdout, stderr)
	}

	source, err := config.FromCLI(*configFile, *configDir)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err.Error())
		return exitUsage
	}

	service, err := app.NewService(source)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, "service init failed:", err.Error())
		return 1
	}

	if err := service.Run(context.Background()); err != nil {
		_, _ = fmt.Fprintln(stderr, "service run failed:", err.Error())
		return 1
	}
	return 0
}

// validateOnce validates one document and prints the response envelope.
// Params: optional config source, input path, and process streams.
// Returns: exit code 0 on accept, 1 on reject, 2 on usage errors.
func validateOnce(configFile, configDir, input string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg := config.Defaults()
	if configFile != "" || configDir != "" {
		source, err := config.FromCLI(configFile, configDir)
		if err != nil {
			_, _ = fmt.Fprintln(stderr, err.Error())
			return exitUsage
		}
		cfg, err = config.LoadSnapshot(source)
		if err != nil {
			_, _ = fmt.Fprintln(stderr, err.Error())
			return exitUsage
		}
	}

	logger, closeLog, err := logging.NewWithConsole(cfg.Log, stderr)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err.Error())
		return exitUsage
	}
	defer closeLog()

	raw, err := readInput(input, stdin)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err.Error())
		return exitUsage
	}

	validator, err := app.BuildValidator(cfg.Validator, logger)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err.Error())
		return exitUsage
	}
	manager := app.NewManager(validator, logger)
	if cfg.Controller.Enabled {
		manager.SetDeployer(controller.New(cfg.Controller, logger), true)
	}

	response := manager.Validate(context.Background(), raw)
	encoder := json.NewEncoder(stdout)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		_, _ = fmt.Fprintln(stderr, "encode response:", err.Error())
		return exitUsage
	}
	if !response.OK {
		return exitRejected
	}
	return exitAccepted
}

func readInput(path string, stdin io.Reader) (string, error) {
	if path == "-" {
		body, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(body), nil
	}
	body, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read input %q: %w", path, err)
	}
	return string(body), nil
}
