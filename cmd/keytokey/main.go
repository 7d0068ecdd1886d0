// Command keytokey is a demonstration/integration CLI: it drives the
// library from real terminal keystrokes through a configured pipeline,
// logging every HID report the pipeline emits. It isn't the library
// itself — a real firmware build calls driver.Driver directly from an
// interrupt handler — but it exercises every layer of the stack end to
// end, the same role cmd/viiper/viiper.go plays for its server.
package main

import (
	"os"
	"strings"

	"github.com/alecthomas/kong"
	kongtoml "github.com/alecthomas/kong-toml"
	kongyaml "github.com/alecthomas/kong-yaml"

	"github.com/keytokey/keytokey/internal/log"
	"github.com/keytokey/keytokey/output"
)

// CLI is the root command set.
type CLI struct {
	Run    Run           `cmd:"" default:"1" help:"Drive a pipeline from raw terminal keystrokes"`
	Config ConfigCommand `cmd:"" help:"Generate a pipeline configuration template"`

	Log struct {
		Level      string `help:"trace, debug, info, warn, or error" default:"info" enum:"trace,debug,info,warn,error"`
		File       string `help:"Also write logs to this file"`
		ReportFile string `help:"Hex-dump every HID report to this file" env:"KEYTOKEY_REPORT_FILE"`
	} `embed:"" prefix:"log."`
}

func main() {
	userCfg := findUserConfig(os.Args[1:])
	jsonPaths, yamlPaths, tomlPaths := configCandidatePaths(userCfg)

	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("keytokey"),
		kong.Description("Composable keyboard-firmware event pipeline"),
		kong.UsageOnError(),
		kong.Configuration(kong.JSON, jsonPaths...),
		kong.Configuration(kongyaml.Loader, yamlPaths...),
		kong.Configuration(kongtoml.Loader, tomlPaths...),
	)

	logger, closeFiles, err := log.Setup(cli.Log.Level, cli.Log.File)
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to set up logger: " + err.Error() + "\n")
		os.Exit(2)
	}
	defer func() {
		for _, c := range closeFiles {
			_ = c.Close()
		}
	}()

	var reportLogger log.ReportLogger
	if cli.Log.ReportFile != "" {
		f, err := os.OpenFile(cli.Log.ReportFile, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
		if err != nil {
			logger.Error("failed to open report log file", "file", cli.Log.ReportFile, "error", err)
			reportLogger = log.NewReportLogger(nil)
		} else {
			reportLogger = log.NewReportLogger(f)
			closeFiles = append(closeFiles, f)
		}
	} else if cli.Log.Level == "trace" {
		reportLogger = log.NewReportLogger(os.Stdout)
	} else {
		reportLogger = log.NewReportLogger(nil)
	}

	ctx.Bind(logger)
	ctx.BindTo(reportLogger, (*output.ReportLogger)(nil))

	err = ctx.Run()
	ctx.FatalIfErrorf(err)
}

func findUserConfig(args []string) string {
	for i := 0; i < len(args); i++ {
		a := args[i]
		if strings.HasPrefix(a, "--config=") {
			return a[len("--config="):]
		}
		if a == "--config" && i+1 < len(args) {
			return args[i+1]
		}
	}
	if v := os.Getenv("KEYTOKEY_CONFIG"); v != "" {
		return v
	}
	return ""
}

func configCandidatePaths(userPath string) (jsonPaths, yamlPaths, tomlPaths []string) {
	if userPath == "" {
		return nil, nil, nil
	}
	switch {
	case strings.HasSuffix(userPath, ".json"):
		return []string{userPath}, nil, nil
	case strings.HasSuffix(userPath, ".yaml"), strings.HasSuffix(userPath, ".yml"):
		return nil, []string{userPath}, nil
	case strings.HasSuffix(userPath, ".toml"):
		return nil, nil, []string{userPath}
	default:
		return []string{userPath}, nil, nil
	}
}
