// Package main runs the local navigator against the robot's UDP data bus.
package main

import (
	"context"
	"flag"
	"time"

	"github.com/pkg/errors"
	"go.viam.com/rdk/logging"
	"go.viam.com/utils"

	localnav "github.com/viam-modules/viam-localnav"
	vnConfig "github.com/viam-modules/viam-localnav/config"
	"github.com/viam-modules/viam-localnav/telemetry"
)

// Versioning variables which are replaced by LD flags.
var (
	Version     = "development"
	GitRevision = ""
)

func main() {
	utils.ContextualMain(mainWithArgs, logging.NewLogger("localnav"))
}

func mainWithArgs(ctx context.Context, args []string, logger logging.Logger) error {
	var versionFields []interface{}
	if Version != "" {
		versionFields = append(versionFields, "version", Version)
	}
	if GitRevision != "" {
		versionFields = append(versionFields, "git_rev", GitRevision)
	}
	if len(versionFields) != 0 {
		logger.Infow("localnav", versionFields...)
	} else {
		logger.Info("localnav built from source; version unknown")
	}

	fs := flag.NewFlagSet("localnav", flag.ContinueOnError)
	configPath := fs.String("config", "localnav.yaml", "path to the YAML or JSON config file")
	debug := fs.Bool("debug", false, "enable debug logging")
	tracing := fs.Bool("trace", false, "report trace spans to the log")
	showVersion := fs.Bool("version", false, "print the version and exit")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	if *showVersion {
		return nil
	}
	if *debug {
		logger.SetLevel(logging.DEBUG)
	}

	if *tracing {
		exporter, err := telemetry.SetupTelemetry(time.Second)
		if err != nil {
			return errors.Wrap(err, "failed to set up telemetry")
		}
		defer exporter.Stop()
	}

	cfg, err := vnConfig.Load(*configPath)
	if err != nil {
		return err
	}

	nav, err := localnav.New(ctx, cfg, logger, localnav.Overrides{})
	if err != nil {
		return err
	}
	defer utils.UncheckedErrorFunc(func() error { return nav.Close(context.Background()) })

	if err := nav.Wait(ctx); err != nil && !errors.Is(err, localnav.ErrQuit) && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
