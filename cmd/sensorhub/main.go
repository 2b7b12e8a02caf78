// Command sensorhub runs the sensor-reading ingestion server: a TCP
// listener feeding a shared buffer drained by a data-processing
// consumer and a storage consumer.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/pepper-iot/sensorhub/internal/applog"
	"github.com/pepper-iot/sensorhub/internal/config"
	"github.com/pepper-iot/sensorhub/internal/datamgr"
	"github.com/pepper-iot/sensorhub/internal/server"
	"github.com/pepper-iot/sensorhub/internal/storagemgr"
)

const usage = "Usage: sensorhub [-config file.toml] <port number>\n"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("sensorhub", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	configPath := fs.String("config", "", "path to a TOML config file")
	if err := fs.Parse(args); err != nil {
		return 255
	}

	if fs.NArg() != 1 {
		fmt.Fprint(os.Stderr, usage)
		return 255
	}

	port, err := strconv.Atoi(fs.Arg(0))
	if err != nil || port < 1 || port > 65535 {
		fmt.Fprint(os.Stderr, usage)
		return 255
	}

	cfg := config.Default()
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "sensorhub: %v\n", err)
			return 255
		}
	}

	applog.Configure(applog.Config{
		Level:      cfg.Log.Level,
		ECS:        cfg.Log.ECS,
		FilePath:   cfg.Log.FilePath,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})

	sensors := datamgr.SensorMap{}
	if cfg.SensorMapPath != "" {
		sensors, err = datamgr.LoadSensorMap(cfg.SensorMapPath)
		if err != nil {
			applog.Errorf("sensorhub: %v", err)
			return 1
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	data := datamgr.New(sensors, cfg.AggregationWindow)
	for room, th := range cfg.Thresholds {
		data.SetThreshold(room, th.Min, th.Max)
	}
	storage := storagemgr.New(ctx, cfg.StorageDSN)

	srv := server.New(data, storage)
	addr := fmt.Sprintf(":%d", port)

	applog.Infof("sensorhub: starting on %s", addr)
	if err := srv.Run(ctx, addr); err != nil {
		applog.Errorf("sensorhub: %v", err)
		return 1
	}

	applog.Infof("sensorhub: clean shutdown")
	return 0
}
