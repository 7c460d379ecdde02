package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/nerrad567/pairgen/internal/api"
	"github.com/nerrad567/pairgen/internal/audit"
	"github.com/nerrad567/pairgen/internal/device"
	"github.com/nerrad567/pairgen/internal/heartbeat"
	"github.com/nerrad567/pairgen/internal/idevice"
	"github.com/nerrad567/pairgen/internal/infrastructure/config"
	"github.com/nerrad567/pairgen/internal/infrastructure/database"
	"github.com/nerrad567/pairgen/internal/infrastructure/influxdb"
	"github.com/nerrad567/pairgen/internal/infrastructure/logging"
	"github.com/nerrad567/pairgen/internal/infrastructure/mqtt"
	"github.com/nerrad567/pairgen/internal/lockdown"
	"github.com/nerrad567/pairgen/internal/orchestrator"
	"github.com/nerrad567/pairgen/internal/pairing"
	"github.com/nerrad567/pairgen/internal/process"
)

// environment holds the process-level collaborators. Tests replace the
// transport and terminal.
type environment struct {
	stdout io.Writer
	stderr io.Writer

	newTransport func(cfg *config.Config, log *logging.Logger) lockdown.Transport
	newTerminal  func(cfg *config.Config, out io.Writer) terminal
}

func defaultEnv(stdout, stderr io.Writer) *environment {
	return &environment{
		stdout:       stdout,
		stderr:       stderr,
		newTransport: newIDeviceTransport,
		newTerminal: func(cfg *config.Config, out io.Writer) terminal {
			return newHuhTerminal(out, cfg.Export.Directory)
		},
	}
}

// newIDeviceTransport wires the libimobiledevice tools through the process runner.
func newIDeviceTransport(cfg *config.Config, log *logging.Logger) lockdown.Transport {
	runner := process.NewExecRunner(cfg.Transport.CommandTimeout)
	runner.SetLogger(log)

	t := idevice.New(idevice.Config{
		Tools: idevice.Tools{
			DeviceID:   cfg.Transport.Tools.DeviceID,
			DeviceInfo: cfg.Transport.Tools.DeviceInfo,
			DeviceName: cfg.Transport.Tools.DeviceName,
			DevicePair: cfg.Transport.Tools.DevicePair,
		},
		LockdownDir:         cfg.Transport.LockdownDir,
		CommandTimeout:      cfg.Transport.CommandTimeout,
		SetValueCommand:     cfg.Transport.SetValueCommand,
		PreconditionMarkers: cfg.Transport.PreconditionMarkers,
	}, runner)
	t.SetLogger(log)
	return t
}

// app is one wired instance of pairgen.
type app struct {
	cfg     *config.Config
	log     *logging.Logger
	orch    *orchestrator.Orchestrator
	history audit.Repository
	checks  map[string]api.HealthChecker
	closers []func()
}

// appOptions selects how an app is built.
type appOptions struct {
	configPath     string
	configExplicit bool
	envFile        string
	source         string
}

// newApp loads configuration and wires every component.
//
// The history database, MQTT and InfluxDB are optional: a backend that is
// enabled but cannot be reached is logged and left out so device operations
// still work.
func newApp(ctx context.Context, env *environment, opts appOptions) (*app, error) {
	if err := config.LoadDotEnv(opts.envFile); err != nil {
		return nil, fmt.Errorf("loading %s: %w", opts.envFile, err)
	}

	load := config.LoadOptional
	if opts.configExplicit {
		load = config.Load
	}
	cfg, err := load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	log := logging.New(cfg.Logging, version)
	log.Debug("configuration loaded", "path", opts.configPath, "commit", commit, "build_date", date)

	a := &app{cfg: cfg, log: log, checks: make(map[string]api.HealthChecker)}

	transport := env.newTransport(cfg, log)

	opener := lockdown.NewOpener(transport)
	opener.SetLogger(log)

	registry := device.NewRegistry(transport, lockdown.NewNameResolver(opener))
	registry.SetLogger(log)
	registry.SetConcurrency(cfg.Transport.NameConcurrency)

	store := pairing.NewStore(transport, cfg.Export.Extension)
	store.SetLogger(log)

	validator := heartbeat.NewValidator(opener, cfg.WiFi.HeartbeatTimeout)
	validator.SetLogger(log)

	recorders := a.connectRecorders(ctx)

	a.orch, err = orchestrator.New(orchestrator.Deps{
		Config: orchestrator.Config{
			WiFiDomain:    cfg.WiFi.Domain,
			WiFiKey:       cfg.WiFi.Key,
			HeartbeatPort: uint16(cfg.WiFi.HeartbeatPort), //nolint:gosec // Range checked by config validation
			Source:        opts.source,
		},
		Registry:  registry,
		Opener:    opener,
		Store:     store,
		Validator: validator,
		Recorder:  recorders,
		Logger:    log,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("creating orchestrator: %w", err)
	}

	return a, nil
}

// connectRecorders opens the enabled event sinks.
func (a *app) connectRecorders(ctx context.Context) orchestrator.MultiRecorder {
	var recorders orchestrator.MultiRecorder

	if a.cfg.Database.Enabled {
		if repo, err := a.openHistory(ctx); err != nil {
			a.log.Warn("operation history disabled", "path", a.cfg.Database.Path, "error", err)
		} else {
			a.history = repo
			recorders = append(recorders, repo)
		}
	}

	if a.cfg.MQTT.Enabled {
		client, err := mqtt.Connect(a.cfg.MQTT)
		if err != nil {
			a.log.Warn("MQTT event publishing disabled", "error", err)
		} else {
			client.SetLogger(a.log)
			a.checks["mqtt"] = client
			a.onClose(func() {
				if err := client.Close(); err != nil {
					a.log.Error("error closing MQTT", "error", err)
				}
			})
			recorders = append(recorders, mqttRecorder(client))
			a.log.Info("MQTT connected",
				"broker", fmt.Sprintf("%s:%d", a.cfg.MQTT.Broker.Host, a.cfg.MQTT.Broker.Port),
				"client_id", a.cfg.MQTT.Broker.ClientID,
			)
		}
	}

	if a.cfg.InfluxDB.Enabled {
		client, err := influxdb.Connect(a.cfg.InfluxDB)
		if err != nil {
			a.log.Warn("InfluxDB metrics disabled", "error", err)
		} else {
			client.SetOnError(func(err error) {
				a.log.Warn("InfluxDB write failed", "error", err)
			})
			a.checks["influxdb"] = client
			a.onClose(func() {
				if err := client.Close(); err != nil {
					a.log.Error("error closing InfluxDB", "error", err)
				}
			})
			recorders = append(recorders, influxRecorder(client))
			a.log.Info("InfluxDB connected", "url", a.cfg.InfluxDB.URL, "bucket", a.cfg.InfluxDB.Bucket)
		}
	}

	return recorders
}

// openHistory opens and migrates the history database.
func (a *app) openHistory(ctx context.Context) (*audit.SQLiteRepository, error) {
	db, err := database.Open(ctx, database.Config{
		Path:        a.cfg.Database.Path,
		WALMode:     a.cfg.Database.WALMode,
		BusyTimeout: a.cfg.Database.BusyTimeout,
	})
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close() //nolint:errcheck,gosec // Already failing
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	a.checks["database"] = db
	a.onClose(func() {
		if err := db.Close(); err != nil {
			a.log.Error("error closing database", "error", err)
		}
	})
	return audit.NewSQLiteRepository(db.DB), nil
}

func (a *app) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

// Close releases backends in reverse order of opening.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// mqttRecorder publishes each event on <prefix>/events/<operation>/<identity>.
func mqttRecorder(client *mqtt.Client) orchestrator.Recorder {
	return orchestrator.RecorderFunc(func(_ context.Context, ev orchestrator.Event) error {
		return client.PublishEvent(string(ev.Operation), ev.Identity, ev)
	})
}

// influxRecorder writes each event as an operation metric.
func influxRecorder(client *influxdb.Client) orchestrator.Recorder {
	return orchestrator.RecorderFunc(func(_ context.Context, ev orchestrator.Event) error {
		client.WriteOperationMetric(operationMetric(ev))
		return nil
	})
}

func operationMetric(ev orchestrator.Event) influxdb.OperationMetric {
	return influxdb.OperationMetric{
		Operation: string(ev.Operation),
		Identity:  ev.Identity,
		Transport: ev.Transport,
		Source:    ev.Source,
		Success:   ev.Success,
		ErrorKind: ev.ErrorKind,
		Verified:  ev.Verified,
		Duration:  ev.Duration,
		At:        ev.At,
	}
}

// configPathFromEnv returns $PAIRGEN_CONFIG or the default path.
func configPathFromEnv() string {
	if p := os.Getenv(configEnvVar); p != "" {
		return p
	}
	return defaultConfigPath
}
