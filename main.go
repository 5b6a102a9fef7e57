package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"remo-humidifier/adapters"
	"remo-humidifier/application"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const defaultEnvFile = ".env"

var Flags = []cli.Flag{
	FlagLogLevel,
	FlagLogWriter,
	FlagSpreadsheetID,
	FlagSheetName,
	FlagCredentialsPath,
	FlagTokenPath,
	FlagRemoAccessToken,
	FlagRemoAPIURL,
	FlagSpeakerSignalID,
	FlagHumidifierSignalID,
	FlagPollInterval,
	FlagHTTPTimeout,
	FlagHTTPAddr,
	FlagMQTTUrl,
	FlagMQTTClientID,
	FlagMQTTReconnectInterval,
	FlagMQTTUsername,
	FlagMQTTPassword,
	FlagMQTTTopic,
}

func main() {
	var baseLogger, logger zerolog.Logger

	// .env has to be in the environment before cli reads EnvVars
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = defaultEnvFile
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to load %s: %v\n", envFile, err)
		os.Exit(1)
	}

	app := cli.App{
		Name:    "remo-humidifier",
		Usage:   "switches a humidifier from nature remo humidity and spreadsheet thresholds",
		Version: "v0.1.0",
		Flags:   Flags,
		Before: func(ctx *cli.Context) error {
			var logWriter io.Writer
			switch ctx.String(FlagLogWriter.Name) {
			case "console":
				logWriter = zerolog.ConsoleWriter{
					Out:        os.Stderr,
					TimeFormat: time.RFC3339Nano,
				}
			case "json":
				logWriter = os.Stderr
			default:
				return fmt.Errorf("invalid log writer %q", ctx.String(FlagLogWriter.Name))
			}

			baseLogger = zerolog.New(logWriter).With().Timestamp().
				Str("service", "remo-humidifier").
				Logger()
			logger = moduleLogger(baseLogger, "main")

			level, err := zerolog.ParseLevel(ctx.String(FlagLogLevel.Name))
			if err != nil {
				return err
			}

			zerolog.SetGlobalLevel(level)

			return nil
		},
		Action: func(ctx *cli.Context) error {
			logger.Info().Msg("service starting...")

			appCtx, cancel := context.WithCancel(logger.WithContext(context.Background()))
			defer cancel()
			go func() {
				c := make(chan os.Signal, 1)
				signal.Notify(c, os.Interrupt, syscall.SIGTERM)

				<-c

				logger.Warn().Msg("interrupt signal received")
				cancel()
			}()

			for _, name := range missingIdentifiers(ctx.String) {
				logger.Warn().Str("flag", name).Msg("not configured, operations using it will be skipped")
			}

			credentialManager := adapters.NewCredentialManager(adapters.CredentialManagerParams{
				CredentialsPath: ctx.String(FlagCredentialsPath.Name),
				TokenPath:       ctx.String(FlagTokenPath.Name),
				Log:             moduleLogger(baseLogger, "credentials"),
			})
			tokenSource, err := credentialManager.Authorize(appCtx)
			if err != nil {
				return err
			}

			sheetsService, err := sheets.NewService(appCtx, option.WithTokenSource(tokenSource))
			if err != nil {
				return fmt.Errorf("create sheets service: %w", err)
			}

			sheetsReader, err := adapters.NewSheetsReader(adapters.SheetsReaderParams{
				SpreadsheetID: ctx.String(FlagSpreadsheetID.Name),
				SheetName:     ctx.String(FlagSheetName.Name),
				Service:       sheetsService,
				Log:           moduleLogger(baseLogger, "sheets-reader"),
			})
			if err != nil {
				return err
			}

			remoClient, err := adapters.NewRemoClient(adapters.RemoClientParams{
				AccessToken: ctx.String(FlagRemoAccessToken.Name),
				APIURL:      ctx.String(FlagRemoAPIURL.Name),
				Timeout:     ctx.Duration(FlagHTTPTimeout.Name),
				Log:         moduleLogger(baseLogger, "remo-client"),
			})
			if err != nil {
				return err
			}

			controller, err := application.NewController(application.ControllerParams{
				HubClient:       remoClient,
				ThresholdReader: sheetsReader,
				Speaker:         application.SignalTarget{Name: "speaker", ID: ctx.String(FlagSpeakerSignalID.Name)},
				Humidifier:      application.SignalTarget{Name: "humidifier", ID: ctx.String(FlagHumidifierSignalID.Name)},
				Log:             moduleLogger(baseLogger, "controller"),
			})
			if err != nil {
				return err
			}

			serviceParams := application.HumidifierServiceParams{
				Controller:   controller,
				PollInterval: ctx.Duration(FlagPollInterval.Name),
				Log:          moduleLogger(baseLogger, "humidifier-service"),
			}

			if mqttURL := ctx.String(FlagMQTTUrl.Name); mqttURL != "" {
				mqttClient := adapters.NewMQTTClient(adapters.MQTTClientParams{
					ClientID: ctx.String(FlagMQTTClientID.Name),
					Username: ctx.String(FlagMQTTUsername.Name),
					Password: ctx.String(FlagMQTTPassword.Name),
					MQTTUrl:  mqttURL,
					Log:      moduleLogger(baseLogger, "mqtt-client"),
				})
				defer mqttClient.Close()

				publisher, err := application.NewMQTTStatePublisher(mqttClient, ctx.String(FlagMQTTTopic.Name))
				if err != nil {
					return err
				}
				serviceParams.MQTTClient = mqttClient
				serviceParams.MQTTReconnectInterval = ctx.Duration(FlagMQTTReconnectInterval.Name)
				serviceParams.StatePublisher = publisher
			}

			humidifierService, err := application.NewHumidifierService(serviceParams)
			if err != nil {
				return err
			}

			g, gctx := errgroup.WithContext(appCtx)
			g.Go(func() error {
				return humidifierService.Run(gctx)
			})

			if addr := ctx.String(FlagHTTPAddr.Name); addr != "" {
				statusServer, err := adapters.NewStatusServer(adapters.StatusServerParams{
					Addr:     addr,
					Provider: humidifierService,
					Log:      moduleLogger(baseLogger, "status-server"),
				})
				if err != nil {
					return err
				}
				g.Go(func() error {
					return statusServer.Run(gctx)
				})
			}

			logger.Info().Msg("service started")
			if err := g.Wait(); err != nil {
				return err
			}

			logger.Info().Msg("service terminating...")
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Err(err).Msg("service terminated")
		os.Exit(1)
	}
}

func moduleLogger(logger zerolog.Logger, module string) zerolog.Logger {
	return logger.With().Str("module", module).Logger()
}

// missingIdentifiers lists the identifier flags the adapters will treat as unset.
func missingIdentifiers(lookup func(name string) string) []string {
	var missing []string
	for _, f := range []*cli.StringFlag{
		FlagSpreadsheetID,
		FlagRemoAccessToken,
		FlagSpeakerSignalID,
		FlagHumidifierSignalID,
	} {
		if adapters.IsPlaceholder(lookup(f.Name)) {
			missing = append(missing, f.Name)
		}
	}
	return missing
}
