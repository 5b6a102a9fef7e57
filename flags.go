package main

import (
	"remo-humidifier/adapters"
	"remo-humidifier/application"

	"github.com/urfave/cli/v2"
)

var FlagLogLevel = &cli.StringFlag{
	Name:     "log-level",
	EnvVars:  []string{"LOG_LEVEL"},
	Value:    "info",
	Required: false,
}

var FlagLogWriter = &cli.StringFlag{
	Name:     "log-writer",
	Usage:    "one of: [console, json]",
	EnvVars:  []string{"LOG_WRITER"},
	Value:    "console",
	Required: false,
}

var FlagSpreadsheetID = &cli.StringFlag{
	Name:    "spreadsheet-id",
	Usage:   "google spreadsheet holding LOW/HIGH/MODE",
	EnvVars: []string{"YOUR_SPREADSHEET_ID", "SPREADSHEET_ID"},
}

var FlagSheetName = &cli.StringFlag{
	Name:    "sheet-name",
	EnvVars: []string{"SHEET_NAME"},
	Value:   adapters.SheetsDefaultSheetName,
}

var FlagCredentialsPath = &cli.StringFlag{
	Name:    "credentials-path",
	Usage:   "google OAuth client credentials file",
	EnvVars: []string{"CREDENTIALS_PATH"},
	Value:   adapters.CredentialsDefaultPath,
}

var FlagTokenPath = &cli.StringFlag{
	Name:    "token-path",
	Usage:   "file the authorized user token is saved to",
	EnvVars: []string{"TOKEN_PATH"},
	Value:   adapters.TokenDefaultPath,
}

var FlagRemoAccessToken = &cli.StringFlag{
	Name:    "remo-access-token",
	Usage:   "nature remo cloud api access token",
	EnvVars: []string{"REMO_ACCESS_TOKEN"},
}

var FlagRemoAPIURL = &cli.StringFlag{
	Name:    "remo-api-url",
	EnvVars: []string{"REMO_API_URL"},
	Value:   adapters.RemoDefaultAPIURL,
}

var FlagSpeakerSignalID = &cli.StringFlag{
	Name:    "speaker-signal-id",
	EnvVars: []string{"SPEAKER_SIGNAL_ID"},
}

var FlagHumidifierSignalID = &cli.StringFlag{
	Name:    "humidifier-signal-id",
	EnvVars: []string{"HUMIDIFIER_SIGNAL_ID"},
}

var FlagPollInterval = &cli.DurationFlag{
	Name:    "poll-interval",
	EnvVars: []string{"POLL_INTERVAL"},
	Value:   application.SchedulerDefaultInterval,
}

var FlagHTTPTimeout = &cli.DurationFlag{
	Name:    "http-timeout",
	Usage:   "timeout for nature remo requests",
	EnvVars: []string{"HTTP_TIMEOUT"},
	Value:   adapters.RemoDefaultTimeout,
}

var FlagHTTPAddr = &cli.StringFlag{
	Name:    "http-addr",
	Usage:   "status server address, empty disables it",
	EnvVars: []string{"HTTP_ADDR"},
}

var FlagMQTTUrl = &cli.StringFlag{
	Name:    "mqtt-url",
	Usage:   "tcp://broker:port, empty disables state publishing",
	EnvVars: []string{"MQTT_URL"},
}

var FlagMQTTClientID = &cli.StringFlag{
	Name:    "mqtt-client-id",
	EnvVars: []string{"MQTT_CLIENT_ID"},
	Value:   adapters.MQTTDefaultClientID,
}

var FlagMQTTReconnectInterval = &cli.DurationFlag{
	Name:    "mqtt-reconnect-interval",
	Usage:   "wait between connect attempts while the broker is unreachable at startup",
	EnvVars: []string{"MQTT_RECONNECT_INTERVAL"},
	Value:   application.MQTTDefaultReconnectInterval,
}

var FlagMQTTUsername = &cli.StringFlag{
	Name:    "mqtt-username",
	EnvVars: []string{"MQTT_USERNAME"},
}

var FlagMQTTPassword = &cli.StringFlag{
	Name:    "mqtt-password",
	EnvVars: []string{"MQTT_PASSWORD"},
}

var FlagMQTTTopic = &cli.StringFlag{
	Name:    "mqtt-topic",
	EnvVars: []string{"MQTT_TOPIC"},
	Value:   adapters.MQTTDefaultTopic,
}
