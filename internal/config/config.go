package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"cloudpico-metobs/internal/modules/weather/types"
)

const (
	DefaultDataURLTemplate = "https://opendata-download-metobs.smhi.se/api/version/latest/parameter/{parameter}/station/{station}/period/latest-months/data.csv"
	DefaultParams          = "1:Lufttemperatur:temperature_c,6:Relativ Luftfuktighet:humidity_pct"
	DefaultIndexColumns    = "Datum,Tid (UTC)"
	DefaultStationsDSN     = "file:stations?mode=memory&cache=shared"

	FetchAbort = "abort"
	FetchSkip  = "skip"

	CoerceFail = "fail"
	CoerceNull = "null"
)

type Config struct {
	AppEnv   string `validate:"oneof=dev prod"`
	LogLevel slog.Level

	// StationsFile is the semicolon separated reference table with station ids and names.
	StationsFile       string `validate:"required"`
	StationsIDColumn   string `validate:"required"`
	StationsNameColumn string `validate:"required"`
	StationsDSN        string `validate:"required"`
	SQLLog             bool

	// OutputDir is the absolute directory every downloaded, merged and rendered file goes to.
	OutputDir string `validate:"required"`

	Params       []types.Parameter `validate:"min=1,unique=Code,unique=Name,dive"`
	IndexColumns [2]string         `validate:"dive,required"`

	DataURLTemplate    string        `validate:"required,contains={parameter},contains={station}"`
	HTTPTimeout        time.Duration `validate:"gte=0"`
	FetchFailurePolicy string        `validate:"oneof=abort skip"`
	CoercePolicy       string        `validate:"oneof=fail null"`
	Charts             bool

	// MQTTBroker empty disables the telemetry export.
	MQTTBroker      string
	MQTTPort        int    `validate:"min=1,max=65535"`
	MQTTClientID    string `validate:"required"`
	MQTTTopicPrefix string `validate:"required"`
}

// ExportEnabled reports whether merged rows are published over MQTT.
func (c Config) ExportEnabled() bool {
	return c.MQTTBroker != ""
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func LoadFromEnv() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	appEnv := getenvDefault("APP_ENV", "dev")
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	level, err := parseLogLevel(getenvDefault("LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, err
	}

	outputDir := getenvDefault("OUTPUT_DIR", ".")
	outputDir, err = filepath.Abs(outputDir)
	if err != nil {
		return Config{}, fmt.Errorf("OUTPUT_DIR %q: %w", outputDir, err)
	}

	params, err := parseParams(getenvDefault("PARAMS", DefaultParams))
	if err != nil {
		return Config{}, err
	}

	index, err := parseIndexColumns(getenvDefault("INDEX_COLUMNS", DefaultIndexColumns))
	if err != nil {
		return Config{}, err
	}

	timeoutStr := getenvDefault("HTTP_TIMEOUT", "0s")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid HTTP_TIMEOUT %q: %w", timeoutStr, err)
	}

	sqlLog, err := getenvBool("SQL_LOG", false)
	if err != nil {
		return Config{}, err
	}
	charts, err := getenvBool("CHARTS", true)
	if err != nil {
		return Config{}, err
	}

	mqttPortStr := getenvDefault("MQTT_PORT", "1883")
	mqttPort, err := strconv.Atoi(mqttPortStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid MQTT_PORT %q: %w", mqttPortStr, err)
	}

	cfg := Config{
		AppEnv:             appEnv,
		LogLevel:           level,
		StationsFile:       getenvDefault("STATIONS_FILE", "stations.csv"),
		StationsIDColumn:   getenvDefault("STATIONS_ID_COLUMN", "Id"),
		StationsNameColumn: getenvDefault("STATIONS_NAME_COLUMN", "Namn"),
		StationsDSN:        getenvDefault("STATIONS_DB_DSN", DefaultStationsDSN),
		SQLLog:             sqlLog,
		OutputDir:          outputDir,
		Params:             params,
		IndexColumns:       index,
		DataURLTemplate:    getenvDefault("DATA_URL_TEMPLATE", DefaultDataURLTemplate),
		HTTPTimeout:        timeout,
		FetchFailurePolicy: strings.ToLower(getenvDefault("FETCH_FAILURE_POLICY", FetchAbort)),
		CoercePolicy:       strings.ToLower(getenvDefault("COERCE_POLICY", CoerceFail)),
		Charts:             charts,
		MQTTBroker:         getenvDefault("MQTT_BROKER", ""),
		MQTTPort:           mqttPort,
		MQTTClientID:       getenvDefault("MQTT_CLIENT_ID", "cloudpico-metobs"),
		MQTTTopicPrefix:    getenvDefault("MQTT_TOPIC_PREFIX", "stations"),
	}

	if err := validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// parseParams reads "code:name[:field]" entries separated by commas.
func parseParams(s string) ([]types.Parameter, error) {
	var out []types.Parameter
	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 3)
		if len(parts) < 2 {
			return nil, fmt.Errorf("invalid PARAMS entry %q (want code:name[:field])", entry)
		}
		code, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			return nil, fmt.Errorf("invalid PARAMS code %q: %w", parts[0], err)
		}
		p := types.Parameter{Code: code, Name: strings.TrimSpace(parts[1])}
		if len(parts) == 3 {
			p.Field = strings.TrimSpace(parts[2])
		}
		out = append(out, p)
	}
	return out, nil
}

func parseIndexColumns(s string) ([2]string, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return [2]string{}, fmt.Errorf("invalid INDEX_COLUMNS %q (want date,time)", s)
	}
	return [2]string{strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])}, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}

func getenvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return b, nil
}
