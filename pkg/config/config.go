package config

import (
	"fmt"
	"strconv"
	"strings"

	"rfm-segments/pkg/calculator"
	"rfm-segments/pkg/database"
	"rfm-segments/pkg/models"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// EnvPrefix : RFM_DSN, RFM_ANALYSIS_DATE, ...
const EnvPrefix = "RFM"

// Config regroupe les paramètres d'un run (fichier YAML, environnement, flags).
type Config struct {
	Input        string   `mapstructure:"input"`         // CSV FLO
	DSN          string   `mapstructure:"dsn"`           // mariadb:// ou mysql://
	Table        string   `mapstructure:"table"`         // table FLO si DSN
	AnalysisDate string   `mapstructure:"analysis_date"` // YYYY-MM-DD
	Segments     []string `mapstructure:"segments"`
	Interest     string   `mapstructure:"interest"`
	Output       string   `mapstructure:"output"`
	Report       string   `mapstructure:"report"` // .json / .yaml, vide = pas de rapport
	TopN         int      `mapstructure:"top_n"`
	LogLevel     string   `mapstructure:"log_level"`
	Verbose      bool     `mapstructure:"verbose"`
}

func defaults() map[string]any {
	return map[string]any{
		"input":         "",
		"dsn":           "",
		"table":         database.DefaultTable,
		"analysis_date": "",
		"segments":      []string{},
		"interest":      "",
		"output":        "target_customers.csv",
		"report":        "",
		"top_n":         10,
		"log_level":     "info",
		"verbose":       false,
	}
}

// Load lit le fichier (optionnel) puis l'environnement RFM_*.
// Une clé présente dans le fichier l'emporte sur l'environnement.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	for k, val := range defaults() {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config failed: %w", err)
		}
	}
	for k := range defaults() {
		if v.InConfig(k) {
			continue
		}
		if err := v.BindEnv(k); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", k, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config failed: %w", err)
	}
	cfg.Segments = splitList(cfg.Segments)
	return &cfg, nil
}

// splitList accepte ["a,b"] (env / flag) comme ["a", "b"].
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// Set applique une valeur de flag (même nom que la clé de config).
func (c *Config) Set(name, value string) error {
	switch name {
	case "input":
		c.Input = value
	case "dsn":
		c.DSN = value
	case "table":
		c.Table = value
	case "analysis_date":
		c.AnalysisDate = value
	case "segments":
		c.Segments = splitList([]string{value})
	case "interest":
		c.Interest = value
	case "output":
		c.Output = value
	case "report":
		c.Report = value
	case "log_level":
		c.LogLevel = value
	case "top_n":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("top_n: %w", err)
		}
		c.TopN = n
	case "v", "verbose":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("verbose: %w", err)
		}
		c.Verbose = b
	default:
		return fmt.Errorf("unknown setting %q", name)
	}
	return nil
}

// Validate vérifie la cohérence de la configuration.
func (c *Config) Validate() error {
	if (c.Input == "") == (c.DSN == "") {
		return fmt.Errorf("exactly one of input or dsn is required")
	}
	if c.DSN != "" && c.Table == "" {
		return fmt.Errorf("table is required with dsn")
	}
	if c.AnalysisDate == "" {
		return fmt.Errorf("analysis_date is required")
	}
	if _, err := calculator.ParseAnalysisDate(c.AnalysisDate); err != nil {
		return fmt.Errorf("analysis_date: %w", err)
	}
	if _, err := calculator.ParseSegments(strings.Join(c.Segments, ",")); err != nil {
		return fmt.Errorf("segments: %w", err)
	}
	if c.Interest == "" {
		return fmt.Errorf("interest is required")
	}
	if c.Output == "" {
		return fmt.Errorf("output is required")
	}
	if c.TopN < 0 {
		return fmt.Errorf("top_n must be >= 0")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return nil
}

// Engine convertit la config validée en paramètres du moteur.
func (c *Config) Engine(runID string) (models.Config, error) {
	date, err := calculator.ParseAnalysisDate(c.AnalysisDate)
	if err != nil {
		return models.Config{}, err
	}
	segs, err := calculator.ParseSegments(strings.Join(c.Segments, ","))
	if err != nil {
		return models.Config{}, err
	}
	return models.Config{
		RunID:        runID,
		AnalysisDate: date,
		Target:       models.TargetRule{Segments: segs, Interest: c.Interest},
		TopN:         c.TopN,
		Verbose:      c.Verbose,
	}, nil
}
