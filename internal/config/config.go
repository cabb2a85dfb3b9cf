package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr           string
	WordsFile      string
	DatabaseURL    string
	LogLevel       string
	LogFormat      string
	AllowedOrigins []string
	MsgRate        float64
	MsgBurst       int
}

// Load reads an optional .env file, then the environment. Variables already
// set in the environment win over the file.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, err
	}

	cfg := Config{
		Addr:           getenv("ADDR", ":8080"),
		WordsFile:      os.Getenv("WORDS_FILE"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		LogLevel:       getenv("LOG_LEVEL", "info"),
		LogFormat:      getenv("LOG_FORMAT", "json"),
		AllowedOrigins: splitList(os.Getenv("ALLOWED_ORIGINS")),
	}

	var err error
	if cfg.MsgRate, err = strconv.ParseFloat(getenv("MSG_RATE", "60"), 64); err != nil {
		return Config{}, errors.New("MSG_RATE must be a number")
	}
	if cfg.MsgBurst, err = strconv.Atoi(getenv("MSG_BURST", "120")); err != nil {
		return Config{}, errors.New("MSG_BURST must be an integer")
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
