package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Debug     bool
		TestMode  bool
		Env       string // DEV (default), TEST, QA, PROD
		Build     string
		AppName   string
		SecretKey string

		Client       ClientConfig
		Server       ServerConfig
		RollbarToken string
	}

	// ClientConfig configures the API gateway and the builder session.
	ClientConfig struct {
		APIBaseURL     string
		APIToken       string
		RequestTimeout time.Duration
		PollInterval   time.Duration
	}

	// ServerConfig configures the stub course service.
	ServerConfig struct {
		Host               string
		Addr               string
		JWTExpirationDelta time.Duration
	}
)

// NewConfig loads the configuration from defaults, an optional
// config/.env.<env> file and prefixed environment variables.
func NewConfig() *Config {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", true)
	conf.SetDefault("appName", "Kozi")
	conf.SetDefault("secretKey", "w#36=bsp7jze)19o&up+v58cr$m-ihx4_q2t(ykd0an%gf!lc@")
	conf.SetDefault("apiBaseURL", "http://localhost:8000/v1")
	conf.SetDefault("apiToken", "")
	conf.SetDefault("requestTimeout", 30*time.Second)
	conf.SetDefault("pollInterval", 3*time.Second)
	conf.SetDefault("serverHost", "localhost")
	conf.SetDefault("serverAddr", ":8000")
	conf.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	conf.SetDefault("rollbarToken", "")
	conf.SetDefault("build", "")

	env := os.Getenv("ENV")
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		conf.SetDefault("testMode", true)
	}
	conf.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	return &Config{
		Debug:     conf.GetBool("debug"),
		TestMode:  conf.GetBool("testMode"),
		Env:       env,
		Build:     conf.GetString("build"),
		AppName:   conf.GetString("appName"),
		SecretKey: conf.GetString("secretKey"),
		Client: ClientConfig{
			APIBaseURL:     conf.GetString("apiBaseURL"),
			APIToken:       conf.GetString("apiToken"),
			RequestTimeout: conf.GetDuration("requestTimeout"),
			PollInterval:   conf.GetDuration("pollInterval"),
		},
		Server: ServerConfig{
			Host:               conf.GetString("serverHost"),
			Addr:               conf.GetString("serverAddr"),
			JWTExpirationDelta: conf.GetDuration("jwtExpirationDelta"),
		},
		RollbarToken: conf.GetString("rollbarToken"),
	}
}

// Getwd tries to find the project root (the directory holding go.mod).
// go-test changes the working directory to the package being run, which
// breaks relative asset paths.
// see: https://stackoverflow.com/questions/23847003/golang-tests-and-working-directory
func Getwd() string {
	wd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}
	currDir := wd
	for {
		if _, err := os.Stat(filepath.Join(currDir, "go.mod")); err == nil {
			return currDir
		}
		newDir := filepath.Dir(currDir)
		if newDir == string(os.PathSeparator) || newDir == currDir {
			return wd
		}
		currDir = newDir
	}
}
