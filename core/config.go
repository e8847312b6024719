package core

import (
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnginePostgres = "postgres"
	EngineBolt     = "bolt"

	StorageB2   = "b2"
	StorageDisk = "disk"
)

type (
	ServerConfig struct {
		Host               string
		Address            string
		DebugHost          string
		ShutdownTimeout    time.Duration
		JWTExpirationDelta time.Duration
		CORSAllowOrigins   []string
	}

	DatabaseConfig struct {
		Engine        string // postgres | bolt
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
		BoltPath      string
	}

	StorageConfig struct {
		Driver      string // b2 | disk
		DiskRoot    string
		DiskBaseURL string
		B2KeyID     string
		B2AppKey    string
		B2Bucket    string
	}

	UploadConfig struct {
		MaxBytes int64
	}

	Config struct {
		Env          string
		Debug        bool
		TestMode     bool
		AppName      string
		Build        string
		SecretKey    string
		RollbarToken string
		Server       ServerConfig
		Database     DatabaseConfig
		Storage      StorageConfig
		Upload       UploadConfig
	}
)

// Address returns the database "host:port".
func (dbc DatabaseConfig) Address() string {
	if dbc.Port == "" {
		return dbc.Host
	}
	return net.JoinHostPort(dbc.Host, dbc.Port)
}

// NewConfig loads the app configuration from defaults, config/.env.<env> and the environment.
// Environment variables are prefixed by ENV, e.g.: DEV_DATABASE_HOST, PROD_SECRETKEY.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "Soma")
	v.SetDefault("build", "develop")
	v.SetDefault("secretKey", "u8#k2v@9dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy-soma")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.corsAllowOrigins", []string{"*"})
	v.SetDefault("database.engine", EnginePostgres)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "soma")
	v.SetDefault("database.user", "soma")
	v.SetDefault("database.password", "soma")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "postgres")
	v.SetDefault("database.disableTLS", true)
	v.SetDefault("database.boltPath", filepath.Join("data", "soma.db"))
	v.SetDefault("storage.driver", StorageDisk)
	v.SetDefault("storage.diskRoot", filepath.Join("data", "uploads"))
	v.SetDefault("storage.diskBaseURL", "http://localhost:8000/files")
	v.SetDefault("storage.b2KeyID", "")
	v.SetDefault("storage.b2AppKey", "")
	v.SetDefault("storage.b2Bucket", "")
	v.SetDefault("upload.maxBytes", int64(10<<20))

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	if root, ok := projectRoot(); ok {
		dotEnvPath := filepath.Join(root, "config", ".env."+strings.ToLower(env))
		if _, err := os.Stat(dotEnvPath); err == nil {
			if err := godotenv.Load(dotEnvPath); err != nil {
				log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
			}
		} else if !os.IsNotExist(err) {
			log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
		}
	}
	v.AutomaticEnv()

	return &Config{
		Env:          env,
		Debug:        v.GetBool("debug"),
		TestMode:     v.GetBool("testMode"),
		AppName:      v.GetString("appName"),
		Build:        v.GetString("build"),
		SecretKey:    v.GetString("secretKey"),
		RollbarToken: v.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:               v.GetString("server.host"),
			Address:            v.GetString("server.address"),
			DebugHost:          v.GetString("server.debugHost"),
			ShutdownTimeout:    v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta: v.GetDuration("server.jwtExpirationDelta"),
			CORSAllowOrigins:   v.GetStringSlice("server.corsAllowOrigins"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
			BoltPath:      v.GetString("database.boltPath"),
		},
		Storage: StorageConfig{
			Driver:      v.GetString("storage.driver"),
			DiskRoot:    v.GetString("storage.diskRoot"),
			DiskBaseURL: v.GetString("storage.diskBaseURL"),
			B2KeyID:     v.GetString("storage.b2KeyID"),
			B2AppKey:    v.GetString("storage.b2AppKey"),
			B2Bucket:    v.GetString("storage.b2Bucket"),
		},
		Upload: UploadConfig{
			MaxBytes: v.GetInt64("upload.maxBytes"),
		},
	}
}

// projectRoot walks up from the working directory until it finds go.mod.
// go test runs from the package directory, so a fixed relative path does not work.
func projectRoot() (string, bool) {
	wd, err := os.Getwd()
	if err != nil {
		return "", false
	}
	currDir := wd
	for {
		if _, err := os.Stat(filepath.Join(currDir, "go.mod")); err == nil {
			return currDir, true
		}
		newDir := filepath.Dir(currDir)
		if newDir == currDir {
			return "", false
		}
		currDir = newDir
	}
}
