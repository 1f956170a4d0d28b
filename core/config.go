package core

import (
	"fmt"
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Address              string
		Host                 string
		DebugHost            string
		ShutdownTimeout      time.Duration
		TokenExpirationDelta time.Duration
		DisableRequestLogs   bool
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
		InMemory      bool
	}

	GenerationConfig struct {
		APIKey  string
		Model   string
		BaseURL string
		Timeout time.Duration
	}
)

type Config struct {
	Debug    bool
	TestMode bool
	Env      string // DEV (local; default), TEST, QA, PROD
	Build    string
	AppName  string

	SecretKey         string
	FrontendBaseURL   string
	DefaultFromEmail  mail.Address
	CoordinatorEmails []mail.Address
	SendgridApiKey    string
	RollbarToken      string

	Server     ServerConfig
	Database   DatabaseConfig
	Generation GenerationConfig
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", true)
	v.SetDefault("build", "dev")
	v.SetDefault("appName", "ELISEEA Mobility")
	v.SetDefault("secretKey", "m0b1l1t3-s3cr3t!d3v-0nly#k3y-2b-ch4ng3d")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "ELISEEA <noreply@eliseea.eu>")
	v.SetDefault("coordinatorEmails", "Coordination ELISEEA <coordination@eliseea.eu>")

	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.debugHost", "localhost:4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.tokenExpirationDelta", 7*24*time.Hour)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "mobility")
	v.SetDefault("database.user", "mobility")
	v.SetDefault("database.password", "mobility")
	v.SetDefault("database.disableTLS", true)
	v.SetDefault("database.inMemory", true)

	v.SetDefault("generation.model", "gemini-2.5-flash")
	v.SetDefault("generation.baseURL", "https://generativelanguage.googleapis.com")
	v.SetDefault("generation.timeout", 30*time.Second)
}

// NewConfig reads the configuration from defaults, the optional config/.env.<env> file and the environment.
// Environment variables are prefixed by the upper-cased env name, e.g. DEV_DATABASE_HOST.
func NewConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	setDefaults(v)
	conf := new(Config)

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	conf.Env = env
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()
	_ = v.BindEnv("generation.apiKey", env+"_GENERATION_API_KEY")

	conf.Debug = v.GetBool("debug")
	conf.TestMode = v.GetBool("testMode")
	conf.Build = v.GetString("build")
	conf.AppName = v.GetString("appName")
	conf.SecretKey = v.GetString("secretKey")
	conf.FrontendBaseURL = v.GetString("frontendBaseURL")
	conf.SendgridApiKey = v.GetString("sendgridApiKey")
	conf.RollbarToken = v.GetString("rollbarToken")

	if addr, err := mail.ParseAddress(v.GetString("defaultFromEmail")); err == nil {
		conf.DefaultFromEmail = *addr
	} else {
		log.Fatalf("config.defaultFromEmail: %v", err)
	}
	conf.CoordinatorEmails = parseAddressList(v.GetString("coordinatorEmails"))

	conf.Server.Address = v.GetString("server.address")
	conf.Server.Host = v.GetString("server.host")
	conf.Server.DebugHost = v.GetString("server.debugHost")
	conf.Server.ShutdownTimeout = v.GetDuration("server.shutdownTimeout")
	conf.Server.TokenExpirationDelta = v.GetDuration("server.tokenExpirationDelta")
	conf.Server.DisableRequestLogs = v.GetBool("server.disableRequestLogs")

	conf.Database.Engine = v.GetString("database.engine")
	conf.Database.Host = v.GetString("database.host")
	conf.Database.Port = v.GetString("database.port")
	conf.Database.Name = v.GetString("database.name")
	conf.Database.User = v.GetString("database.user")
	conf.Database.Password = v.GetString("database.password")
	conf.Database.AdminUser = v.GetString("database.adminUser")
	conf.Database.AdminPassword = v.GetString("database.adminPassword")
	conf.Database.DisableTLS = v.GetBool("database.disableTLS")
	conf.Database.InMemory = v.GetBool("database.inMemory")

	conf.Generation.APIKey = v.GetString("generation.apiKey")
	if conf.Generation.APIKey == "" {
		conf.Generation.APIKey = os.Getenv("API_KEY")
	}
	conf.Generation.Model = v.GetString("generation.model")
	conf.Generation.BaseURL = v.GetString("generation.baseURL")
	conf.Generation.Timeout = v.GetDuration("generation.timeout")

	return conf
}

// Address returns the database "host:port".
func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func (c *Config) String() string {
	return fmt.Sprintf("%s (%s, build %s)", c.AppName, c.Env, c.Build)
}

// parseAddressList returns nil when the list is empty or malformed.
func parseAddressList(list string) []mail.Address {
	list = CleanString(list)
	if list == "" {
		return nil
	}
	parsed, err := mail.ParseAddressList(list)
	if err != nil {
		log.Printf("config.coordinatorEmails: %v", err)
		return nil
	}
	addrs := make([]mail.Address, 0, len(parsed))
	for _, a := range parsed {
		addrs = append(addrs, *a)
	}
	return addrs
}
