package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

type Config struct {
	Debug                        bool          `envconfig:"debug"`
	Port                         int           `envconfig:"port" default:"8080"`
	Env                          string        `envconfig:"env" default:"dev"`
	BaseUrl                      string        `envconfig:"base_url" default:"http://localhost:3000"`
	StoreDriver                  string        `envconfig:"store_driver" default:"memory"`
	PostgresHost                 string        `envconfig:"postgres_host"`
	PostgresPort                 int           `envconfig:"postgres_port" default:"5432"`
	PostgresUser                 string        `envconfig:"postgres_user"`
	PostgresPassword             string        `envconfig:"postgres_password"`
	PostgresDB                   string        `envconfig:"postgres_db"`
	JWTSecret                    string        `envconfig:"jwt_secret"`
	AccessTokenTTL               time.Duration `envconfig:"access_token_ttl" default:"24h"`
	RefreshTokenTTL              time.Duration `envconfig:"refresh_token_ttl" default:"168h"`
	MailgunApiKey                string        `envconfig:"mg_public_api_key"`
	MgDomain                     string        `envconfig:"mg_domain"`
	MgEmailFrom                  string        `envconfig:"email_from" default:"SAKANY <no-reply@sakany.com>"`
	AWSRegion                    string        `envconfig:"aws_region"`
	AWSBucket                    string        `envconfig:"aws_bucket"`
	AWSAccessKeyID               string        `envconfig:"aws_access_key_id"`
	AWSSecretAccessKey           string        `envconfig:"aws_secret_access_key"`
	PublicUrl                    string        `envconfig:"public_url" default:"http://localhost:8080"`
	UploadDir                    string        `envconfig:"upload_dir" default:"uploads"`
	RedisURL                     string        `envconfig:"redis_url"`
	GoogleApplicationCredentials string        `envconfig:"google_application_credentials"`
	HeartbeatInterval            time.Duration `envconfig:"heartbeat_interval" default:"30s"`
	AccessControlAllowOrigin     string        `envconfig:"access_control_allow_origin"`
}

func Load() (*Config, error) {
	env := os.Getenv("GIN_MODE")
	if env != "release" {
		if err := godotenv.Load("./.env"); err != nil {
			log.Printf("couldn't load env vars: %v", err)
		}
	}

	c := &Config{}
	err := envconfig.Process("sakany", c)
	if err != nil {
		return nil, err
	}
	return c, nil
}
