package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config agrupa la configuración de la aplicación (lectura vía Viper desde env y opcionalmente archivo).
type Config struct {
	App       AppConfig
	DB        DBConfig
	JWT       JWTConfig
	HTTP      HTTPConfig
	FDMS      FDMSConfig
	Scheduler SchedulerConfig
	Kafka     KafkaConfig
}

// AppConfig configuración general de la aplicación.
type AppConfig struct {
	Env            string // development, staging, production
	Name           string
	LogLevel       string
	SecretKey      string // hex de 32 bytes para sellar activation_key y tokens; vacío = sin cifrado
	MigrationsPath string
}

// DBConfig configuración de PostgreSQL.
// Si DatabaseURL no está vacío, se usa como connection string completo.
type DBConfig struct {
	DatabaseURL string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
}

// ConnectionString devuelve el DSN a usar: DATABASE_URL si está definido, si no el construido con DSN().
func (c DBConfig) ConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.DSN()
}

// DSN devuelve el connection string para PostgreSQL con URL encoding para caracteres especiales.
func (c DBConfig) DSN() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s", c.SSLMode),
	}
	return u.String()
}

// JWTConfig configuración de JWT para operadores.
type JWTConfig struct {
	Secret     string
	Expiration int // minutos
	Issuer     string
}

// HTTPConfig configuración del servidor HTTP.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr devuelve la dirección de escucha (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// FDMSConfig parámetros del servicio fiscal ZIMRA (FDMS).
type FDMSConfig struct {
	DefaultBaseURL string
	Timeout        time.Duration // presupuesto fijo por llamada (15 s)
}

// SchedulerConfig tareas desatendidas. Las ventanas se expresan en "HH:MM".
type SchedulerConfig struct {
	Enabled        bool
	StatusInterval time.Duration
	TokenInterval  time.Duration
	DayJobInterval time.Duration
	OpenWindow     string // ej. "00:00-00:30"
	CloseWindow    string // ej. "23:30-00:00"
}

// KafkaConfig publicación de eventos fiscales. Sin brokers = publicador nulo.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// Load lee la configuración desde variables de entorno (y opcionalmente desde archivo).
// Las env vars tienen prioridad. Nombres esperados: APP_ENV, DB_HOST, FDMS_TIMEOUT_SECONDS, etc.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // ignoramos error si no existe

	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		App: AppConfig{
			Env:            getString(v, "APP_ENV", "development"),
			Name:           getString(v, "APP_NAME", "zimra-fiscal"),
			LogLevel:       getString(v, "LOG_LEVEL", "info"),
			SecretKey:      getString(v, "SECRET_KEY", ""),
			MigrationsPath: getString(v, "MIGRATIONS_PATH", "migrations"),
		},
		DB: DBConfig{
			DatabaseURL: getString(v, "DATABASE_URL", ""),
			Host:        getString(v, "DB_HOST", "localhost"),
			Port:        getInt(v, "DB_PORT", 5432),
			User:        getString(v, "DB_USER", "postgres"),
			Password:    getString(v, "DB_PASSWORD", ""),
			DBName:      getString(v, "DB_NAME", "zimra_fiscal"),
			SSLMode:     getString(v, "DB_SSLMODE", "disable"),
		},
		JWT: JWTConfig{
			Secret:     getString(v, "JWT_SECRET", ""),
			Expiration: getInt(v, "JWT_EXPIRATION_MINUTES", 60),
			Issuer:     getString(v, "JWT_ISSUER", "zimra-fiscal"),
		},
		HTTP: HTTPConfig{
			Host: getString(v, "HTTP_HOST", "0.0.0.0"),
			Port: getInt(v, "HTTP_PORT", 8080),
		},
		FDMS: FDMSConfig{
			DefaultBaseURL: getString(v, "FDMS_DEFAULT_BASE_URL", "https://fiscal-demo.telco.co.zw"),
			Timeout:        time.Duration(getInt(v, "FDMS_TIMEOUT_SECONDS", 15)) * time.Second,
		},
		Scheduler: SchedulerConfig{
			Enabled:        getBool(v, "SCHEDULER_ENABLED", true),
			StatusInterval: time.Duration(getInt(v, "SCHEDULER_STATUS_MINUTES", 30)) * time.Minute,
			TokenInterval:  time.Duration(getInt(v, "SCHEDULER_TOKEN_MINUTES", 30)) * time.Minute,
			DayJobInterval: time.Duration(getInt(v, "SCHEDULER_DAY_JOB_MINUTES", 5)) * time.Minute,
			OpenWindow:     getString(v, "SCHEDULER_OPEN_WINDOW", "00:00-00:30"),
			CloseWindow:    getString(v, "SCHEDULER_CLOSE_WINDOW", "23:30-00:00"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(getString(v, "KAFKA_BROKERS", "")),
			Topic:   getString(v, "KAFKA_TOPIC", "fiscal-events"),
		},
	}

	if cfg.FDMS.Timeout <= 0 {
		return nil, fmt.Errorf("FDMS_TIMEOUT_SECONDS debe ser positivo")
	}
	return cfg, nil
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if v.IsSet(key) {
		switch v.Get(key).(type) {
		case int:
			return v.GetInt(key)
		case string:
			n, err := strconv.Atoi(v.GetString(key))
			if err != nil {
				return def
			}
			return n
		default:
			return v.GetInt(key)
		}
	}
	return def
}

func getBool(v *viper.Viper, key string, def bool) bool {
	if v.IsSet(key) {
		return v.GetBool(key)
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
