package config

import (
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	configFileEnvName = "STOREFRONT_CONFIG_FILE"
	envPrefix         = "STOREFRONT"
)

type httpServer struct {
	Addr              string        `mapstructure:"addr"`
	HandlerTimeout    time.Duration `mapstructure:"handler_timeout"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	CheckoutRPS       float64       `mapstructure:"checkout_rps"`
	CheckoutBurst     int           `mapstructure:"checkout_burst"`
}

type sqlDB struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type redis struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	CartTTL  time.Duration `mapstructure:"cart_ttl"`
}

type brokerTLS struct {
	CA   string `mapstructure:"ca"`
	Cert string `mapstructure:"cert"`
	Key  string `mapstructure:"key"`
}

func (t brokerTLS) Enabled() bool {
	return t.CA != ""
}

type brokerSASL struct {
	User string `mapstructure:"user"`
	Pass string `mapstructure:"pass"`
}

type topics struct {
	Notifications     string `mapstructure:"notifications"`
	EmailMetricEvents string `mapstructure:"email_metric_events"`
}

type consumers struct {
	NotificationGroup string `mapstructure:"notification_group"`
	EmailStatsGroup   string `mapstructure:"email_stats_group"`
}

type broker struct {
	SeedBrokers        []string   `mapstructure:"seed_brokers"`
	SchemaRegistryURLs []string   `mapstructure:"schema_registry_urls"`
	TLS                brokerTLS  `mapstructure:"tls"`
	SASL               brokerSASL `mapstructure:"sasl"`
	Topics             topics     `mapstructure:"topics"`
	Consumers          consumers  `mapstructure:"consumers"`
}

type auth struct {
	JWTSecret     string `mapstructure:"jwt_secret"`
	JWTPublicKey  string `mapstructure:"jwt_public_key"`
	JWTIssuer     string `mapstructure:"jwt_issuer"`
	WebhookSecret string `mapstructure:"webhook_secret"`
}

type pricing struct {
	TaxRate          decimal.Decimal `mapstructure:"tax_rate"`
	Shipping         decimal.Decimal `mapstructure:"shipping"`
	FreeShippingFrom decimal.Decimal `mapstructure:"free_shipping_from"`
}

type smtp struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type whatsApp struct {
	Enabled       bool          `mapstructure:"enabled"`
	APIURL        string        `mapstructure:"api_url"`
	PhoneNumberID string        `mapstructure:"phone_number_id"`
	Token         string        `mapstructure:"token"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

type notify struct {
	// Mode "log" replaces real transports with log output.
	Mode        string   `mapstructure:"mode"`
	MaxAttempts int      `mapstructure:"max_attempts"`
	SMTP        smtp     `mapstructure:"smtp"`
	WhatsApp    whatsApp `mapstructure:"whatsapp"`
}

func (n notify) LogMode() bool {
	return n.Mode == "log"
}

type Config struct {
	LogLevel slog.Level `mapstructure:"log_level"`
	HTTP     httpServer `mapstructure:"http"`
	SQLDB    sqlDB      `mapstructure:"sql_db"`
	Redis    redis      `mapstructure:"redis"`
	Broker   broker     `mapstructure:"broker"`
	Auth     auth       `mapstructure:"auth"`
	Pricing  pricing    `mapstructure:"pricing"`
	Notify   notify     `mapstructure:"notify"`
}

// Load reads the config file named by the --config flag or the
// STOREFRONT_CONFIG_FILE env and exits the process on failure.
func Load() Config {
	cfg, err := LoadFile(getConfigFilepath())
	if err != nil {
		die(err)
	}
	return cfg
}

// LoadFile reads the YAML config at path. STOREFRONT_* env variables
// override file values, e.g. STOREFRONT_SQL_DB_DSN for sql_db.dsn.
func LoadFile(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return Config{}, err
	}

	var cfg Config
	err := v.UnmarshalExact(&cfg, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			decimalHookFunc(),
			mapstructure.TextUnmarshallerHookFunc(),
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	))
	if err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.handler_timeout", 5*time.Second)
	v.SetDefault("http.read_header_timeout", 5*time.Second)
	v.SetDefault("http.idle_timeout", 2*time.Second)
	v.SetDefault("http.checkout_rps", 1)
	v.SetDefault("http.checkout_burst", 5)

	v.SetDefault("sql_db.dsn", "")
	v.SetDefault("sql_db.max_open_conns", 10)
	v.SetDefault("sql_db.max_idle_conns", 5)
	v.SetDefault("sql_db.conn_max_lifetime", 30*time.Minute)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.cart_ttl", 7*24*time.Hour)

	v.SetDefault("broker.seed_brokers", []string{})
	v.SetDefault("broker.schema_registry_urls", []string{})
	v.SetDefault("broker.tls.ca", "")
	v.SetDefault("broker.tls.cert", "")
	v.SetDefault("broker.tls.key", "")
	v.SetDefault("broker.sasl.user", "")
	v.SetDefault("broker.sasl.pass", "")
	v.SetDefault("broker.topics.notifications", "order-notifications")
	v.SetDefault("broker.topics.email_metric_events", "email-metric-events")
	v.SetDefault("broker.consumers.notification_group", "notification-dispatcher")
	v.SetDefault("broker.consumers.email_stats_group", "email-metric-stats")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.jwt_public_key", "")
	v.SetDefault("auth.jwt_issuer", "")
	v.SetDefault("auth.webhook_secret", "")

	v.SetDefault("pricing.tax_rate", "0.16")
	v.SetDefault("pricing.shipping", "150")
	v.SetDefault("pricing.free_shipping_from", "1500")

	v.SetDefault("notify.mode", "smtp")
	v.SetDefault("notify.max_attempts", 5)
	v.SetDefault("notify.smtp.host", "")
	v.SetDefault("notify.smtp.port", 587)
	v.SetDefault("notify.smtp.user", "")
	v.SetDefault("notify.smtp.password", "")
	v.SetDefault("notify.smtp.from", "")
	v.SetDefault("notify.whatsapp.enabled", false)
	v.SetDefault("notify.whatsapp.api_url", "https://graph.facebook.com/v19.0")
	v.SetDefault("notify.whatsapp.phone_number_id", "")
	v.SetDefault("notify.whatsapp.token", "")
	v.SetDefault("notify.whatsapp.timeout", 10*time.Second)
}

// decimalHookFunc decodes YAML numbers and strings into [decimal.Decimal].
func decimalHookFunc() mapstructure.DecodeHookFuncType {
	target := reflect.TypeOf(decimal.Decimal{})
	return func(from, to reflect.Type, data any) (any, error) {
		if to != target {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return decimal.NewFromString(strings.TrimSpace(v))
		case float64:
			return decimal.NewFromFloat(v), nil
		case int:
			return decimal.NewFromInt(int64(v)), nil
		case int64:
			return decimal.NewFromInt(v), nil
		}
		return data, nil
	}
}

func (c Config) validate() error {
	var errs []string
	if c.SQLDB.DSN == "" {
		errs = append(errs, "sql_db.dsn: required")
	}
	if len(c.Broker.SeedBrokers) == 0 {
		errs = append(errs, "broker.seed_brokers: required")
	}
	if len(c.Broker.SchemaRegistryURLs) == 0 {
		errs = append(errs, "broker.schema_registry_urls: required")
	}
	if c.Auth.JWTSecret == "" && c.Auth.JWTPublicKey == "" {
		errs = append(errs, "auth: jwt_secret or jwt_public_key required")
	}
	if c.Auth.WebhookSecret == "" {
		errs = append(errs, "auth.webhook_secret: required")
	}
	if !c.Notify.LogMode() && c.Notify.SMTP.Host == "" {
		errs = append(errs, "notify.smtp.host: required unless notify.mode is log")
	}
	if c.Pricing.TaxRate.IsNegative() || c.Pricing.Shipping.IsNegative() {
		errs = append(errs, "pricing: negative amounts")
	}
	if len(errs) != 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func getConfigFilepath() string {
	cmdLine := pflag.NewFlagSet(os.Args[0], pflag.ExitOnError)
	arg := cmdLine.String("config", "/config.yaml", "config file")
	_ = cmdLine.Parse(os.Args[1:])
	env, ok := os.LookupEnv(configFileEnvName)
	if ok {
		return env
	}
	return *arg
}

func die(err error) {
	fmt.Printf("failed to load config file: %v\n", err)
	os.Exit(2)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "***"
}

func (c Config) Print() {
	template := `
	General:
	LogLevel=%q

	HTTP:
	Addr=%q
	HandlerTimeout=%s
	CheckoutRate=%v/s burst %d

	SQLDB:
	DSN=%q
	MaxOpenConns=%d

	Redis:
	Addr=%q
	DB=%d
	CartTTL=%s

	BrokerConfig:
	SeedBrokers=%q
	SchemaRegistryURLs=%q
	TLS=%t
	SASLUser=%q
	Topics:
		Notifications=%q
		EmailMetricEvents=%q
	Consumers:
		NotificationGroup=%q
		EmailStatsGroup=%q

	Auth:
	JWTSecret=%q
	JWTPublicKey=%t
	WebhookSecret=%q

	Pricing:
	TaxRate=%s
	Shipping=%s
	FreeShippingFrom=%s

	Notify:
	Mode=%q
	MaxAttempts=%d
	SMTPHost=%q
	WhatsApp=%t

`
	fmt.Println("Loaded config:")
	fmt.Printf(
		strings.TrimLeft(template, "\n"),
		c.LogLevel,
		c.HTTP.Addr,
		c.HTTP.HandlerTimeout,
		c.HTTP.CheckoutRPS,
		c.HTTP.CheckoutBurst,
		maskDSN(c.SQLDB.DSN),
		c.SQLDB.MaxOpenConns,
		c.Redis.Addr,
		c.Redis.DB,
		c.Redis.CartTTL,
		c.Broker.SeedBrokers,
		c.Broker.SchemaRegistryURLs,
		c.Broker.TLS.Enabled(),
		c.Broker.SASL.User,
		c.Broker.Topics.Notifications,
		c.Broker.Topics.EmailMetricEvents,
		c.Broker.Consumers.NotificationGroup,
		c.Broker.Consumers.EmailStatsGroup,
		mask(c.Auth.JWTSecret),
		c.Auth.JWTPublicKey != "",
		mask(c.Auth.WebhookSecret),
		c.Pricing.TaxRate,
		c.Pricing.Shipping,
		c.Pricing.FreeShippingFrom,
		c.Notify.Mode,
		c.Notify.MaxAttempts,
		c.Notify.SMTP.Host,
		c.Notify.WhatsApp.Enabled,
	)
}

// maskDSN hides the password of a postgres URL.
func maskDSN(dsn string) string {
	scheme, rest, ok := strings.Cut(dsn, "://")
	if !ok {
		return mask(dsn)
	}
	creds, host, ok := strings.Cut(rest, "@")
	if !ok {
		return dsn
	}
	user, _, _ := strings.Cut(creds, ":")
	return scheme + "://" + user + ":***@" + host
}
