package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`
	BrandName         string `mapstructure:"BRAND_NAME"`
	MembershipURL     string `mapstructure:"MEMBERSHIP_PAGE_URL"`

	// Storage.
	StoreDriver  string `mapstructure:"STORE_DRIVER"`
	DatabaseURL  string `mapstructure:"DATABASE_URL"`
	DatabaseName string `mapstructure:"DATABASE_NAME"`

	// Redis configuration.
	RedisEnabled    bool          `mapstructure:"REDIS_ENABLED"`
	RedisAddr       string        `mapstructure:"REDIS_ADDR"`
	RedisPassword   string        `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB    int           `mapstructure:"REDIS_CACHE_DB"`
	RedisQueueDB    int           `mapstructure:"REDIS_QUEUE_DB"`
	MessageDedupTTL time.Duration `mapstructure:"MESSAGE_DEDUPE_TTL"`

	// WhatsApp Cloud API.
	WhatsAppVerifyToken   string        `mapstructure:"WHATSAPP_VERIFY_TOKEN"`
	WhatsAppAccessToken   string        `mapstructure:"WHATSAPP_ACCESS_TOKEN"`
	WhatsAppPhoneNumberID string        `mapstructure:"WHATSAPP_PHONE_NUMBER_ID"`
	WhatsAppAPIVersion    string        `mapstructure:"WHATSAPP_API_VERSION"`
	WhatsAppAPIBase       string        `mapstructure:"WHATSAPP_API_BASE"`
	WhatsAppTimeout       time.Duration `mapstructure:"WHATSAPP_TIMEOUT"`
	InboundTimeout        time.Duration `mapstructure:"INBOUND_TIMEOUT"`

	// Payments.
	PaymentProvider       string        `mapstructure:"PAYMENT_PROVIDER"`
	PaymentCallbackURL    string        `mapstructure:"PAYMENT_CALLBACK_URL"`
	PaymentLinkTimeout    time.Duration `mapstructure:"PAYMENT_LINK_TIMEOUT"`
	PaymentWebhookTimeout time.Duration `mapstructure:"PAYMENT_WEBHOOK_TIMEOUT"`
	RazorpayKeyID         string        `mapstructure:"RAZORPAY_KEY_ID"`
	RazorpayKeySecret     string        `mapstructure:"RAZORPAY_KEY_SECRET"`
	RazorpayWebhookSecret string        `mapstructure:"RAZORPAY_WEBHOOK_SECRET"`
	RazorpayAPIBase       string        `mapstructure:"RAZORPAY_API_BASE"`
	StripeKey             string        `mapstructure:"STRIPE_KEY"`
	StripeWebhookSecret   string        `mapstructure:"STRIPE_WEBHOOK_SECRET"`
	Currency              string        `mapstructure:"CURRENCY"`
	CurrencySymbol        string        `mapstructure:"CURRENCY_SYMBOL"`

	// Booking rules.
	DefaultBookingAmount int64         `mapstructure:"DEFAULT_BOOKING_AMOUNT"`
	MaxSlotsPerBooking   int           `mapstructure:"MAX_SLOTS_PER_BOOKING"`
	HoldTTL              time.Duration `mapstructure:"HOLD_TTL"`
	BookingTimezone      string        `mapstructure:"BOOKING_TIMEZONE"`
	SlotOpen             string        `mapstructure:"SLOT_OPEN"`
	SlotClose            string        `mapstructure:"SLOT_CLOSE"`
	SlotMinutes          int           `mapstructure:"SLOT_MINUTES"`
	BookingWindowDays    int           `mapstructure:"BOOKING_WINDOW_DAYS"`

	// Google Calendar.
	GoogleCalendarID      string        `mapstructure:"GOOGLE_CALENDAR_ID"`
	GoogleCredentialsFile string        `mapstructure:"GOOGLE_CREDENTIALS_FILE"`
	GoogleClientID        string        `mapstructure:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret    string        `mapstructure:"GOOGLE_CLIENT_SECRET"`
	GoogleRefreshToken    string        `mapstructure:"GOOGLE_REFRESH_TOKEN"`
	CalendarTimeout       time.Duration `mapstructure:"CALENDAR_TIMEOUT"`
	BusyCacheTTL          time.Duration `mapstructure:"BUSY_CACHE_TTL"`

	Catalog CatalogConfig `mapstructure:"CATALOG"`
}

var AppConfig Config

func LoadConfig() {
	// A local .env is optional; real environment variables win.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AutomaticEnv()

	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 600)
	viper.SetDefault("BRAND_NAME", "Twenty44")
	viper.SetDefault("MEMBERSHIP_PAGE_URL", "")

	viper.SetDefault("STORE_DRIVER", "mongo")
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("DATABASE_NAME", "courtbook")

	viper.SetDefault("REDIS_ENABLED", true)
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_CACHE_DB", 0)
	viper.SetDefault("REDIS_QUEUE_DB", 1)
	viper.SetDefault("MESSAGE_DEDUPE_TTL", "24h")

	viper.SetDefault("WHATSAPP_VERIFY_TOKEN", "")
	viper.SetDefault("WHATSAPP_ACCESS_TOKEN", "")
	viper.SetDefault("WHATSAPP_PHONE_NUMBER_ID", "")
	viper.SetDefault("WHATSAPP_API_VERSION", "v21.0")
	viper.SetDefault("WHATSAPP_API_BASE", "https://graph.facebook.com")
	viper.SetDefault("WHATSAPP_TIMEOUT", "10s")
	viper.SetDefault("INBOUND_TIMEOUT", "25s")

	viper.SetDefault("PAYMENT_PROVIDER", "razorpay")
	viper.SetDefault("PAYMENT_CALLBACK_URL", "")
	viper.SetDefault("PAYMENT_LINK_TIMEOUT", "10s")
	viper.SetDefault("PAYMENT_WEBHOOK_TIMEOUT", "20s")
	viper.SetDefault("RAZORPAY_KEY_ID", "")
	viper.SetDefault("RAZORPAY_KEY_SECRET", "")
	viper.SetDefault("RAZORPAY_WEBHOOK_SECRET", "")
	viper.SetDefault("RAZORPAY_API_BASE", "https://api.razorpay.com")
	viper.SetDefault("STRIPE_KEY", "")
	viper.SetDefault("STRIPE_WEBHOOK_SECRET", "")
	viper.SetDefault("CURRENCY", "INR")
	viper.SetDefault("CURRENCY_SYMBOL", "₹")

	viper.SetDefault("DEFAULT_BOOKING_AMOUNT", 1000)
	viper.SetDefault("MAX_SLOTS_PER_BOOKING", 4)
	viper.SetDefault("HOLD_TTL", "15m")
	viper.SetDefault("BOOKING_TIMEZONE", "Asia/Kolkata")
	viper.SetDefault("SLOT_OPEN", "06:00")
	viper.SetDefault("SLOT_CLOSE", "24:00")
	viper.SetDefault("SLOT_MINUTES", 30)
	viper.SetDefault("BOOKING_WINDOW_DAYS", 7)

	viper.SetDefault("GOOGLE_CALENDAR_ID", "")
	viper.SetDefault("GOOGLE_CREDENTIALS_FILE", "")
	viper.SetDefault("GOOGLE_CLIENT_ID", "")
	viper.SetDefault("GOOGLE_CLIENT_SECRET", "")
	viper.SetDefault("GOOGLE_REFRESH_TOKEN", "")
	viper.SetDefault("CALENDAR_TIMEOUT", "4s")
	viper.SetDefault("BUSY_CACHE_TTL", "60s")

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	AppConfig.Catalog.applyDefaults()
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}

// Location resolves BOOKING_TIMEZONE, falling back to UTC when the zone is unknown.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.BookingTimezone)
	if err != nil {
		log.Printf("unknown BOOKING_TIMEZONE %q, using UTC: %v", c.BookingTimezone, err)
		return time.UTC
	}
	return loc
}
