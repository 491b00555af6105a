package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	// Practice website identity
	Website WebsiteConfig `mapstructure:"website"`

	// Third-party APIs
	APIs APIConfig `mapstructure:"apis"`

	// Per-service automation switches
	Automation AutomationConfig `mapstructure:"automation"`

	Reporting ReportingConfig `mapstructure:"reporting"`
	Keywords  KeywordsConfig  `mapstructure:"keywords"`
	Content   ContentConfig   `mapstructure:"content"`
	Paths     PathsConfig     `mapstructure:"paths"`
	Email     EmailConfig     `mapstructure:"email"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Crawler   CrawlerConfig   `mapstructure:"crawler"`
}

// WebsiteConfig describes the practice and its site
type WebsiteConfig struct {
	Domain        string   `mapstructure:"domain"`
	BaseURL       string   `mapstructure:"base_url"`
	BusinessName  string   `mapstructure:"business_name"`
	DoctorName    string   `mapstructure:"doctor_name"`
	Phone         string   `mapstructure:"phone"`
	Email         string   `mapstructure:"email"`
	StreetAddress string   `mapstructure:"street_address"`
	Locality      string   `mapstructure:"locality"`
	Region        string   `mapstructure:"region"`
	PostalCode    string   `mapstructure:"postal_code"`
	Country       string   `mapstructure:"country"`
	Latitude      float64  `mapstructure:"latitude"`
	Longitude     float64  `mapstructure:"longitude"`
	OpeningHours  []string `mapstructure:"opening_hours"`
	PriceRange    string   `mapstructure:"price_range"`
	SameAs        []string `mapstructure:"same_as"`
}

// APIToggle is an optionally enabled external API
type APIToggle struct {
	Enabled  bool   `mapstructure:"enabled"`
	Key      string `mapstructure:"key"`
	Endpoint string `mapstructure:"endpoint"`
}

// APIConfig holds API keys and endpoints
type APIConfig struct {
	GoogleAnalytics     APIToggle     `mapstructure:"google_analytics"`
	GoogleSearchConsole APIToggle     `mapstructure:"google_search_console"`
	BingWebmaster       APIToggle     `mapstructure:"bing_webmaster"`
	IndexNow            APIToggle     `mapstructure:"index_now"`
	SerpAPI             SerpAPIConfig `mapstructure:"serpapi"`
}

// SerpAPIConfig holds SerpAPI configuration
type SerpAPIConfig struct {
	APIKey   string `mapstructure:"api_key"`
	Endpoint string `mapstructure:"endpoint"`
	Location string `mapstructure:"location"`
}

// AutomationConfig groups service switches
type AutomationConfig struct {
	ContentUpdate            ContentUpdateConfig            `mapstructure:"content_update"`
	PerformanceMonitoring    PerformanceMonitoringConfig    `mapstructure:"performance_monitoring"`
	SearchEngineNotification SearchEngineNotificationConfig `mapstructure:"search_engine_notification"`
	TechnicalSEO             TechnicalSEOConfig             `mapstructure:"technical_seo"`
}

// ContentUpdateConfig controls the content refresh cycle
type ContentUpdateConfig struct {
	Enabled             bool   `mapstructure:"enabled"`
	TestimonialRotation bool   `mapstructure:"testimonial_rotation"`
	SeasonalContent     bool   `mapstructure:"seasonal_content"`
	GeneratePages       bool   `mapstructure:"generate_pages"`
	Schedule            string `mapstructure:"schedule"`
	TestimonialsPerPage int    `mapstructure:"testimonials_per_page"`
	LinksPerPage        int    `mapstructure:"links_per_page"`
}

// PerformanceMonitoringConfig controls ranking/traffic/conversion checks
type PerformanceMonitoringConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	AlertThreshold float64 `mapstructure:"alert_threshold"`
	Schedule       string  `mapstructure:"schedule"`
	HistorySize    int     `mapstructure:"history_size"`
}

// SearchEngineNotificationConfig controls sitemap publishing and pings
type SearchEngineNotificationConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	Schedule          string        `mapstructure:"schedule"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	RecentDays        int           `mapstructure:"recent_days"`
	Timeout           time.Duration `mapstructure:"timeout"`
	PingEndpoints     bool          `mapstructure:"ping_endpoints"`
}

// TechnicalSEOConfig controls the technical audit
type TechnicalSEOConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Schedule  string `mapstructure:"schedule"`
	LiveCrawl bool   `mapstructure:"live_crawl"`
}

// ReportingConfig controls report delivery
type ReportingConfig struct {
	Recipients   []string  `mapstructure:"recipients"`
	Webhook      string    `mapstructure:"webhook"`
	Frequency    string    `mapstructure:"frequency"`
	TemplatesDir string    `mapstructure:"templates_dir"`
	PDF          PDFConfig `mapstructure:"pdf"`
}

// PDFConfig controls headless-browser PDF rendering
type PDFConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Timeout      time.Duration `mapstructure:"timeout"`
	ChromiumPath string        `mapstructure:"chromium_path"`
}

// KeywordsConfig lists tracked keywords
type KeywordsConfig struct {
	Primary   []string `mapstructure:"primary"`
	Secondary []string `mapstructure:"secondary"`
	Local     []string `mapstructure:"local"`
}

// All returns primary, secondary and local keywords in that order
func (k KeywordsConfig) All() []string {
	all := make([]string, 0, len(k.Primary)+len(k.Secondary)+len(k.Local))
	all = append(all, k.Primary...)
	all = append(all, k.Secondary...)
	all = append(all, k.Local...)
	return all
}

// ContentConfig lists services and locations used for page generation
type ContentConfig struct {
	Services   []string `mapstructure:"services"`
	Locations  []string `mapstructure:"locations"`
	RandomSeed int64    `mapstructure:"random_seed"`
}

// PathsConfig locates every file artifact
type PathsConfig struct {
	Reports       string `mapstructure:"reports"`
	Logs          string `mapstructure:"logs"`
	Public        string `mapstructure:"public"`
	Dist          string `mapstructure:"dist"`
	Pages         string `mapstructure:"pages"`
	Data          string `mapstructure:"data"`
	SitemapSource string `mapstructure:"sitemap_source"`
	RobotsSource  string `mapstructure:"robots_source"`
	Feed          string `mapstructure:"feed"`
	EnvFile       string `mapstructure:"env_file"`
}

// EmailConfig holds SMTP settings
type EmailConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	User string `mapstructure:"user"`
	Pass string `mapstructure:"pass"`
	From string `mapstructure:"from"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `mapstructure:"level"`
	ToFile    bool   `mapstructure:"to_file"`
	ToConsole bool   `mapstructure:"to_console"`
}

// DashboardConfig holds HTTP API settings
type DashboardConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
}

// NATSConfig holds alert streaming settings
type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"`
}

// CrawlerConfig controls live-site fetching for audits
type CrawlerConfig struct {
	RequestsPerSecond int           `mapstructure:"requests_per_second"`
	UserAgent         string        `mapstructure:"user_agent"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxPages          int           `mapstructure:"max_pages"`
	FollowRobotsTxt   bool          `mapstructure:"follow_robots_txt"`
}

var (
	defaultConfig *Config
	configLoaded  bool
)

var validLogLevels = map[string]bool{"error": true, "warn": true, "info": true, "debug": true}

// Load loads configuration from file and environment
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("seo-config")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("./seo-automation/configs")
	}

	// Set defaults
	setDefaults(v)

	// .env must be loaded before env bindings are resolved
	if err := loadDotEnv(v.GetString("paths.env_file")); err != nil {
		return nil, err
	}

	// Bind environment variables
	bindEnvVars(v)

	// Read config file if it exists
	if err := v.ReadInConfig(); err != nil {
		// Config file not found is not an error, we'll use defaults and env
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !(configPath == "" && os.IsNotExist(err)) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Override with environment variables
	loadFromEnv(&config)

	defaultConfig = &config
	configLoaded = true

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Website defaults
	v.SetDefault("website.domain", "eyecarecenteroc.com")
	v.SetDefault("website.base_url", "https://eyecarecenteroc.com")
	v.SetDefault("website.business_name", "Eye Care Center of Orange County")
	v.SetDefault("website.doctor_name", "Dr. Alexander Bonakdar")
	v.SetDefault("website.phone", "+1-949-123-4567")
	v.SetDefault("website.email", "info@eyecarecenteroc.com")
	v.SetDefault("website.street_address", "123 Medical Center Drive")
	v.SetDefault("website.locality", "Newport Beach")
	v.SetDefault("website.region", "CA")
	v.SetDefault("website.postal_code", "92660")
	v.SetDefault("website.country", "US")
	v.SetDefault("website.latitude", 33.6189)
	v.SetDefault("website.longitude", -117.9298)
	v.SetDefault("website.price_range", "$$")
	v.SetDefault("website.opening_hours", []string{"Mo-Fr 08:00-17:00", "Sa 09:00-13:00"})
	v.SetDefault("website.same_as", []string{
		"https://www.facebook.com/eyecarecenteroc",
		"https://www.instagram.com/eyecarecenteroc",
	})

	// API defaults
	v.SetDefault("apis.google_analytics.enabled", false)
	v.SetDefault("apis.google_search_console.enabled", true)
	v.SetDefault("apis.bing_webmaster.enabled", true)
	v.SetDefault("apis.index_now.enabled", true)
	v.SetDefault("apis.index_now.endpoint", "https://api.indexnow.org/indexnow")
	v.SetDefault("apis.serpapi.endpoint", "https://serpapi.com/search.json")
	v.SetDefault("apis.serpapi.location", "Orange County, California, United States")

	// Automation defaults
	v.SetDefault("automation.content_update.enabled", true)
	v.SetDefault("automation.content_update.testimonial_rotation", true)
	v.SetDefault("automation.content_update.seasonal_content", true)
	v.SetDefault("automation.content_update.generate_pages", true)
	v.SetDefault("automation.content_update.schedule", "0 2 * * 1")
	v.SetDefault("automation.content_update.testimonials_per_page", 3)
	v.SetDefault("automation.content_update.links_per_page", 3)
	v.SetDefault("automation.performance_monitoring.enabled", true)
	v.SetDefault("automation.performance_monitoring.alert_threshold", 20.0)
	v.SetDefault("automation.performance_monitoring.schedule", "0 6 * * *")
	v.SetDefault("automation.performance_monitoring.history_size", 100)
	v.SetDefault("automation.search_engine_notification.enabled", true)
	v.SetDefault("automation.search_engine_notification.schedule", "0 3 * * *")
	v.SetDefault("automation.search_engine_notification.requests_per_second", 2.0)
	v.SetDefault("automation.search_engine_notification.recent_days", 7)
	v.SetDefault("automation.search_engine_notification.timeout", "15s")
	v.SetDefault("automation.search_engine_notification.ping_endpoints", false)
	v.SetDefault("automation.technical_seo.enabled", true)
	v.SetDefault("automation.technical_seo.schedule", "0 4 * * 0")
	v.SetDefault("automation.technical_seo.live_crawl", false)

	// Reporting defaults
	v.SetDefault("reporting.recipients", []string{})
	v.SetDefault("reporting.frequency", "weekly")
	v.SetDefault("reporting.templates_dir", "seo-automation/templates")
	v.SetDefault("reporting.pdf.enabled", false)
	v.SetDefault("reporting.pdf.timeout", "60s")

	// Keyword defaults
	v.SetDefault("keywords.primary", []string{
		"eye doctor orange county",
		"ophthalmologist orange county",
		"cataract surgery orange county",
	})
	v.SetDefault("keywords.secondary", []string{
		"glaucoma treatment orange county",
		"dry eye treatment orange county",
	})
	v.SetDefault("keywords.local", []string{
		"eye doctor newport beach",
		"eye doctor irvine",
	})

	// Content defaults
	v.SetDefault("content.services", []string{
		"cataract-surgery",
		"glaucoma-treatment",
		"diabetic-retinopathy",
		"macular-degeneration",
	})
	v.SetDefault("content.locations", []string{"newport-beach", "irvine", "costa-mesa"})
	v.SetDefault("content.random_seed", 0)

	// Path defaults
	v.SetDefault("paths.reports", "seo-automation/reports")
	v.SetDefault("paths.logs", "seo-automation/logs")
	v.SetDefault("paths.public", "public")
	v.SetDefault("paths.dist", "dist")
	v.SetDefault("paths.pages", "src/pages")
	v.SetDefault("paths.data", "src/data")
	v.SetDefault("paths.sitemap_source", "../public/sitemap.xml")
	v.SetDefault("paths.robots_source", "../public/robots.txt")
	v.SetDefault("paths.feed", "public/feed.xml")
	v.SetDefault("paths.env_file", "seo-automation/.env")

	// Email defaults
	v.SetDefault("email.host", "smtp.gmail.com")
	v.SetDefault("email.port", 587)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.to_file", true)
	v.SetDefault("logging.to_console", true)

	// Dashboard defaults
	v.SetDefault("dashboard.host", "localhost")
	v.SetDefault("dashboard.port", 3001)
	v.SetDefault("dashboard.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("dashboard.read_timeout", "30s")
	v.SetDefault("dashboard.write_timeout", "120s")

	// NATS defaults
	v.SetDefault("nats.subject", "seo.alerts")

	// Crawler defaults
	v.SetDefault("crawler.requests_per_second", 5)
	v.SetDefault("crawler.user_agent", "SEOAutomation/1.0")
	v.SetDefault("crawler.timeout", "15s")
	v.SetDefault("crawler.max_pages", 200)
	v.SetDefault("crawler.follow_robots_txt", true)
}

// loadDotEnv loads a .env file without overriding variables already set. A
// missing file is not an error.
func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// bindEnvVars binds environment variables
func bindEnvVars(v *viper.Viper) {
	v.SetEnvPrefix("SEOAUTO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Bind specific env vars
	v.BindEnv("email.user", "EMAIL_USER")
	v.BindEnv("email.pass", "EMAIL_PASS")
	v.BindEnv("apis.index_now.key", "INDEX_NOW_KEY", "INDEXNOW_API_KEY")
	v.BindEnv("apis.serpapi.api_key", "SERPAPI_API_KEY")
	v.BindEnv("reporting.webhook", "WEBHOOK_URL")
	v.BindEnv("logging.level", "LOG_LEVEL")
	v.BindEnv("nats.url", "NATS_URL")
}

// loadFromEnv loads configuration from environment variables
func loadFromEnv(config *Config) {
	// SMTP credentials
	if user := os.Getenv("EMAIL_USER"); user != "" {
		config.Email.User = user
	}
	if pass := os.Getenv("EMAIL_PASS"); pass != "" {
		config.Email.Pass = pass
	}
	if config.Email.From == "" {
		config.Email.From = config.Email.User
	}
	if port := os.Getenv("EMAIL_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Email.Port = p
		}
	}

	// IndexNow
	if key := os.Getenv("INDEX_NOW_KEY"); key != "" {
		config.APIs.IndexNow.Key = key
	}

	// SerpAPI
	if apiKey := os.Getenv("SERPAPI_API_KEY"); apiKey != "" {
		config.APIs.SerpAPI.APIKey = apiKey
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Logging.Level = strings.ToLower(level)
	}
}

// Get returns the current configuration
func Get() *Config {
	if !configLoaded || defaultConfig == nil {
		// Load with defaults if not already loaded
		config, _ := Load("")
		return config
	}
	return defaultConfig
}

// Validate validates the configuration
func (c *Config) Validate() error {
	// Validate required fields
	if c.Website.Domain == "" {
		return fmt.Errorf("website.domain is required")
	}
	if !strings.HasPrefix(c.Website.BaseURL, "http://") && !strings.HasPrefix(c.Website.BaseURL, "https://") {
		return fmt.Errorf("website.base_url must be an absolute http(s) URL")
	}
	if c.Automation.PerformanceMonitoring.AlertThreshold < 0 {
		return fmt.Errorf("automation.performance_monitoring.alert_threshold must not be negative")
	}
	if c.Automation.ContentUpdate.TestimonialsPerPage <= 0 {
		return fmt.Errorf("automation.content_update.testimonials_per_page must be positive")
	}
	if c.Automation.SearchEngineNotification.RequestsPerSecond <= 0 {
		return fmt.Errorf("automation.search_engine_notification.requests_per_second must be positive")
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level %q is not one of error, warn, info, debug", c.Logging.Level)
	}

	// Not an error, IndexNow submissions will fail until a key is set
	if c.APIs.IndexNow.Enabled && c.APIs.IndexNow.Key == "" {
		fmt.Fprintln(os.Stderr, "Warning: IndexNow key not set. IndexNow submissions will be rejected.")
	}

	return nil
}
