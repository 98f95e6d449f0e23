package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wlan-sim/wlan-sim-pro/pkg/wlan"
)

// ErrInvalidConfig is wrapped by every validation failure
var ErrInvalidConfig = errors.New("invalid configuration")

// Config represents the application configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	API        APIConfig        `yaml:"api"`
	NATS       NATSConfig       `yaml:"nats"`
	JWT        JWTConfig        `yaml:"jwt"`
	Auth       AuthConfig       `yaml:"auth"`
	Log        LogConfig        `yaml:"log"`
	Simulation SimulationConfig `yaml:"simulation"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// APIConfig represents API configuration
type APIConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// NATSConfig represents NATS configuration. An empty URL disables publishing.
type NATSConfig struct {
	URL               string        `yaml:"url"`
	Username          string        `yaml:"username"`
	Password          string        `yaml:"password"`
	MaxReconnects     int           `yaml:"max_reconnects"`
	ReconnectInterval time.Duration `yaml:"reconnect_interval"`
	SubjectPrefix     string        `yaml:"subject_prefix"`
}

// JWTConfig represents JWT configuration
type JWTConfig struct {
	Secret          string        `yaml:"secret"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl"`
}

// AuthConfig holds the API operator credentials
type AuthConfig struct {
	Username     string `yaml:"username"`
	PasswordHash string `yaml:"password_hash"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// SimulationConfig holds the PHY and per-discipline parameters
type SimulationConfig struct {
	AccessPointID    int        `yaml:"access_point_id" json:"accessPointId"`
	BandwidthMHz     float64    `yaml:"bandwidth_mhz" json:"bandwidthMHz"`
	ModulationBits   int        `yaml:"modulation_bits" json:"modulationBits"`
	CodingRate       CodingRate `yaml:"coding_rate" json:"codingRate"`
	UserCounts       []int      `yaml:"user_counts" json:"userCounts"`
	Iterations       int        `yaml:"iterations" json:"iterations"`
	Epochs           int        `yaml:"epochs" json:"epochs"`
	Workers          int        `yaml:"workers" json:"workers"`
	Seed             uint64     `yaml:"seed" json:"seed"`
	DestinationRange int        `yaml:"destination_range" json:"destinationRange"`

	Contention  ContentionConfig  `yaml:"contention" json:"contention"`
	Coordinated CoordinatedConfig `yaml:"coordinated" json:"coordinated"`
	Scheduled   ScheduledConfig   `yaml:"scheduled" json:"scheduled"`
}

// ContentionConfig configures the exponential backoff discipline
type ContentionConfig struct {
	PacketSize  int           `yaml:"packet_size" json:"packetSize"`
	MaxBackoff  int           `yaml:"max_backoff" json:"maxBackoff"`   // slots
	SlotTime    float64       `yaml:"slot_time" json:"slotTime"`       // modeled ms per slot
	RetryPause  time.Duration `yaml:"retry_pause" json:"retryPause"`   // real pause per slot
	HoldTime    time.Duration `yaml:"hold_time" json:"holdTime"`       // real time the medium is held
	MaxAttempts int           `yaml:"max_attempts" json:"maxAttempts"` // liveness guard
}

// CoordinatedConfig configures the sounding + parallel window discipline
type CoordinatedConfig struct {
	PacketSize         int     `yaml:"packet_size" json:"packetSize"`
	SoundingPacketSize int     `yaml:"sounding_packet_size" json:"soundingPacketSize"`
	ParallelWindow     float64 `yaml:"parallel_window" json:"parallelWindow"` // ms
}

// ScheduledConfig configures sub-channel allocation
type ScheduledConfig struct {
	PacketSize       int       `yaml:"packet_size" json:"packetSize"`
	SubChannels      []float64 `yaml:"sub_channels" json:"subChannels"`           // MHz
	AllocationWindow float64   `yaml:"allocation_window" json:"allocationWindow"` // ms
}

// CodingRate is a forward error correction rate. YAML accepts "5/6" or 0.8333.
type CodingRate float64

// UnmarshalYAML implements yaml.Unmarshaler
func (c *CodingRate) UnmarshalYAML(value *yaml.Node) error {
	rate, err := ParseCodingRate(value.Value)
	if err != nil {
		return err
	}
	*c = rate
	return nil
}

// String formats the rate as a decimal
func (c CodingRate) String() string {
	return strconv.FormatFloat(float64(c), 'f', 4, 64)
}

// ParseCodingRate parses "n/d" or a decimal
func ParseCodingRate(s string) (CodingRate, error) {
	s = strings.TrimSpace(s)
	if num, den, ok := strings.Cut(s, "/"); ok {
		n, err := strconv.ParseFloat(strings.TrimSpace(num), 64)
		if err != nil {
			return 0, fmt.Errorf("parse coding rate %q: %w", s, err)
		}
		d, err := strconv.ParseFloat(strings.TrimSpace(den), 64)
		if err != nil {
			return 0, fmt.Errorf("parse coding rate %q: %w", s, err)
		}
		if d == 0 {
			return 0, fmt.Errorf("parse coding rate %q: zero denominator", s)
		}
		return CodingRate(n / d), nil
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse coding rate %q: %w", s, err)
	}
	return CodingRate(v), nil
}

// PHY returns the full-band PHY described by the simulation config
func (s *SimulationConfig) PHY() (wlan.PHY, error) {
	return wlan.NewPHY(s.BandwidthMHz, s.ModulationBits, float64(s.CodingRate))
}

// Default returns the reference scenario: 20 MHz, 256-QAM, rate 5/6, 1 KB packets
func Default() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// Load loads configuration from file
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	return Parse(data)
}

// LoadOptional loads filename, or defaults plus environment overrides when it does not exist
func LoadOptional(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if errors.Is(err, os.ErrNotExist) {
		return Parse(nil)
	}
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes YAML configuration, applies environment overrides and defaults, and validates
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, fmt.Errorf("apply env overrides: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyEnvOverrides applies environment variable overrides
func (c *Config) applyEnvOverrides() error {
	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		c.NATS.URL = natsURL
	}

	if jwtSecret := os.Getenv("JWT_SECRET"); jwtSecret != "" {
		c.JWT.Secret = jwtSecret
	}

	if hash := os.Getenv("AUTH_PASSWORD_HASH"); hash != "" {
		c.Auth.PasswordHash = hash
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.Log.Level = logLevel
	}

	if bw := os.Getenv("WLAN_BANDWIDTH_MHZ"); bw != "" {
		v, err := strconv.ParseFloat(bw, 64)
		if err != nil {
			return fmt.Errorf("WLAN_BANDWIDTH_MHZ: %w", err)
		}
		c.Simulation.BandwidthMHz = v
	}

	if seed := os.Getenv("WLAN_SEED"); seed != "" {
		v, err := strconv.ParseUint(seed, 10, 64)
		if err != nil {
			return fmt.Errorf("WLAN_SEED: %w", err)
		}
		c.Simulation.Seed = v
	}

	return nil
}

// setDefaults fills unset fields. Explicit invalid values are left for Validate.
func (c *Config) setDefaults() {
	if c.Server.Name == "" {
		c.Server.Name = "wlan-sim"
	}
	if c.Server.Version == "" {
		c.Server.Version = "1.0.0"
	}
	if c.API.Host == "" {
		c.API.Host = "0.0.0.0"
	}
	if c.API.Port == 0 {
		c.API.Port = 8090
	}
	if c.NATS.MaxReconnects == 0 {
		c.NATS.MaxReconnects = 10
	}
	if c.NATS.ReconnectInterval == 0 {
		c.NATS.ReconnectInterval = 2 * time.Second
	}
	if c.NATS.SubjectPrefix == "" {
		c.NATS.SubjectPrefix = "wlan.sim"
	}
	if c.JWT.AccessTokenTTL == 0 {
		c.JWT.AccessTokenTTL = 15 * time.Minute
	}
	if c.JWT.RefreshTokenTTL == 0 {
		c.JWT.RefreshTokenTTL = 24 * time.Hour
	}
	if c.Auth.Username == "" {
		c.Auth.Username = "operator"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}

	c.setDefaultSimulation()
}

// setDefaultSimulation applies the reference WiFi parameters
func (c *Config) setDefaultSimulation() {
	s := &c.Simulation

	if s.AccessPointID == 0 {
		s.AccessPointID = 1
	}
	if s.BandwidthMHz == 0 {
		s.BandwidthMHz = 20
	}
	if s.ModulationBits == 0 {
		s.ModulationBits = 8 // 256-QAM
	}
	if s.CodingRate == 0 {
		s.CodingRate = CodingRate(5.0 / 6.0)
	}
	if len(s.UserCounts) == 0 {
		s.UserCounts = []int{1, 10, 100}
	}
	if s.Iterations == 0 {
		s.Iterations = 1
	}
	if s.Epochs == 0 {
		s.Epochs = 1
	}
	if s.DestinationRange == 0 {
		s.DestinationRange = 100
	}

	if s.Contention.PacketSize == 0 {
		s.Contention.PacketSize = 1024
	}
	if s.Contention.MaxBackoff == 0 {
		s.Contention.MaxBackoff = 10
	}
	if s.Contention.SlotTime == 0 {
		s.Contention.SlotTime = 0.009 // 9us OFDM slot
	}
	if s.Contention.RetryPause == 0 {
		s.Contention.RetryPause = time.Microsecond
	}
	if s.Contention.MaxAttempts == 0 {
		s.Contention.MaxAttempts = 100000
	}

	if s.Coordinated.PacketSize == 0 {
		s.Coordinated.PacketSize = 1024
	}
	if s.Coordinated.SoundingPacketSize == 0 {
		s.Coordinated.SoundingPacketSize = 200
	}
	if s.Coordinated.ParallelWindow == 0 {
		s.Coordinated.ParallelWindow = 15
	}

	if s.Scheduled.PacketSize == 0 {
		s.Scheduled.PacketSize = 1024
	}
	if len(s.Scheduled.SubChannels) == 0 {
		s.Scheduled.SubChannels = []float64{2, 4, 10}
	}
	if s.Scheduled.AllocationWindow == 0 {
		s.Scheduled.AllocationWindow = 5
	}
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if err := c.Simulation.Validate(); err != nil {
		return err
	}
	if c.API.Port < 0 || c.API.Port > 65535 {
		return fmt.Errorf("%w: api port %d", ErrInvalidConfig, c.API.Port)
	}
	return nil
}

// Validate checks the simulation parameters
func (s *SimulationConfig) Validate() error {
	if _, err := s.PHY(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	for _, n := range s.UserCounts {
		if n < 0 {
			return fmt.Errorf("%w: negative user count %d", ErrInvalidConfig, n)
		}
	}
	if s.Iterations < 1 {
		return fmt.Errorf("%w: iterations must be at least 1", ErrInvalidConfig)
	}
	if s.Epochs < 1 {
		return fmt.Errorf("%w: epochs must be at least 1", ErrInvalidConfig)
	}
	if s.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative", ErrInvalidConfig)
	}
	if s.DestinationRange < 1 {
		return fmt.Errorf("%w: destination range must be at least 1", ErrInvalidConfig)
	}

	for name, size := range map[string]int{
		"contention packet size":  s.Contention.PacketSize,
		"coordinated packet size": s.Coordinated.PacketSize,
		"sounding packet size":    s.Coordinated.SoundingPacketSize,
		"scheduled packet size":   s.Scheduled.PacketSize,
	} {
		if size <= 0 {
			return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, name, wlan.ErrInvalidPacketSize)
		}
	}

	if s.Contention.MaxBackoff < 1 {
		return fmt.Errorf("%w: max backoff must be at least 1 slot", ErrInvalidConfig)
	}
	if s.Contention.SlotTime <= 0 {
		return fmt.Errorf("%w: slot time must be positive", ErrInvalidConfig)
	}
	if s.Contention.RetryPause < 0 || s.Contention.HoldTime < 0 {
		return fmt.Errorf("%w: contention pauses must not be negative", ErrInvalidConfig)
	}
	if s.Contention.MaxAttempts < 1 {
		return fmt.Errorf("%w: max attempts must be at least 1", ErrInvalidConfig)
	}

	if s.Coordinated.ParallelWindow <= 0 {
		return fmt.Errorf("%w: parallel window must be positive", ErrInvalidConfig)
	}
	if s.Scheduled.AllocationWindow <= 0 {
		return fmt.Errorf("%w: allocation window must be positive", ErrInvalidConfig)
	}

	if len(s.Scheduled.SubChannels) == 0 {
		return fmt.Errorf("%w: at least one sub-channel is required", ErrInvalidConfig)
	}
	total := 0.0
	for _, w := range s.Scheduled.SubChannels {
		if w <= 0 || w > s.BandwidthMHz {
			return fmt.Errorf("%w: sub-channel width %v MHz outside (0, %v]", ErrInvalidConfig, w, s.BandwidthMHz)
		}
		total += w
	}
	if total > s.BandwidthMHz {
		return fmt.Errorf("%w: sub-channels use %v MHz of %v MHz", ErrInvalidConfig, total, s.BandwidthMHz)
	}

	return nil
}

// PrintConfigSummary prints the simulation parameters to stdout
func (c *Config) PrintConfigSummary() {
	c.WriteSummary(os.Stdout)
}

// WriteSummary writes the simulation parameters block
func (c *Config) WriteSummary(w io.Writer) {
	s := c.Simulation

	fmt.Fprintf(w, "=== %s v%s ===\n", c.Server.Name, c.Server.Version)
	fmt.Fprintf(w, "Simulation Parameters:\n")
	fmt.Fprintf(w, "  Bandwidth: %g MHz\n", s.BandwidthMHz)
	fmt.Fprintf(w, "  Modulation: %d bits/symbol\n", s.ModulationBits)
	fmt.Fprintf(w, "  Coding Rate: %s\n", s.CodingRate)
	fmt.Fprintf(w, "  User Counts: %v (iterations %d, epochs %d)\n", s.UserCounts, s.Iterations, s.Epochs)
	fmt.Fprintf(w, "  WiFi 4 Packet Size: %d bytes, max backoff %d slots of %g ms\n",
		s.Contention.PacketSize, s.Contention.MaxBackoff, s.Contention.SlotTime)
	fmt.Fprintf(w, "  WiFi 5 CSI Packet Size: %d bytes, data %d bytes\n",
		s.Coordinated.SoundingPacketSize, s.Coordinated.PacketSize)
	fmt.Fprintf(w, "  WiFi 5 Parallel Window: %g ms\n", s.Coordinated.ParallelWindow)
	fmt.Fprintf(w, "  WiFi 6 Sub-channels: %v MHz, packet %d bytes\n", s.Scheduled.SubChannels, s.Scheduled.PacketSize)
	fmt.Fprintf(w, "  WiFi 6 Allocation Window: %g ms\n", s.Scheduled.AllocationWindow)
	if c.NATS.URL != "" {
		fmt.Fprintf(w, "NATS: %s (prefix %s)\n", c.NATS.URL, c.NATS.SubjectPrefix)
	}
	fmt.Fprintf(w, "==========================================\n")
}
