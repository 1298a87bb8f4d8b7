// Package config provides the typed, YAML-loaded configuration shared by
// every core component and cmd/ tool, carrying every constant the spec
// fixes (record shape, OT/PSI parameters, Bloom sizing) alongside the
// ambient peer/security/timeout/logging settings.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/paramexchange/core/internal/errs"
)

// Config is the root configuration object, loaded once per process.
type Config struct {
	Record   RecordConfig   `yaml:"record"`
	OT       OTConfig       `yaml:"ot"`
	PSI      PSIConfig      `yaml:"psi"`
	Bloom    BloomConfig    `yaml:"bloom"`
	KeyStore KeyStoreConfig `yaml:"key_store"`

	Peer struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"peer"`

	Security struct {
		AllowedIPs      []string `yaml:"allowed_ips"`
		RequireIPCheck  bool     `yaml:"require_ip_check"`
		MaxConnections  int      `yaml:"max_connections"`
		RateLimitPerMin int      `yaml:"rate_limit_per_min"`
	} `yaml:"security"`

	Timeouts struct {
		ConnectionTimeout time.Duration `yaml:"connection_timeout"`
		ReadTimeout       time.Duration `yaml:"read_timeout"`
		WriteTimeout      time.Duration `yaml:"write_timeout"`
		IdleTimeout       time.Duration `yaml:"idle_timeout"`
		HandshakeTimeout  time.Duration `yaml:"handshake_timeout"`
	} `yaml:"timeouts"`

	Logging struct {
		Level       string `yaml:"level"`
		File        string `yaml:"file"`
		EnableAudit bool   `yaml:"enable_audit"`
		AuditFile   string `yaml:"audit_file"`
	} `yaml:"logging"`

	ListenPort int    `yaml:"listen_port"`
	PrivateKey string `yaml:"private_key"`
	PublicKey  string `yaml:"public_key"`
	DataDir    string `yaml:"data_dir"`
	MaxProcs   int    `yaml:"max_procs"`
}

// RecordConfig fixes the record shape.
type RecordConfig struct {
	Length      int   `yaml:"length"`       // RECORD_LENGTH
	IDLength    int   `yaml:"id_length"`    // RECORD_ID_LENGTH
	RoundingVec []int `yaml:"rounding_vec"` // ROUNDING_VEC
}

// OTConfig fixes the OT-extension engine's parameters.
type OTConfig struct {
	SetSize         int    `yaml:"set_size"`          // OT_SETSIZE
	MaxNum          int    `yaml:"max_num"`           // OT_MAX_NUM
	MaliciousSecure bool   `yaml:"malicious_secure"`  // OT_MAL_SECURE
	InputBitCount   int    `yaml:"input_bit_count"`   // OT_INPUT_BIT_COUNT
	IndexLen        int    `yaml:"index_len"`         // OT_INDEX_LEN
	HashKeyLen      int    `yaml:"hash_key_len"`      // HASHKEY_LEN (bits)
	EncKeyLen       int    `yaml:"enc_key_len"`       // ENCKEY_LEN (bits)
	TLS             bool   `yaml:"tls"`               // OT_TLS
	HashKeyPath     string `yaml:"hash_key_path"`     // KEY_HASHKEY_PATH
	EncKeysPath     string `yaml:"enc_keys_path"`     // KEY_ENCKEY_PATH
}

// PSIConfig fixes the PSI engine's parameters.
type PSIConfig struct {
	Scheme    string `yaml:"scheme"`     // PSI_SCHEME ("KKRT16")
	SetSize   int    `yaml:"set_size"`   // PSI_SETSIZE
	IndexLen  int    `yaml:"index_len"`  // PSI_INDEX_LEN
	TLS       bool   `yaml:"tls"`        // PSI_TLS
}

// BloomConfig fixes the Bloom matching-mode parameters.
type BloomConfig struct {
	Capacity  uint64  `yaml:"capacity"`   // BLOOM_CAPACITY
	ErrorRate float64 `yaml:"error_rate"` // BLOOM_ERROR_RATE
	FilePath  string  `yaml:"file_path"`  // BLOOM_FILE
}

// KeyStoreConfig fixes where the broker's record store lives.
type KeyStoreConfig struct {
	RecordsPath string `yaml:"records_path"`
}

// SetDefaults fills every unset field with the spec's documented defaults.
func (c *Config) SetDefaults() {
	if c.Record.Length == 0 {
		c.Record.Length = 100 // RECORD_LENGTH
	}
	if c.Record.IDLength == 0 {
		c.Record.IDLength = 10 // RECORD_ID_LENGTH
	}
	if len(c.Record.RoundingVec) == 0 {
		c.Record.RoundingVec = make([]int, c.Record.IDLength)
		for i := range c.Record.RoundingVec {
			c.Record.RoundingVec[i] = 3
		}
	}

	if c.OT.SetSize == 0 {
		c.OT.SetSize = 1 << 20 // OT_SETSIZE
	}
	if c.OT.MaxNum == 0 {
		c.OT.MaxNum = 10 // OT_MAX_NUM
	}
	if c.OT.InputBitCount == 0 {
		if c.OT.MaliciousSecure {
			c.OT.InputBitCount = 76
		} else {
			c.OT.InputBitCount = 128
		}
	}
	if c.OT.IndexLen == 0 {
		c.OT.IndexLen = 20 // OT_INDEX_LEN
	}
	if c.OT.HashKeyLen == 0 {
		c.OT.HashKeyLen = 128 // HASHKEY_LEN
	}
	if c.OT.EncKeyLen == 0 {
		c.OT.EncKeyLen = 128 // ENCKEY_LEN
	}
	if c.OT.HashKeyPath == "" {
		c.OT.HashKeyPath = "hash_key.bin"
	}
	if c.OT.EncKeysPath == "" {
		c.OT.EncKeysPath = "encryption_keys.bin"
	}

	if c.PSI.Scheme == "" {
		c.PSI.Scheme = "KKRT16"
	}
	if c.PSI.SetSize == 0 {
		c.PSI.SetSize = 1 << 20 // PSI_SETSIZE
	}
	if c.PSI.IndexLen == 0 {
		c.PSI.IndexLen = 127 // PSI_INDEX_LEN
	}

	if c.Bloom.Capacity == 0 {
		c.Bloom.Capacity = 1 << 20
	}
	if c.Bloom.ErrorRate == 0 {
		c.Bloom.ErrorRate = 0.001
	}
	if c.Bloom.FilePath == "" {
		c.Bloom.FilePath = "storage.bloom"
	}

	if c.Security.MaxConnections == 0 {
		c.Security.MaxConnections = 10
	}
	if c.Security.RateLimitPerMin == 0 {
		c.Security.RateLimitPerMin = 5
	}

	if c.Timeouts.ConnectionTimeout == 0 {
		c.Timeouts.ConnectionTimeout = 30 * time.Second
	}
	if c.Timeouts.ReadTimeout == 0 {
		c.Timeouts.ReadTimeout = 60 * time.Second
	}
	if c.Timeouts.WriteTimeout == 0 {
		c.Timeouts.WriteTimeout = 60 * time.Second
	}
	if c.Timeouts.IdleTimeout == 0 {
		c.Timeouts.IdleTimeout = 300 * time.Second
	}
	if c.Timeouts.HandshakeTimeout == 0 {
		c.Timeouts.HandshakeTimeout = 30 * time.Second
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.DataDir == "" {
		c.DataDir = "."
	}
	if c.MaxProcs == 0 {
		c.MaxProcs = (maxProcsHint() + 1) / 2 // ceil(cpu_count/2), MAX_PROCS
	}
}

// Validate checks cross-field invariants the rest of the core relies on.
func (c *Config) Validate() error {
	if len(c.Record.RoundingVec) != c.Record.IDLength {
		return errs.ConfigError("config.Validate", fmt.Errorf("rounding_vec length %d != id_length %d", len(c.Record.RoundingVec), c.Record.IDLength))
	}
	if c.Record.IDLength > c.Record.Length {
		return errs.ConfigError("config.Validate", fmt.Errorf("id_length %d exceeds record length %d", c.Record.IDLength, c.Record.Length))
	}
	if c.OT.MaliciousSecure && c.OT.InputBitCount != 76 {
		return errs.ConfigError("config.Validate", fmt.Errorf("malicious-secure OT requires input_bit_count=76, got %d", c.OT.InputBitCount))
	}
	return nil
}

// Load reads and parses a YAML config file, applying defaults and
// validating the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.ConfigError("config.Load: read file", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errs.ConfigError("config.Load: parse yaml", err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
