package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/dsvdc/vdchost/device"
	"github.com/dsvdc/vdchost/dsuid"
	"github.com/dsvdc/vdchost/session"
)

// Config is vdchostd's process-level configuration: host/vDC identity,
// listen port, metrics exposition, and the embedded session tuning (spec
// SPEC_FULL.md AMBIENT STACK / Configuration).
type Config struct {
	Port        int    `mapstructure:"port" yaml:"port"`
	MetricsAddr string `mapstructure:"metrics_addr" yaml:"metrics_addr"`

	Host Identity `mapstructure:"host" yaml:"host"`
	VDC  Identity `mapstructure:"vdc" yaml:"vdc"`

	Session session.Config `mapstructure:"session" yaml:"session"`

	Devices []DeviceConfig `mapstructure:"devices" yaml:"devices"`
}

// Identity names one side of the (host dsuid, vDC dsuid) pair, per spec §6
// "Configuration surface".
type Identity struct {
	DSUID    string `mapstructure:"dsuid" yaml:"dsuid"`
	Name     string `mapstructure:"name" yaml:"name"`
	Model    string `mapstructure:"model" yaml:"model"`
	ModelUID string `mapstructure:"model_uid" yaml:"model_uid"`
}

// DeviceConfig seeds one device.Device at startup, mirroring Device
// construction's parameters (spec §6: "(dsuid, name, model, model_uid,
// device_class)").
type DeviceConfig struct {
	DSUID    string `mapstructure:"dsuid" yaml:"dsuid"`
	Name     string `mapstructure:"name" yaml:"name"`
	Model    string `mapstructure:"model" yaml:"model"`
	ModelUID string `mapstructure:"model_uid" yaml:"model_uid"`
	Class    string `mapstructure:"class" yaml:"class"`
}

// LoadConfig loads configuration from file, environment (VDCHOSTD_*), and
// defaults, following the teacher pack's viper+mapstructure convention
// (marmos91/dittofs pkg/config.Load): env and file values are merged by
// viper, then mapstructure.ComposeDecodeHookFunc handles time.Duration
// fields, then applyDefaults fills anything still unset.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("VDCHOSTD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("vdchostd: reading config file: %w", err)
		}
	} else {
		v.SetConfigName("vdchostd")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
				return nil, fmt.Errorf("vdchostd: reading config file: %w", err)
			}
		}
	}

	var cfg Config
	hook := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
	if err := v.Unmarshal(&cfg, viper.DecodeHook(hook)); err != nil {
		return nil, fmt.Errorf("vdchostd: decoding config: %w", err)
	}

	applyDefaults(&cfg)
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Port == 0 {
		cfg.Port = 8444
	}
	if cfg.MetricsAddr == "" {
		cfg.MetricsAddr = ":9444"
	}
	if cfg.Host.Name == "" {
		cfg.Host.Name = "vdchostd"
	}
	if cfg.VDC.Name == "" {
		cfg.VDC.Name = "vdchostd-vdc"
	}
}

func validateConfig(cfg *Config) error {
	if !dsuid.Valid(cfg.Host.DSUID) {
		return fmt.Errorf("vdchostd: host.dsuid %q is not a valid dSUID", cfg.Host.DSUID)
	}
	if !dsuid.Valid(cfg.VDC.DSUID) {
		return fmt.Errorf("vdchostd: vdc.dsuid %q is not a valid dSUID", cfg.VDC.DSUID)
	}
	if err := cfg.Session.Valid(); err != nil {
		return fmt.Errorf("vdchostd: %w", err)
	}
	for i, d := range cfg.Devices {
		if !dsuid.Valid(d.DSUID) {
			return fmt.Errorf("vdchostd: devices[%d].dsuid %q is not a valid dSUID", i, d.DSUID)
		}
		if !device.Class(d.Class).Valid() {
			return fmt.Errorf("vdchostd: devices[%d].class %q is not a recognized device class", i, d.Class)
		}
	}
	return nil
}

