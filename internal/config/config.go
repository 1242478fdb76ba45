package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	HTTP       HTTPConfig       `yaml:"http"`
	Dashboard  DashboardConfig  `yaml:"dashboard"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `yaml:"postgres"`
}

type PostgresConfig struct {
	URL                 string `yaml:"url"`
	MinConns            int    `yaml:"min_conns"`
	MaxConns            int    `yaml:"max_conns"`
	ConnectTimeout      string `yaml:"connect_timeout"`
	HealthcheckInterval string `yaml:"healthcheck_interval"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"` // vacío = cache deshabilitado
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type HTTPConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DashboardConfig struct {
	BroadcastInterval string `yaml:"broadcast_interval"` // ej: "5s"
	WarmupDelay       string `yaml:"warmup_delay"`       // ej: "2s"
	IdleTimeout       string `yaml:"idle_timeout"`       // ej: "30s"
	RecentScansLimit  int    `yaml:"recent_scans_limit"` // ej: 20
}

type MonitoringConfig struct {
	CheckInterval  string `yaml:"check_interval"`  // ej: "30s"
	OfflineTimeout string `yaml:"offline_timeout"` // ej: "2m"
}

// GetBroadcastInterval retorna el intervalo entre ciclos de difusión
func (d *DashboardConfig) GetBroadcastInterval() time.Duration {
	duration, err := time.ParseDuration(d.BroadcastInterval)
	if err != nil {
		return 5 * time.Second // default
	}
	return duration
}

// GetWarmupDelay retorna la espera inicial antes del primer ciclo
func (d *DashboardConfig) GetWarmupDelay() time.Duration {
	duration, err := time.ParseDuration(d.WarmupDelay)
	if err != nil {
		return 2 * time.Second // default
	}
	return duration
}

// GetIdleTimeout retorna el timeout de inactividad de una conexión push
func (d *DashboardConfig) GetIdleTimeout() time.Duration {
	duration, err := time.ParseDuration(d.IdleTimeout)
	if err != nil {
		return 30 * time.Second // default
	}
	return duration
}

// GetRecentScansLimit retorna cuántos escaneos recientes lleva el snapshot
func (d *DashboardConfig) GetRecentScansLimit() int {
	if d.RecentScansLimit <= 0 {
		return 20 // default
	}
	return d.RecentScansLimit
}

// GetCheckInterval retorna el intervalo del barrido de robots
func (m *MonitoringConfig) GetCheckInterval() time.Duration {
	duration, err := time.ParseDuration(m.CheckInterval)
	if err != nil {
		return 30 * time.Second // default
	}
	return duration
}

// GetOfflineTimeout retorna cuánto puede estar un robot sin reportar antes de
// marcarse como desconectado
func (m *MonitoringConfig) GetOfflineTimeout() time.Duration {
	duration, err := time.ParseDuration(m.OfflineTimeout)
	if err != nil {
		return 2 * time.Minute // default
	}
	return duration
}

// LoadConfig carga la configuración desde el archivo YAML
func LoadConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error leyendo archivo de configuración: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parseando YAML: %w", err)
	}

	return &config, nil
}

// Métodos helper para conversión de tipos
func (p PostgresConfig) GetConnectTimeoutDuration() (time.Duration, error) {
	return time.ParseDuration(p.ConnectTimeout)
}

func (p PostgresConfig) GetHealthcheckIntervalDuration() (time.Duration, error) {
	return time.ParseDuration(p.HealthcheckInterval)
}
