package config

import (
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds everything the service needs to start. Values come from an
// optional YAML file and are then overridden by SHOPCORE_* environment
// variables.
type Config struct {
	Service struct {
		Name     string `yaml:"name"`
		Port     int    `yaml:"port"`
		LogLevel string `yaml:"log_level"`
	} `yaml:"service"`
	MySQL struct {
		DSN string `yaml:"dsn"`
	} `yaml:"mysql"`
	Redis struct {
		Addr string `yaml:"addr"`
	} `yaml:"redis"`
	Kafka struct {
		Brokers            []string `yaml:"brokers"`
		OrdersTopic        string   `yaml:"orders_topic"`
		NotificationsTopic string   `yaml:"notifications_topic"`
	} `yaml:"kafka"`
	Jaeger struct {
		Endpoint string `yaml:"endpoint"`
	} `yaml:"jaeger"`
	Order struct {
		ShippingFee int64 `yaml:"shipping_fee"`
	} `yaml:"order"`
}

func Default() Config {
	var c Config
	c.Service.Name = "store-service"
	c.Service.Port = 8080
	c.Service.LogLevel = "info"
	c.MySQL.DSN = "root:root@tcp(localhost:3306)/shopcore?parseTime=true"
	c.Redis.Addr = "localhost:6379"
	c.Kafka.Brokers = []string{"localhost:9092"}
	c.Kafka.OrdersTopic = "orders"
	c.Kafka.NotificationsTopic = "notifications"
	c.Jaeger.Endpoint = "http://localhost:14268/api/traces"
	c.Order.ShippingFee = 30000
	return c
}

// Load reads the YAML file at path (if it exists) over the defaults and
// applies environment overrides last.
func Load(path string) (Config, error) {
	c := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(raw, &c); err != nil {
				return c, err
			}
		} else if !os.IsNotExist(err) {
			return c, err
		}
	}
	c.applyEnv()
	return c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("SHOPCORE_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Service.Port = p
		}
	}
	if v := os.Getenv("SHOPCORE_LOG_LEVEL"); v != "" {
		c.Service.LogLevel = v
	}
	if v := os.Getenv("SHOPCORE_MYSQL_DSN"); v != "" {
		c.MySQL.DSN = v
	}
	if v := os.Getenv("SHOPCORE_REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("SHOPCORE_KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("SHOPCORE_JAEGER_ENDPOINT"); v != "" {
		c.Jaeger.Endpoint = v
	}
	if v := os.Getenv("SHOPCORE_SHIPPING_FEE"); v != "" {
		if fee, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Order.ShippingFee = fee
		}
	}
}
