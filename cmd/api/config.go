package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

type Config struct {
	HttpPort          int           `json:"http_port"`
	DbConnString      string        `json:"db_conn_string"`
	DbConnectAttempts int           `json:"db_connect_attempts"`
	RedisAddr         string        `json:"redis_addr"`
	StoreTimeoutStr   string        `json:"store_timeout"`
	StoreTimeout      time.Duration `json:"-"`
	SummaryTTLStr     string        `json:"summary_ttl"`
	SummaryTTL        time.Duration `json:"-"`
	VerifyToken       string        `json:"verify_token"`
	OperatorID        string        `json:"operator_id"`
	OperatorName      string        `json:"operator_name"`
	IndexMode         string        `json:"index_mode"`
	SubscriberBuffer  int           `json:"subscriber_buffer"`
	IngestWorkers     int           `json:"ingest_workers"`
	MessagePageSize   int           `json:"message_page_size"`
}

const (
	indexModeCached = "cached"
	indexModeScan   = "scan"
)

// ReadConfigJson reads json formatted configuration from the given file
func ReadConfigJson(configFile string) (*Config, error) {
	content, err := os.ReadFile(configFile)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HttpPort:          6060,
		DbConnectAttempts: 5,
		StoreTimeoutStr:   "5s",
		SummaryTTLStr:     "24h",
		OperatorID:        "operator",
		OperatorName:      "Operator",
		IndexMode:         indexModeCached,
		SubscriberBuffer:  64,
		IngestWorkers:     8,
		MessagePageSize:   100,
	}

	if err = json.Unmarshal(content, cfg); err != nil {
		return nil, err
	}

	cfg.StoreTimeout, err = time.ParseDuration(cfg.StoreTimeoutStr)
	if err != nil {
		return nil, err
	}
	cfg.SummaryTTL, err = time.ParseDuration(cfg.SummaryTTLStr)
	if err != nil {
		return nil, err
	}

	if cfg.IndexMode != indexModeCached && cfg.IndexMode != indexModeScan {
		return nil, fmt.Errorf("unknown index_mode %q", cfg.IndexMode)
	}

	return cfg, nil
}
