package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

type StructuredJSONConfig struct {
	Vault struct {
		AuthSalt        string   `json:"auth_salt"`
		LinkSalt        string   `json:"link_salt"`
		DefaultLinkTTL  Duration `json:"default_link_ttl"`
		DefaultMaxViews int64    `json:"default_max_views"`
	} `json:"vault,omitempty"`

	Storage struct {
		DB struct {
			Driver string `json:"driver"`
			DSN    string `json:"dsn"`
		} `json:"db,omitempty"`
	} `json:"storage,omitempty"`

	Rotation struct {
		BatchSize         int `json:"batch_size"`
		Parallelism       int `json:"parallelism"`
		ProgressQueueSize int `json:"progress_queue_size"`
	} `json:"rotation,omitempty"`

	Audit struct {
		QueueSize int `json:"queue_size"`
	} `json:"audit,omitempty"`
}

func parseJSON(jsonFilePath string) (*StructuredConfig, error) {
	jsonFile, err := os.Open(jsonFilePath)
	if err != nil {
		return nil, fmt.Errorf("error reading a json file: %w", err)
	}
	defer jsonFile.Close()

	var jsonCfg StructuredJSONConfig
	if err := json.NewDecoder(jsonFile).Decode(&jsonCfg); err != nil {
		return nil, fmt.Errorf("error decoding json configs: %w", err)
	}

	cfg := &StructuredConfig{
		Vault: Vault{
			AuthSalt:        jsonCfg.Vault.AuthSalt,
			LinkSalt:        jsonCfg.Vault.LinkSalt,
			DefaultLinkTTL:  time.Duration(jsonCfg.Vault.DefaultLinkTTL),
			DefaultMaxViews: jsonCfg.Vault.DefaultMaxViews,
		},
		Storage: Storage{
			DB: DB{
				Driver: jsonCfg.Storage.DB.Driver,
				DSN:    jsonCfg.Storage.DB.DSN,
			},
		},
		Rotation: Rotation{
			BatchSize:         jsonCfg.Rotation.BatchSize,
			Parallelism:       jsonCfg.Rotation.Parallelism,
			ProgressQueueSize: jsonCfg.Rotation.ProgressQueueSize,
		},
		Audit: Audit{
			QueueSize: jsonCfg.Audit.QueueSize,
		},
		JSONFilePath: "",
	}

	return cfg, nil
}

// Duration is a wrapper around time.Duration that supports JSON unmarshaling from strings like "1h", "30s"
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		tmp, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		*d = Duration(tmp)
		return nil
	default:
		return json.Unmarshal(b, (*time.Duration)(d))
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}
