// Package config loads the topology configuration file.
//
// The file is YAML unless it ends in .json. Account, region and certificate
// may be left out of the file and supplied through AWS_ACCOUNT_ID,
// AWS_REGION and AWS_SSL_CERTIFICATE_ARN; values in the file win.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/ezenkico/deploy-commander/topology/models"
)

const (
	EnvAccount     = "AWS_ACCOUNT_ID"
	EnvRegion      = "AWS_REGION"
	EnvCertificate = "AWS_SSL_CERTIFICATE_ARN"
)

// Defaults applied to fields left empty.
const (
	DefaultStackName   = "topology"
	DefaultPlatform    = "memory"
	DefaultServicesDir = "services"
	DefaultImageTag    = "latest"
)

// Load reads path, fills missing environment fields and applies defaults.
func Load(path string) (*models.Configuration, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}

	cfg, err := Parse(b, strings.EqualFold(filepath.Ext(path), ".json"))
	if err != nil {
		return nil, fmt.Errorf("parse config %q: %w", path, err)
	}

	ApplyEnvironment(cfg, os.LookupEnv)
	ApplyDefaults(cfg)
	// relative source folders live next to the file
	if !filepath.IsAbs(cfg.ServicesDir) {
		cfg.ServicesDir = filepath.Join(filepath.Dir(path), cfg.ServicesDir)
	}
	return cfg, nil
}

// Parse decodes a configuration document. Unknown fields are rejected.
func Parse(b []byte, isJSON bool) (*models.Configuration, error) {
	var cfg models.Configuration
	if isJSON {
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return nil, err
		}
		return &cfg, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyEnvironment fills account, region and certificate from lookup when
// the file left them empty.
func ApplyEnvironment(cfg *models.Configuration, lookup func(string) (string, bool)) {
	fill := func(dst *string, key string) {
		if strings.TrimSpace(*dst) != "" {
			return
		}
		if v, ok := lookup(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	fill(&cfg.Account, EnvAccount)
	fill(&cfg.Region, EnvRegion)
	fill(&cfg.CertificateArn, EnvCertificate)
}

func ApplyDefaults(cfg *models.Configuration) {
	if cfg.StackName == "" {
		cfg.StackName = DefaultStackName
	}
	if cfg.Platform == "" {
		cfg.Platform = DefaultPlatform
	}
	if cfg.ServicesDir == "" {
		cfg.ServicesDir = DefaultServicesDir
	}
	if cfg.ImageTag == "" {
		cfg.ImageTag = DefaultImageTag
	}
	if cfg.Parallelism == 0 {
		cfg.Parallelism = 1
	}
	if cfg.Run == uuid.Nil {
		cfg.Run = uuid.New()
	}
}
