// Package prober actively checks proxies and writes the results to the
// heal-check log. It never writes to the signal log.
package prober

import (
	"fmt"
	"os"
	"strings"

	"leadflow_backend/internal/proxyhealth/domain"

	"gopkg.in/yaml.v3"
)

const (
	SchemeHTTP   = "http"
	SchemeHTTPS  = "https"
	SchemeSOCKS5 = "socks5"
)

// Target is one proxy to probe.
type Target struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Scheme   string `yaml:"scheme"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

func (t Target) Key() domain.ProxyKey {
	return domain.ProxyKey{Host: t.Host, Port: t.Port}
}

type poolFile struct {
	Proxies []Target `yaml:"proxies"`
}

// LoadPool reads the proxy pool from a YAML file of the form
//
//	proxies:
//	  - host: 10.0.0.1
//	    port: 8080
//	    scheme: http
func LoadPool(path string) ([]Target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read proxy pool: %w", err)
	}
	return ParsePool(data)
}

// ParsePool decodes and normalizes pool YAML. Scheme defaults to http.
func ParsePool(data []byte) ([]Target, error) {
	var file poolFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode proxy pool: %w", err)
	}

	targets := make([]Target, 0, len(file.Proxies))
	for i, t := range file.Proxies {
		t.Host = strings.ToLower(strings.TrimSpace(t.Host))
		t.Scheme = strings.ToLower(strings.TrimSpace(t.Scheme))
		if t.Scheme == "" {
			t.Scheme = SchemeHTTP
		}
		if t.Host == "" {
			return nil, fmt.Errorf("proxy %d: host is required", i)
		}
		if t.Port < 1 || t.Port > 65535 {
			return nil, fmt.Errorf("proxy %d (%s): invalid port %d", i, t.Host, t.Port)
		}
		switch t.Scheme {
		case SchemeHTTP, SchemeHTTPS, SchemeSOCKS5:
		default:
			return nil, fmt.Errorf("proxy %d (%s): unsupported scheme %q", i, t.Host, t.Scheme)
		}
		targets = append(targets, t)
	}
	return targets, nil
}
