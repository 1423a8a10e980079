package config

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"gopkg.in/yaml.v3"
)

// Remote is the document served by the configuration server. Only non-empty
// values override what the environment provided.
type Remote struct {
	Addr     string `yaml:"addr"`
	LogLevel string `yaml:"log_level"`
	Mongo    struct {
		URI      string `yaml:"uri"`
		Database string `yaml:"database"`
		Policy   string `yaml:"policy_collection"`
		History  string `yaml:"history_collection"`
		Deleted  string `yaml:"deleted_collection"`
		Users    string `yaml:"user_collection"`
	} `yaml:"mongo"`
	Auth struct {
		JWKSURL   string `yaml:"jwks_url"`
		Algorithm string `yaml:"algorithm"`
		Timeout   string `yaml:"timeout"`
	} `yaml:"auth"`
	Redis struct {
		URL      string `yaml:"url"`
		LeaseTTL string `yaml:"lease_ttl"`
	} `yaml:"redis"`
	Kafka struct {
		Brokers []string `yaml:"brokers"`
		Topic   string   `yaml:"topic"`
	} `yaml:"kafka"`
}

// Fetcher downloads the remote configuration document.
type Fetcher struct {
	client     *http.Client
	maxElapsed time.Duration
}

// NewFetcher returns a Fetcher whose retries stop after maxElapsed.
func NewFetcher(timeout, maxElapsed time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if maxElapsed <= 0 {
		maxElapsed = 30 * time.Second
	}
	return &Fetcher{
		client:     &http.Client{Timeout: timeout},
		maxElapsed: maxElapsed,
	}
}

// Fetch GETs http://<proxy>/<path> and decodes it as YAML. Transport errors
// and 5xx responses are retried; 4xx and decoding errors are not.
func (f *Fetcher) Fetch(ctx context.Context, proxy, path string) (*Remote, error) {
	url := remoteURL(proxy, path)

	var body []byte
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := f.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("config server returned %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("config server returned %d", resp.StatusCode))
		}
		body, err = io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return err
	}

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = f.maxElapsed
	if err := backoff.Retry(op, backoff.WithContext(policy, ctx)); err != nil {
		return nil, fmt.Errorf("fetch remote config %s: %w", url, err)
	}

	var remote Remote
	if err := yaml.Unmarshal(body, &remote); err != nil {
		return nil, fmt.Errorf("decode remote config: %w", err)
	}
	return &remote, nil
}

func remoteURL(proxy, path string) string {
	proxy = strings.TrimSuffix(proxy, "/")
	if !strings.HasPrefix(proxy, "http://") && !strings.HasPrefix(proxy, "https://") {
		proxy = "http://" + proxy
	}
	return proxy + "/" + strings.TrimPrefix(path, "/")
}

// Apply overlays the non-empty remote values onto s.
func (s *Server) Apply(r *Remote) {
	if r == nil {
		return
	}
	override(&s.Addr, r.Addr)
	override(&s.LogLevel, r.LogLevel)
	override(&s.Mongo.URI, r.Mongo.URI)
	override(&s.Mongo.Database, r.Mongo.Database)
	override(&s.Mongo.PolicyCollection, r.Mongo.Policy)
	override(&s.Mongo.HistoryCollection, r.Mongo.History)
	override(&s.Mongo.DeletedCollection, r.Mongo.Deleted)
	override(&s.Mongo.UserCollection, r.Mongo.Users)
	override(&s.Auth.JWKSURL, r.Auth.JWKSURL)
	override(&s.Auth.Algorithm, r.Auth.Algorithm)
	overrideDuration(&s.Auth.Timeout, r.Auth.Timeout)
	override(&s.Redis.URL, r.Redis.URL)
	overrideDuration(&s.Redis.LeaseTTL, r.Redis.LeaseTTL)
	if len(r.Kafka.Brokers) > 0 {
		s.Kafka.Brokers = r.Kafka.Brokers
	}
	override(&s.Kafka.Topic, r.Kafka.Topic)
}

// Load reads the environment and, when PROXY_URL is set, overlays the
// document found at CONFIG_PATH on the configuration server.
func Load(ctx context.Context) (Server, error) {
	cfg := FromEnv()
	proxy := os.Getenv("PROXY_URL")
	if proxy == "" {
		return cfg, nil
	}
	remote, err := NewFetcher(0, 0).Fetch(ctx, proxy, getEnv("CONFIG_PATH", "middleoffice.yaml"))
	if err != nil {
		return cfg, err
	}
	cfg.Apply(remote)
	return cfg, nil
}

func override(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func overrideDuration(dst *time.Duration, v string) {
	if v == "" {
		return
	}
	if d, err := time.ParseDuration(v); err == nil {
		*dst = d
	}
}
