package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/davarch/build-compare/internal/domain"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

const (
	TokenBearer = "bearer"
	TokenPAT    = "pat"
)

type Pipeline struct {
	Name         string `yaml:"name,omitempty" toml:"name,omitempty" json:"name,omitempty"`
	DefinitionID int64  `yaml:"definition_id" toml:"definition_id" json:"definition_id"`
	TargetStage  string `yaml:"target_stage" toml:"target_stage" json:"target_stage"`
	RepositoryID string `yaml:"repository_id" toml:"repository_id" json:"repository_id"`
	PathFilter   string `yaml:"path_filter,omitempty" toml:"path_filter,omitempty" json:"path_filter,omitempty"`
	Branch       string `yaml:"branch,omitempty" toml:"branch,omitempty" json:"branch,omitempty"`
	Enabled      *bool  `yaml:"enabled,omitempty" toml:"enabled,omitempty" json:"enabled,omitempty"`
}

// IsEnabled treats a pipeline without an explicit enabled flag as enabled.
func (p Pipeline) IsEnabled() bool { return p.Enabled == nil || *p.Enabled }

func (p *Pipeline) SetEnabled(v bool) { p.Enabled = &v }

func (p Pipeline) Ref() domain.PipelineRef {
	return domain.PipelineRef{
		Name:         p.Name,
		DefinitionID: p.DefinitionID,
		TargetStage:  p.TargetStage,
		RepositoryID: p.RepositoryID,
		PathFilter:   p.PathFilter,
		Branch:       p.Branch,
	}
}

type Config struct {
	AzureDevOps struct {
		OrganizationURL string        `yaml:"organization_url" toml:"organization_url"`
		Project         string        `yaml:"project" toml:"project"`
		Token           string        `yaml:"token,omitempty" toml:"token,omitempty"`
		TokenType       string        `yaml:"token_type,omitempty" toml:"token_type,omitempty"`
		Timeout         time.Duration `yaml:"timeout" toml:"timeout"`
	} `yaml:"azure_devops" toml:"azure_devops"`

	Pipelines []Pipeline `yaml:"pipelines" toml:"pipelines"`

	Compare struct {
		MaxCandidates int    `yaml:"max_candidates" toml:"max_candidates"`
		MaxCommits    int    `yaml:"max_commits" toml:"max_commits"`
		ChunkSize     int    `yaml:"chunk_size" toml:"chunk_size"`
		BuildCount    int    `yaml:"build_count" toml:"build_count"`
		Concurrency   int    `yaml:"concurrency" toml:"concurrency"`
		Format        string `yaml:"format" toml:"format"`
	} `yaml:"compare" toml:"compare"`

	Watch struct {
		Interval  time.Duration `yaml:"interval" toml:"interval"`
		PauseFile string        `yaml:"pause_file" toml:"pause_file"`
		// Urgency and Expire are passed to notify-send as --urgency and --expire-time.
		Urgency   string        `yaml:"urgency,omitempty" toml:"urgency,omitempty"`
		Expire    time.Duration `yaml:"expire,omitempty" toml:"expire,omitempty"`
	} `yaml:"watch" toml:"watch"`
}

func defaults() Config {
	var c Config
	c.AzureDevOps.TokenType = TokenBearer
	c.AzureDevOps.Timeout = 30 * time.Second
	c.Compare.MaxCandidates = 50
	c.Compare.MaxCommits = 10000
	c.Compare.ChunkSize = 20
	c.Compare.BuildCount = 20
	c.Compare.Concurrency = 10
	c.Compare.Format = "plain"
	c.Watch.Interval = 5 * time.Minute
	return c
}

// Load reads defaults, then the file at path (YAML, or TOML for *.toml), then the environment.
// A missing file is not an error. Missing required settings are reported together,
// wrapped in domain.ErrConfigMissing; the partially filled config is still returned.
func Load(path string) (Config, error) {
	c, err := LoadFile(path)
	if err != nil {
		return c, err
	}

	applyEnv(&c)
	normalize(&c)

	return c, validate(c)
}

// LoadFile reads defaults and the file only. Use it before Save so that
// environment overrides never end up on disk.
func LoadFile(path string) (Config, error) {
	c := defaults()
	if path == "" {
		return c, nil
	}

	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := decode(path, b, &c); err != nil {
			return c, fmt.Errorf("parse %s: %w", path, err)
		}
	case !errors.Is(err, os.ErrNotExist):
		return c, err
	}
	return c, nil
}

func decode(path string, b []byte, c *Config) error {
	if isTOML(path) {
		_, err := toml.Decode(string(b), c)
		return err
	}
	return yaml.Unmarshal(b, c)
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

func applyEnv(c *Config) {
	if v := os.Getenv("AZURE_DEVOPS_ORG_URL"); v != "" {
		c.AzureDevOps.OrganizationURL = v
	}
	if v := os.Getenv("AZURE_DEVOPS_PROJECT"); v != "" {
		c.AzureDevOps.Project = v
	}
	if v := os.Getenv("AZURE_DEVOPS_TOKEN"); v != "" {
		c.AzureDevOps.Token = v
	} else if v := os.Getenv("AZURE_DEVOPS_EXT_PAT"); v != "" {
		c.AzureDevOps.Token = v
		c.AzureDevOps.TokenType = TokenPAT
	}
	if v := os.Getenv("AZURE_DEVOPS_TOKEN_TYPE"); v != "" {
		c.AzureDevOps.TokenType = v
	}
	if v := os.Getenv("AZURE_DEVOPS_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.AzureDevOps.Timeout = d
		}
	}

	if v := os.Getenv("ADO_PIPELINE_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Pipelines = []Pipeline{{
				Name:         getenv("ADO_PIPELINE_NAME", "env"),
				DefinitionID: id,
				TargetStage:  os.Getenv("ADO_TARGET_STAGE"),
				RepositoryID: os.Getenv("ADO_REPOSITORY_ID"),
				PathFilter:   os.Getenv("ADO_PATH_FILTER"),
				Branch:       os.Getenv("ADO_BRANCH"),
			}}
		}
	}

	if v := os.Getenv("WATCH_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Watch.Interval = d
		}
	}
}

func normalize(c *Config) {
	d := defaults()

	c.AzureDevOps.OrganizationURL = strings.TrimRight(strings.TrimSpace(c.AzureDevOps.OrganizationURL), "/")
	c.AzureDevOps.TokenType = strings.ToLower(strings.TrimSpace(c.AzureDevOps.TokenType))
	if c.AzureDevOps.TokenType == "" {
		c.AzureDevOps.TokenType = TokenBearer
	}
	if c.AzureDevOps.Timeout <= 0 {
		c.AzureDevOps.Timeout = d.AzureDevOps.Timeout
	}
	if c.Compare.MaxCandidates <= 0 {
		c.Compare.MaxCandidates = d.Compare.MaxCandidates
	}
	if c.Compare.MaxCommits <= 0 {
		c.Compare.MaxCommits = d.Compare.MaxCommits
	}
	if c.Compare.ChunkSize <= 0 {
		c.Compare.ChunkSize = d.Compare.ChunkSize
	}
	if c.Compare.BuildCount <= 0 {
		c.Compare.BuildCount = d.Compare.BuildCount
	}
	if c.Compare.Concurrency <= 0 {
		c.Compare.Concurrency = d.Compare.Concurrency
	}
	if c.Compare.Format == "" {
		c.Compare.Format = d.Compare.Format
	}
	if c.Watch.Interval <= 0 {
		c.Watch.Interval = d.Watch.Interval
	}
	if c.Watch.PauseFile == "" {
		c.Watch.PauseFile = "~/.cache/build-compare.paused"
	}
	c.Watch.PauseFile = expandHome(c.Watch.PauseFile)
	c.Watch.Urgency = strings.ToLower(strings.TrimSpace(c.Watch.Urgency))
}

func validate(c Config) error {
	var err error
	if c.AzureDevOps.OrganizationURL == "" {
		err = multierr.Append(err, errors.New("azure_devops.organization_url (AZURE_DEVOPS_ORG_URL) is required"))
	}
	if c.AzureDevOps.Project == "" {
		err = multierr.Append(err, errors.New("azure_devops.project (AZURE_DEVOPS_PROJECT) is required"))
	}
	if c.AzureDevOps.Token == "" {
		err = multierr.Append(err, errors.New("AZURE_DEVOPS_TOKEN is required"))
	}
	if t := c.AzureDevOps.TokenType; t != TokenBearer && t != TokenPAT {
		err = multierr.Append(err, fmt.Errorf("azure_devops.token_type %q must be %q or %q", t, TokenBearer, TokenPAT))
	}
	switch c.Watch.Urgency {
	case "", "low", "normal", "critical":
	default:
		err = multierr.Append(err, fmt.Errorf("watch.urgency %q must be low, normal or critical", c.Watch.Urgency))
	}
	if c.Watch.Expire < 0 {
		err = multierr.Append(err, errors.New("watch.expire must not be negative"))
	}
	if len(c.Pipelines) == 0 {
		err = multierr.Append(err, errors.New("no pipelines configured (YAML or ENV)"))
	}
	for i, p := range c.Pipelines {
		label := p.Name
		if label == "" {
			label = "#" + strconv.Itoa(i)
		}
		if p.DefinitionID <= 0 {
			err = multierr.Append(err, fmt.Errorf("pipeline %s: definition_id is required", label))
		}
		if p.TargetStage == "" {
			err = multierr.Append(err, fmt.Errorf("pipeline %s: target_stage is required", label))
		}
		if p.RepositoryID == "" {
			err = multierr.Append(err, fmt.Errorf("pipeline %s: repository_id is required", label))
		}
	}

	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrConfigMissing, err)
	}
	return nil
}

// Select returns the named pipeline, or the first enabled one when name is empty.
func (c Config) Select(name string) (Pipeline, error) {
	for _, p := range c.Pipelines {
		if name == "" && p.IsEnabled() || name != "" && p.Name == name {
			return p, nil
		}
	}
	if name == "" {
		return Pipeline{}, errors.New("no enabled pipelines")
	}
	return Pipeline{}, fmt.Errorf("pipeline %q not found", name)
}

func (c Config) EnabledPipelines() []domain.PipelineRef {
	var out []domain.PipelineRef
	for _, p := range c.Pipelines {
		if p.IsEnabled() {
			out = append(out, p.Ref())
		}
	}
	return out
}

// Save writes c to path atomically while holding an exclusive lock on path.lock.
func Save(path string, c Config) error {
	if path == "" {
		return errors.New("empty config path")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	lockFile := path + ".lock"
	lf, err := os.OpenFile(lockFile, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return err
	}
	defer func() { _ = lf.Close() }()

	unlock, err := lock(lf)
	if err != nil {
		return err
	}
	defer unlock()

	b, err := encode(path, c)
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}

	defer func() { _ = f.Close() }()

	if _, err := f.Write(b); err != nil {
		return err
	}

	if err := f.Sync(); err != nil {
		return err
	}

	return os.Rename(tmp, path)
}

func encode(path string, c Config) ([]byte, error) {
	if isTOML(path) {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(c); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return yaml.Marshal(&c)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func expandHome(p string) string {
	if strings.HasPrefix(p, "~/") {
		if h, _ := os.UserHomeDir(); h != "" {
			return h + p[1:]
		}
	}
	return p
}
