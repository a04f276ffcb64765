/*
Copyright 2025 Flant JSC

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"gopkg.in/yaml.v3"
)

const (
	HomeEnv = "CMUX_HOME"

	DefaultPort = 7180
)

var (
	ErrInvalid         = errors.New("invalid configuration")
	ErrUnknownManager  = errors.New("manager is not defined in cm.yaml")
	ErrKerberosMissing = errors.New("kerberos is not configured")
)

// Home is $CMUX_HOME, defaulting to ~/.cmux.
func Home() string {
	if home := os.Getenv(HomeEnv); home != "" {
		return home
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return ".cmux"
	}
	return filepath.Join(userHome, ".cmux")
}

func DefaultManagersPath() string {
	return filepath.Join(Home(), "config", "cm.yaml")
}

func DefaultSettingsPath() string {
	return filepath.Join(Home(), "config", "cmux.yaml")
}

func DefaultSnapshotPath() string {
	return filepath.Join(Home(), "data", "cmux.yaml")
}

type Kerberos struct {
	Krb5Conf  string `yaml:"krb5.conf"`
	Keytab    string `yaml:"keytab"`
	Principal string `yaml:"principal"`
}

type Service struct {
	Kerberos *Kerberos `yaml:"kerberos"`
}

// Manager is one Cloudera Manager entry of cm.yaml.
type Manager struct {
	Name               string             `yaml:"-"`
	User               string             `yaml:"user"`
	Password           string             `yaml:"password"`
	Port               int                `yaml:"port"`
	UseSSL             bool               `yaml:"use_ssl"`
	InsecureSkipVerify bool               `yaml:"insecure_skip_verify"`
	Description        string             `yaml:"description"`
	Service            map[string]Service `yaml:"service"`

	// dir resolves relative kerberos paths.
	dir string
}

// BaseURL is scheme://host:port of the manager.
func (m Manager) BaseURL() string {
	scheme := "http"
	if m.UseSSL {
		scheme = "https"
	}
	return scheme + "://" + net.JoinHostPort(m.Name, strconv.Itoa(m.Port))
}

// KerberosFor returns absolute kerberos settings of a service type. Every
// field must be set and both files must exist.
func (m Manager) KerberosFor(serviceType string) (*Kerberos, error) {
	krb := m.Service[serviceType].Kerberos
	if krb == nil {
		return nil, fmt.Errorf("%w for '%s:%s'", ErrKerberosMissing, m.Name, serviceType)
	}

	var errs []error
	resolved := &Kerberos{Principal: krb.Principal}
	for _, f := range []struct {
		key string
		val string
		dst *string
	}{
		{"krb5.conf", krb.Krb5Conf, &resolved.Krb5Conf},
		{"keytab", krb.Keytab, &resolved.Keytab},
	} {
		if f.val == "" {
			errs = append(errs, fmt.Errorf("'%s' is not defined for '%s:%s'", f.key, m.Name, serviceType))
			continue
		}
		p := f.val
		if !filepath.IsAbs(p) {
			p = filepath.Join(m.dir, p)
		}
		if _, err := os.Stat(p); err != nil {
			errs = append(errs, fmt.Errorf("%s does not exist", p))
			continue
		}
		*f.dst = p
	}
	if krb.Principal == "" {
		errs = append(errs, fmt.Errorf("'principal' is not defined for '%s:%s'", m.Name, serviceType))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrKerberosMissing, err)
	}
	return resolved, nil
}

// Settings are the tool wide options of cmux.yaml.
type Settings struct {
	HBaseToolsHome    string   `yaml:"hbase_tools_home"`
	ManifestDir       string   `yaml:"manifest_dir"`
	ExcludedRoleTypes []string `yaml:"excluded_role_types"`
	Java              string   `yaml:"java"`
}

type Config struct {
	Managers map[string]Manager
	Settings Settings
}

// Manager returns the named manager entry.
func (c *Config) Manager(name string) (Manager, error) {
	m, ok := c.Managers[name]
	if !ok {
		return Manager{}, fmt.Errorf("%q: %w", name, ErrUnknownManager)
	}
	return m, nil
}

// ManagerNames returns the configured managers in name order.
func (c *Config) ManagerNames() []string {
	names := make([]string, 0, len(c.Managers))
	for name := range c.Managers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Load reads cm.yaml and the optional cmux.yaml.
func Load(managersPath, settingsPath string) (*Config, error) {
	managers, err := loadManagers(managersPath)
	if err != nil {
		return nil, err
	}
	settings, err := loadSettings(settingsPath)
	if err != nil {
		return nil, err
	}
	return &Config{Managers: managers, Settings: settings}, nil
}

func loadManagers(path string) (map[string]Manager, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manager list: %w", err)
	}

	var managers map[string]Manager
	if err := yaml.Unmarshal(raw, &managers); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", ErrInvalid, path, err)
	}
	if len(managers) == 0 {
		return nil, fmt.Errorf("%w: no managers defined in %s", ErrInvalid, path)
	}

	dir := filepath.Dir(path)
	var errs []error
	for name, m := range managers {
		m.Name = name
		m.dir = dir
		if m.Port == 0 {
			m.Port = DefaultPort
		}
		if m.User == "" || m.Password == "" {
			errs = append(errs, fmt.Errorf("'user' and 'password' are required for %s", name))
		}
		managers[name] = m
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return managers, nil
}

func loadSettings(path string) (Settings, error) {
	settings := Settings{}

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return Settings{}, fmt.Errorf("read settings: %w", err)
	default:
		if err := yaml.Unmarshal(raw, &settings); err != nil {
			return Settings{}, fmt.Errorf("%w: parse %s: %w", ErrInvalid, path, err)
		}
	}

	if settings.HBaseToolsHome == "" {
		settings.HBaseToolsHome = filepath.Join(Home(), "lib", "hbase-tools")
	}
	if settings.ManifestDir == "" {
		settings.ManifestDir = os.TempDir()
	}
	if len(settings.ExcludedRoleTypes) == 0 {
		settings.ExcludedRoleTypes = []string{
			"BALANCER", "GATEWAY", "ACTIVITYMONITOR", "HOSTMONITOR",
			"EVENTSERVER", "SERVICEMONITOR", "ALERTPUBLISHER",
		}
	}
	if settings.Java == "" {
		settings.Java = "java"
	}
	return settings, nil
}
