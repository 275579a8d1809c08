package config

import (
	_ "embed"
	"fmt"
	"os"
	"os/user"
	"path"
	"strings"
	"sync"
	"time"

	"gargoton.petite-maison-orange.fr/eric/pmovolume/fileutils"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

//go:embed pmovolume.yaml
var defaultConfig []byte

type Config struct {
	path   string
	mutex  sync.Mutex
	config map[string]interface{}
}

const (
	envConfigFile = "PMOVOLUME_CONFIG"
	envPrefix     = "PMOVOLUME_CONFIG__"
	localFile     = ".pmovolume.yml"
)

// LoadConfig loads the configuration from the first readable file among:
//   - filename,
//   - the file named by $PMOVOLUME_CONFIG,
//   - ./.pmovolume.yml,
//   - ~/.pmovolume.yml,
//
// and falls back on the embedded default. PMOVOLUME_CONFIG__A__B=value
// environment variables then override the a.b entries. The result is saved
// back to the first writable candidate so generated values (UDN) survive a
// restart.
func LoadConfig(filename string) (*Config, error) {
	var data []byte
	var err error

	path := filename

	if path != "" {
		log.Infof("✅ Trying to load config %s", path)
		data, err = os.ReadFile(path)
		if err != nil {
			log.Warnf("❌ cannot read config file %s", path)
			path = ""
		}
	}

	if path == "" {
		path = os.Getenv(envConfigFile)
		if path != "" {
			log.Infof("✅ Trying to load config specified in env var %s", envConfigFile)
			data, err = os.ReadFile(path)
			if err != nil {
				log.Warnf("❌ cannot read config file %s specified in env var %s", path, envConfigFile)
				path = ""
			}
		}
	}

	if path == "" {
		path = localFile
		log.Infof("✅ Trying to load config file ./%s", localFile)
		data, err = os.ReadFile(path)
		if err != nil {
			log.Debugf("❌ I cannot read config file ./%s", localFile)
			path = ""
		}
	}

	if path == "" {
		path = getHomeYmlPath()
		if path != "" {
			log.Infof("✅ Trying to load config file from user's home %s", path)
			data, err = os.ReadFile(path)
			if err != nil {
				log.Debugf("❌ I cannot read config file %s", path)
				path = ""
			}
		}
	}

	if path == "" {
		log.Infof("✅ Using default embeded config")
		data = defaultConfig
	}

	cfg := &Config{config: make(map[string]interface{})}
	if err := yaml.Unmarshal(data, &cfg.config); err != nil {
		return nil, fmt.Errorf("invalid YAML config %s: %w", path, err)
	}
	if cfg.config == nil {
		cfg.config = make(map[string]interface{})
	}

	cfg.config = lowerKeysMap(cfg.config)
	applyEnvOverrides(cfg)

	if path == "" {
		switch {
		case filename != "" && fileutils.IsWriteable(filename):
			path = filename
		case os.Getenv(envConfigFile) != "" && fileutils.IsWriteable(os.Getenv(envConfigFile)):
			path = os.Getenv(envConfigFile)
		case fileutils.IsWriteable(localFile):
			path = localFile
		case fileutils.IsWriteable(getHomeYmlPath()):
			path = getHomeYmlPath()
		}
	} else if !fileutils.IsWriteable(path) {
		path = ""
	}

	if path == "" {
		log.Warn("⚠️ I cannot find a place to store config file, changes will be lost")
		return cfg, nil
	}

	log.Infof("✅ Config file will be stored in %s", path)
	cfg.path = path

	if err := cfg.Save(); err != nil {
		log.Warnf("❌ Cannot save config to %s: %v", path, err)
	}

	return cfg, nil
}

// Path returns the file the configuration is saved to, empty when it is
// not persisted.
func (cfg *Config) Path() string {
	return cfg.path
}

func (cfg *Config) Save() error {
	cfg.mutex.Lock()
	defer cfg.mutex.Unlock()

	if cfg.path == "" {
		return nil
	}

	cfg.config = lowerKeysMap(cfg.config)

	data, err := yaml.Marshal(cfg.config)
	if err != nil {
		return err
	}

	return os.WriteFile(cfg.path, data, 0644)
}

func (cfg *Config) SetValue(path []string, value interface{}) error {
	cfg.setValue(path, value)
	return cfg.Save()
}

func (cfg *Config) GetValue(path []string) (interface{}, error) {
	cfg.mutex.Lock()
	defer cfg.mutex.Unlock()

	current := cfg.config
	for i, key := range path {
		key = strings.ToLower(key)

		next, ok := current[key]
		if !ok {
			return nil, fmt.Errorf("path %s does not exist", strings.Join(path[:i+1], "."))
		}
		if i < len(path)-1 {
			current, ok = next.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("path %s is not a Config", strings.Join(path[:i+1], "."))
			}
			continue
		}
		return next, nil
	}
	return nil, fmt.Errorf("path %s does not exist", strings.Join(path, "."))
}

// Decode unmarshals the subtree at path into out, using its yaml tags.
func (cfg *Config) Decode(path []string, out interface{}) error {
	value, err := cfg.GetValue(path)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(value)
	if err != nil {
		return fmt.Errorf("cannot encode %s: %w", strings.Join(path, "."), err)
	}

	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("cannot decode %s: %w", strings.Join(path, "."), err)
	}
	return nil
}

// setValue sets a value in the nested map at the given path.
func (cfg *Config) setValue(path []string, value interface{}) {
	cfg.mutex.Lock()
	defer cfg.mutex.Unlock()

	current := cfg.config
	for i, key := range path {
		key = strings.ToLower(key)
		if i == len(path)-1 {
			current[key] = value
			return
		}
		next, ok := current[key].(map[string]interface{})
		if !ok {
			// un chemin qui traverse une valeur scalaire l'écrase
			next = make(map[string]interface{})
			current[key] = next
		}
		current = next
	}
}

func getHomeYmlPath() string {
	usr, err := user.Current()
	if err != nil || usr.HomeDir == "" {
		return ""
	}
	return path.Join(usr.HomeDir, localFile)
}

func applyEnvOverrides(cfg *Config) {
	for _, env := range os.Environ() {
		if !strings.HasPrefix(env, envPrefix) {
			continue
		}

		parts := strings.SplitN(env, "=", 2)
		if len(parts) != 2 {
			continue
		}

		keyPath := strings.Split(strings.TrimPrefix(parts[0], envPrefix), "__")
		log.Debugf("✅ Config override %s from environment", strings.ToLower(strings.Join(keyPath, ".")))
		cfg.setValue(keyPath, convertYAMLScalar(parts[1]))
	}
}

func convertYAMLScalar(s string) interface{} {
	var out interface{}
	if err := yaml.Unmarshal([]byte(s), &out); err != nil {
		// fallback: keep string if parsing failed
		return s
	}
	if out == nil {
		return s
	}
	return out
}

func lowerKeysMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{})
	for k, v := range m {
		lk := strings.ToLower(k)
		// si c'est une map imbriquée, traiter récursivement
		switch vv := v.(type) {
		case map[string]interface{}:
			out[lk] = lowerKeysMap(vv)
		default:
			out[lk] = v
		}
	}
	return out
}

func (cfg *Config) getString(path []string, def string) string {
	v, err := cfg.GetValue(path)
	if err != nil {
		return def
	}
	s, ok := v.(string)
	if !ok {
		return def
	}
	return s
}

func (cfg *Config) getInt(path []string, def int) int {
	v, err := cfg.GetValue(path)
	if err != nil {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case uint64:
		return int(n)
	case float64:
		return int(n)
	}
	return def
}

func (cfg *Config) getFloat(path []string, def float64) float64 {
	v, err := cfg.GetValue(path)
	if err != nil {
		return def
	}
	switch n := v.(type) {
	case int:
		return float64(n)
	case float64:
		return n
	}
	return def
}

func (cfg *Config) getBool(path []string, def bool) bool {
	v, err := cfg.GetValue(path)
	if err != nil {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		return def
	}
	return b
}

func (cfg *Config) getUint32(path []string, def uint32) uint32 {
	n := cfg.getInt(path, int(def))
	if n < 0 || int64(n) > int64(^uint32(0)) {
		return def
	}
	return uint32(n)
}

func (cfg *Config) getSeconds(path []string, def time.Duration) time.Duration {
	n := cfg.getFloat(path, def.Seconds())
	if n <= 0 {
		return def
	}
	return time.Duration(n * float64(time.Second))
}

func (cfg *Config) GetBaseURL() string {
	return cfg.getString([]string{"host", "base_url"}, "")
}

func (cfg *Config) GetHTTPPort() int {
	return cfg.getInt([]string{"host", "http_port"}, 1400)
}

func (cfg *Config) GetFriendlyName() string {
	return cfg.getString([]string{"host", "friendly_name"}, "PMOVolume")
}

func (cfg *Config) GetLogLevel() string {
	return cfg.getString([]string{"log", "level"}, "info")
}

func (cfg *Config) GetLogJSON() bool {
	return cfg.getBool([]string{"log", "json"}, false)
}

func (cfg *Config) GetLogWeb() bool {
	return cfg.getBool([]string{"log", "web"}, true)
}

func (cfg *Config) GetSSDPEnabled() bool {
	return cfg.getBool([]string{"ssdp", "enabled"}, true)
}

func (cfg *Config) GetSSDPMaxAge() int {
	return cfg.getInt([]string{"ssdp", "max_age"}, 1800)
}

func (cfg *Config) GetInterfaceRevision() uint32 {
	return cfg.getUint32([]string{"mainvolume", "interface_revision"}, 0)
}

func (cfg *Config) GetInitialMode() string {
	return cfg.getString([]string{"mainvolume", "initial_mode"}, "fallback")
}

func (cfg *Config) GetInitialStep() uint32 {
	return cfg.getUint32([]string{"mainvolume", "initial_step"}, 0)
}

func (cfg *Config) GetMaxStepCount() uint32 {
	return cfg.getUint32([]string{"mainvolume", "max_step_count"}, 64)
}

// GetStepCountRate returns the accepted StepCount writes per second, 0 for
// no limit.
func (cfg *Config) GetStepCountRate() float64 {
	return cfg.getFloat([]string{"mainvolume", "step_count_rate"}, 0)
}

func (cfg *Config) GetStepCountBurst() int {
	return cfg.getInt([]string{"mainvolume", "step_count_burst"}, 1)
}

func (cfg *Config) GetEventingTimeout() time.Duration {
	return cfg.getSeconds([]string{"eventing", "default_timeout"}, 1800*time.Second)
}

func (cfg *Config) GetEventQueueSize() int {
	return cfg.getInt([]string{"eventing", "queue_size"}, 16)
}

func (cfg *Config) GetNotifyTimeout() time.Duration {
	return cfg.getSeconds([]string{"eventing", "notify_timeout"}, 5*time.Second)
}

// GetDeviceUDN returns the UDN of the named device, generating and saving
// one on first use.
func (cfg *Config) GetDeviceUDN(name string) string {
	path := []string{"devices", name, "udn"}

	if udn := cfg.getString(path, ""); udn != "" {
		return udn
	}

	udn := uuid.New().String()
	if err := cfg.SetValue(path, udn); err != nil {
		log.Warnf("❌ Cannot save UDN of %s: %v", name, err)
	}
	return udn
}
