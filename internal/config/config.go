package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ProcessConfig holds configuration for the process command.
type ProcessConfig struct {
	Input     string
	PGDSN     string
	CHDSN     string
	Out       string
	StateFile string
	BatchSize int
	RPCURL    string
	LogLevel  string

	NativeToken     string
	AnchorPool      string
	StableIsToken0  bool
	MinNativeLocked string
	WhitelistTokens []string
	StableTokens    []string
}

// LoadProcess merges config file, environment variables, and flags into ProcessConfig.
func LoadProcess(cfgFile string, flags *pflag.FlagSet) (ProcessConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return ProcessConfig{}, err
	}

	v.SetDefault("batch-size", 1000)
	v.SetDefault("log-level", "info")
	v.SetDefault("min-native-locked", "1")

	cfg := ProcessConfig{
		Input:           v.GetString("in"),
		PGDSN:           v.GetString("pg-dsn"),
		CHDSN:           v.GetString("ch-dsn"),
		Out:             v.GetString("out"),
		StateFile:       v.GetString("state-file"),
		BatchSize:       v.GetInt("batch-size"),
		RPCURL:          v.GetString("rpc"),
		LogLevel:        v.GetString("log-level"),
		NativeToken:     v.GetString("native-token"),
		AnchorPool:      v.GetString("anchor-pool"),
		StableIsToken0:  v.GetBool("stable-is-token0"),
		MinNativeLocked: v.GetString("min-native-locked"),
		WhitelistTokens: getStringSlice(v, "whitelist"),
		StableTokens:    getStringSlice(v, "stables"),
	}

	return cfg, nil
}

// BackfillConfig holds configuration for the backfill-meta command.
type BackfillConfig struct {
	RPCURL   string
	PGDSN    string
	LogLevel string
}

// LoadBackfill merges config file, environment variables, and flags into BackfillConfig.
func LoadBackfill(cfgFile string, flags *pflag.FlagSet) (BackfillConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return BackfillConfig{}, err
	}

	v.SetDefault("log-level", "info")

	cfg := BackfillConfig{
		RPCURL:   v.GetString("rpc"),
		PGDSN:    v.GetString("pg-dsn"),
		LogLevel: v.GetString("log-level"),
	}

	return cfg, nil
}

func newViper(cfgFile string, flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("ORACLE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	return v, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
