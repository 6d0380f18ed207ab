package config

import (
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/saudecred/cobranca/internal/status"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// StatusTokensHolder serves the current external-vocabulary token table to
// the classifier. The table ships with observed defaults and can be
// overridden (and hot-reloaded) from a mounted YAML file, so a new bank
// situation string does not require a redeploy.
type StatusTokensHolder struct {
	current atomic.Value // holds status.TokenTable
}

func NewStatusTokensHolder(log *zap.Logger) (*StatusTokensHolder, error) {
	v := viper.New()

	v.SetConfigName("status_tokens")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/cobranca/config")
	v.AddConfigPath("/etc/cobranca")
	v.AddConfigPath(".")

	v.SetEnvPrefix("COBRANCA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	holder := &StatusTokensHolder{}
	holder.current.Store(status.DefaultTokenTable())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		return holder, nil
	}

	if err := holder.reload(v, log); err != nil {
		return nil, err
	}

	v.OnConfigChange(func(fsnotify.Event) {
		if err := holder.reload(v, log); err != nil {
			log.Warn("status token table reload failed", zap.Error(err))
		}
	})
	v.WatchConfig()

	return holder, nil
}

// StaticStatusTokens pins a holder to the given table, bypassing the
// config file watcher. Intended for tests and one-shot tools.
func StaticStatusTokens(table status.TokenTable) *StatusTokensHolder {
	holder := &StatusTokensHolder{}
	holder.current.Store(table)
	return holder
}

func (h *StatusTokensHolder) reload(v *viper.Viper, log *zap.Logger) error {
	table := status.DefaultTokenTable()
	if err := v.UnmarshalKey("tokens", &table); err != nil {
		return err
	}
	h.current.Store(table)
	log.Info("status token table loaded",
		zap.Int("paid", len(table.Paid)),
		zap.Int("cancelled", len(table.Cancelled)),
		zap.Int("open", len(table.Open)),
	)
	return nil
}

// Tokens returns the current table. Safe for concurrent use.
func (h *StatusTokensHolder) Tokens() status.TokenTable {
	return h.current.Load().(status.TokenTable)
}
