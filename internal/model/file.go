package model

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

func fileViper(path string) *viper.Viper {
	v := NewViper()
	v.SetConfigFile(path)
	return v
}

// LoadFile reads the YAML file at path on top of the defaults.
func LoadFile(path string) (Config, error) {
	v := fileViper(path)
	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}
	return Decode(v)
}

// WatchFile calls apply with every valid version of the file at path written
// after the call. Invalid versions are logged and skipped, the last applied
// one stays in effect.
func WatchFile(ctx context.Context, path string, apply func(Config)) error {
	v := fileViper(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		slog.DebugContext(ctx, "config file changed", "path", e.Name, "op", e.Op.String())
		cfg, err := Decode(v)
		if err != nil {
			slog.WarnContext(ctx, "config change is ignored", "path", e.Name, "error", err)
			for _, d := range ConfigErrDetails(err) {
				slog.WarnContext(ctx, "config error", d.Attr("detail"))
			}
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
		apply(cfg)
	})
	v.WatchConfig()
	return nil
}
