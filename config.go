package main

import (
	"fmt"
	"os"
	"path/filepath"

	nested "github.com/antonfisher/nested-logrus-formatter"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/pdok/tegel/tms20"
)

var registry *tms20.Registry

// initConfig reads the optional TOML config file, sets up logging and fills
// the registry with the built-in tile matrix sets plus any definitions from
// the configured tilematrixsets_dir.
func initConfig(cfgFile string) error {
	log.SetFormatter(&nested.Formatter{
		HideKeys:        true,
		ShowFullLevel:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})

	viper.SetConfigType("toml")
	viper.SetDefault("default_tms", "WebMercatorQuad")
	viper.SetDefault("zoom_strategy", string(tms20.Auto))
	viper.SetDefault("log_level", "warning")
	viper.SetDefault("tilematrixsets_dir", "")
	viper.AutomaticEnv() // read in environment variables that match
	if cfgFile != "" {
		if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
			return fmt.Errorf("config file %v does not exist", cfgFile)
		}
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("could not read config file %v: %w", viper.ConfigFileUsed(), err)
		}
	}

	level, err := log.ParseLevel(viper.GetString("log_level"))
	if err != nil {
		return err
	}
	log.SetLevel(level)

	registry, err = tms20.DefaultRegistry()
	if err != nil {
		return err
	}
	return extendRegistry(registry, viper.GetString("tilematrixsets_dir"))
}

// extendRegistry loads every tile matrix set definition from the directory,
// replacing a built-in set when the IDs collide.
func extendRegistry(registry *tms20.Registry, dir string) error {
	if dir == "" {
		return nil
	}
	definitions, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return err
	}
	for _, definition := range definitions {
		tileMatrixSet, err := tms20.LoadJSONTileMatrixSet(definition)
		if err != nil {
			return fmt.Errorf("could not load tile matrix set from %v: %w", definition, err)
		}
		tms, err := tileMatrixSet.Engine()
		if err != nil {
			return fmt.Errorf("could not initialize tile matrix set from %v: %w", definition, err)
		}
		if _, ok := registry.Lookup(tms.ID); ok {
			log.Infof("replacing built-in tile matrix set %v with the definition from %v", tms.ID, definition)
		}
		registry.RegisterOverwrite(tms)
		log.Debugf("registered tile matrix set %v from %v", tms.ID, definition)
	}
	return nil
}

func defaultTileMatrixSet() string {
	return viper.GetString("default_tms")
}

func zoomLevelStrategy() tms20.ZoomLevelStrategy {
	return tms20.ZoomLevelStrategy(viper.GetString("zoom_strategy"))
}
