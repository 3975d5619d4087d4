// Package config provides configuration parsing for zcc projects.
//
// The configuration is stored in .zcc/config.json at the project root.
// This package handles loading, saving, validating and merging the
// project settings contributed by installed packs.
//
// # Configuration File Structure
//
//	{
//	  "defaultMode": "engineer",
//	  "settings": {
//	    "testCommand": "npm test"
//	  },
//	  "hooks": {
//	    "defaultTimeout": 30000,
//	    "settingsFormat": "json"
//	  },
//	  "telemetry": {
//	    "metricsFile": ".zcc/metrics.prom"
//	  }
//	}
//
// # Usage
//
//	cfg, err := config.Load(projectRoot)
//	if err != nil {
//	    return err
//	}
//
//	fmt.Println("Default mode:", cfg.DefaultMode)
package config
