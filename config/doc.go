// Package config loads client settings from a YAML file and APICLIENT_* environment variables.
//
// Values are resolved in order: built-in defaults, the YAML file, then environment variables.
//
//	cfg, err := config.Load("apiclient.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	client, err := cfg.NewClient()
package config
