// Package config defines the gateway configuration model and loads it
// from YAML.
//
// Values may reference the environment with ${VAR} or ${VAR:-default};
// a literal dollar sign is written as $$. Fields absent from the file keep
// the values of DefaultConfig.
//
//	cfg, err := config.LoadConfig("/etc/idgate/gateway.yaml")
//	if err != nil {
//	    return err
//	}
//	if err := config.ValidateConfig(cfg); err != nil {
//	    return err
//	}
//
// A Watcher reloads the file when it changes so the identity gate can pick
// up a rotated signing secret without a restart.
package config
