// Package config loads the dispatchd configuration file.
//
// Load reads an optional dotenv file, expands ${VAR} references strictly,
// converts YAML to JSON and decodes it with unknown fields rejected. The
// resulting File converts into the settings each package consumes:
//
//	f, err := config.Load("dispatchd.yaml")
//	if err != nil {
//		return err
//	}
//	reg, err := f.Registry()
//	orch, err := delivery.New(reg, f.DeliveryConfig())
//
// Durations are Go duration strings ("100ms", "10s", "24h").
package config
