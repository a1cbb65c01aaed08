// Package config loads the meter's configuration.
//
// Configuration comes from defaults, then any number of JSON or YAML file
// layers (chosen by extension), then ACTMETER_* environment overrides.
// Later layers only replace the keys they mention.
//
//	loader := config.NewLoader()
//	loader.AddLayer("/etc/actmeter/config.yaml")
//	loader.AddLayer("local.json")
//	loader.EnableValidation(true)
//
//	cfg, err := loader.Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//
// Durations accept Go duration strings ("750ms", "2s"), a day suffix
// ("14d") or integer nanoseconds.
//
// # Environment
//
//	ACTMETER_TRANSPORT       websocket or ipc
//	ACTMETER_WEBSOCKET_URL   aggregator endpoint
//	ACTMETER_NATS_URLS       comma separated server list
//	ACTMETER_NATS_USERNAME   NATS user
//	ACTMETER_NATS_PASSWORD   NATS password
//	ACTMETER_NATS_TOKEN      NATS token
//	ACTMETER_HTTP_ADDR       metrics and health listen address
//	ACTMETER_PLAYER_NAME     replaces the local player sentinel
package config
