// Package mqtt provides MQTT client connectivity for Brager Bridge.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) on the availability topic
//   - Connection health monitoring
//
// # Architecture
//
// The bridge uses MQTT as its outward face toward Home Assistant: entity
// state is published to retained state topics, Home Assistant discovery
// configs announce each exposable parameter, and inbound writes arrive on
// command topics.
//
//	BragerOne Cloud ↔ Brager Bridge ↔ MQTT Broker ↔ Home Assistant
//
// # Topic Scheme
//
//	{base}/status                     retained availability (online/offline)
//	{base}/{devid}/{symbol}/state     retained entity state
//	{base}/{devid}/{symbol}/set       inbound commands from Home Assistant
//	{prefix}/{platform}/{node}/{object}/config   discovery configs
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	topics := client.Topics()
//
//	// Subscribe to all entity commands
//	err = client.Subscribe(topics.AllEntityCommands(), 1,
//	    func(topic string, payload []byte) error {
//	        devID, symbol, ok := topics.ParseEntityCommand(topic)
//	        _ = ok
//	        log.Printf("write %s/%s = %s", devID, symbol, payload)
//	        return nil
//	    })
//
//	// Publish entity state
//	client.PublishRetained(topics.EntityState("BRG-1234", "TEMP_SET"), []byte("21.5"))
package mqtt
