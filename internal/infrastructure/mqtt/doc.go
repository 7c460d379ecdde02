// Package mqtt publishes pairgen operation events to an MQTT broker.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Publishing JSON events with the configured QoS
//   - Last Will and Testament (LWT) for offline detection
//
// # Topics
//
// Every topic is rooted at the configured prefix (default "pairgen"):
//
//	pairgen/system/status                     retained online/offline status
//	pairgen/events/<operation>/<identity>     one message per finished operation
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.PublishEvent("export", "00008101-000A", event)
package mqtt
