// Relay is a streaming completion gateway. It accepts chat requests over
// HTTP and WebSocket, forwards them to a configured upstream provider and
// relays the streamed reply chunk by chunk.
//
// Usage:
//
//	# Start the gateway
//	relay run --config config.yaml
//
//	# Check a config file and list its providers
//	relay validate --config config.yaml
//
//	# Show recent sessions from the journal
//	relay sessions --limit 20 --state failed
//
//	# Generate load against a running gateway
//	relay bench --target http://127.0.0.1:8080 --requests 500 --concurrency 20
//
//	# Show version information
//	relay version
package main

func main() {
	Execute()
}
