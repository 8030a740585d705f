// Package extension provides the Forge extension for mounting the relay.
//
// The extension integrates formrelay into a Forge application by:
//   - Building the Relay with metrics recorded through the app's collector
//   - Registering the Relay instance in Forge's DI container
//   - Mounting the webhook routes under a configurable prefix
//   - Providing health checks via the journal's Ping
//   - Closing the journal on application shutdown
//
// Usage:
//
//	app := forge.New(
//	    forge.WithExtensions(
//	        extension.New(
//	            extension.WithRelayOption(formrelay.WithDestination(url, password)),
//	            extension.WithPrefix("/forms"),
//	        ),
//	    ),
//	)
//	app.Run()
package extension
