// Package connection implements the Connection Manager component.
//
// The Connection Manager:
//   - Maintains one WebSocket connection to the tikka feed
//   - Reconnects after a fixed delay whenever the connection fails or closes
//   - Resubscribes the current symbol each time the connection opens
//   - Holds outbound commands until the connection is open
//   - Forwards incoming messages to a MessageHandler
package connection
