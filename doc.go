// Package realtime provides the coldfarms realtime update client.
//
// The client keeps one websocket connection to the coldfarms push endpoint,
// authenticates it with a farmer ID, and routes server-pushed frames to
// per-type subscribers. When the connection drops it reconnects on a fixed
// delay, forever, until Disconnect is called.
//
//   - Connect / Disconnect: connection lifecycle (both non-blocking)
//   - Subscribe: register a handler for an event type, get back an unsubscribe func
//   - Send: at-most-once write while the connection is open
//
// Basic usage:
//
//	client, err := realtime.NewClient(realtime.Config{
//	    URL: "wss://cold-farm-dashboard-rosnuza.replit.app/ws",
//	}, realtime.WithLogger(logger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	unsubscribe := client.Subscribe(realtime.EventBookingRequestUpdated,
//	    func(msg *realtime.Message) error {
//	        var booking struct {
//	            ID     int    `json:"id"`
//	            Status string `json:"status"`
//	        }
//	        return msg.UnmarshalData(&booking)
//	    },
//	)
//	defer unsubscribe()
//
//	client.Connect("farmer-42")
//	defer client.Disconnect()
package realtime
