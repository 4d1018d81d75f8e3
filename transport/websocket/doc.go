// Package websocket pushes live Chain Reaction game updates to browsers and
// other watchers.
//
// A Hub keeps the connected clients of every session. Clients connect to
// /ws?session=ID and only listen; moves are made over the REST API or MCP.
//
// Every frame is one JSON document:
//
//	{"session_id":"ab12","event":"state_update","game_state":{...}}
//	{"session_id":"ab12","event":"overflow","data":{...}}
//
// Events are state_update, overflow, capture and victory. PublishMove sends
// the cascade events of a move in the order they happened, then the new
// state. A Hub is a service.Publisher: installed on the game service it is
// called for every change in the order the moves were made.
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run(ctx)
//	gameService.SetPublisher(hub)
//
//	hub.ServeWS(w, r, sessionID, state)
package websocket
