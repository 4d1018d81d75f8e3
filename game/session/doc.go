// Package session keeps the running Chain Reaction games, one engine per
// session.
//
// Manager stores sessions in memory under case-insensitive IDs. Generated
// IDs are 4 hex characters; caller-chosen IDs may use letters, digits, '-'
// and '_'. A Manager built with NewManagerWithPersistence writes new
// sessions through to a SessionPersistence and reloads sessions it does not
// hold in memory on Get, so idle sessions can be evicted with
// CleanupExpiredSessions without losing them.
//
// Two stores are provided:
//   - FilePersistence writes one JSON file per session
//   - RedisPersistence keeps one JSON string per session plus an ID set,
//     with an optional TTL
//
// Both store the rule set next to the game state, so boards created with
// custom dimensions come back intact.
//
// Usage:
//
//	store, err := session.NewFilePersistence("sessions", configManager)
//	if err != nil {
//		log.Fatal(err)
//	}
//	manager := session.NewManagerWithPersistence(store)
//	if err := manager.LoadPersistedSessions(); err != nil {
//		log.Warn(err)
//	}
//
//	sess, err := manager.Create("", configManager.GetDefault())
package session
