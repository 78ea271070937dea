// Package bridge orchestrates the BragerOne-to-MQTT bridge.
//
// It owns the full entity lifecycle:
//
//   - Bootstrap walks the vendor metadata tree (modules, permission-pruned
//     menus, symbol descriptions), classifies every candidate symbol with
//     the param package, and produces descriptors plus module metadata.
//   - The SQLite repository persists bootstrap results so later startups
//     skip the vendor round trips; descriptors are re-classified on load,
//     so a classifier change never requires a cache flush.
//   - The runtime publishes Home Assistant discovery configs, seeds entity
//     state from the prime snapshot, fans live parameter updates out to
//     retained MQTT state topics, and turns inbound MQTT commands into
//     validated vendor writes.
//
// # Consistency Model
//
// One dispatch loop consumes all parameter updates in arrival order.
// Writes run independently on the MQTT handler goroutines and never touch
// entity state directly: the bridge publishes a new state only when the
// vendor confirms the change through the update stream. A rejected write
// (vendor ok=false) is a hard failure surfaced in logs and stats, with
// entity state left untouched.
package bridge
