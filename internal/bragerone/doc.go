// Package bragerone is the BragerOne cloud client for Brager Bridge.
//
// It covers the vendor surface the bridge depends on:
//   - Credential login with transparent access-token refresh (JWT expiry
//     drives refresh scheduling; a 401 forces it regardless)
//   - Object, module, and permission enumeration
//   - Parameter prime snapshots that seed entity state at startup
//   - Menu traversal and symbol description for bootstrap classification
//   - The two command write routes: direct parameter writes and named
//     backend commands
//   - A websocket event stream delivering live ParamUpdate events with
//     reconnect and exponential backoff
//
// # Usage
//
//	client := bragerone.NewClient(cfg.BragerOne, cfg.GetRequestTimeout(), logger)
//	if err := client.Login(ctx); err != nil {
//	    return err
//	}
//
//	modules, err := client.Modules(ctx, cfg.BragerOne.ObjectID)
//	...
//
//	stream := bragerone.NewStream(cfg.BragerOne.WSURL, cfg.BragerOne.ObjectID,
//	    cfg.BragerOne.Modules, client, logger)
//	stream.Start(ctx)
//	for update := range stream.Updates() {
//	    ...
//	}
//
// # Error Handling
//
// All failures wrap the package sentinels (ErrAuthFailed, ErrRequestFailed,
// ErrCommandRejected, ...) and can be checked with errors.Is. A command
// request the API accepts but answers with ok=false surfaces as
// ErrCommandRejected; callers treat it as a hard write failure.
package bragerone
