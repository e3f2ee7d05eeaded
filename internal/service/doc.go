// Package service implements the session and lab logic behind the HTTP, SSH
// and local front-ends.
//
// # Sessions
//
// A Session is one independent lab: a topology with a router console and a
// PC console wired to it. SessionService creates, resets and removes
// sessions, applies cabling changes and runs console commands. Ping output
// produced after a command returns is delivered asynchronously as events.
//
// # Labs
//
// A lab is a saved topology snapshot. Saving and loading labs goes through a
// repository.LabRepository; import and export go through the codec package.
//
// # Event System
//
// All operations publish events via EventBus for real-time updates to
// connected clients via Server-Sent Events (SSE). Events carry the session
// they belong to so clients can follow a single lab.
package service
