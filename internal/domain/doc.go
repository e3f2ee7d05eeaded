// Package domain defines the cabling model shared by the simulated consoles.
//
// # Core Types
//
// Node is a simulated device (router, switch or pc) with an ordered list of
// Ports. Router ports are named ("fa0/0") and mirror the interface state the
// router console configures.
//
// Link is a cable between two ports. Whether a link carries signal (OK) is a
// pure function of its endpoint node types: only router-switch and pc-switch
// pairs are valid. Connecting the wrong devices is allowed and modelled as a
// dead cable rather than rejected.
//
// Topology aggregates nodes and links and answers structural questions:
// IsPortUsed, HasPathOfType, CablingOK and RouterUplink. A Topology is safe
// for concurrent use; a nil *Topology behaves as an uncabled lab.
//
// Snapshot is a detached copy used for rendering, export and saved labs.
package domain
