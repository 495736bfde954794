// Package mru tracks most recently used editors across editor groups.
//
// Store keeps three structures in sync:
// * order: intrusive doubly linked list of identities, least recent first. Nodes
// live in arena slice and link each other by slot index, so identities are never
// compared by pointer.
// * keys: per group registry editor -> slot. One slot is allocated per (group, editor)
// pair and reused until editor is closed in that group.
// * resources: resource -> "typeID/editorID" -> count of tracked identities. Answers
// "is resource opened in any editor anywhere" and never affects order.
//
// Store is not safe for concurrent use. Owner should serialize access.
package mru
