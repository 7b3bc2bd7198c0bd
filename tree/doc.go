// Package tree implements a generic engine for persistent, content-addressed,
// authenticated tree structures. A concrete tree shape supplies a node type
// implementing Content, a Codec translating nodes to their canonical byte
// form, and Method implementations selecting child slots during navigation.
// The engine contributes everything shape independent: digest management,
// backend persistence, node caching, and the Branch/BranchMut descent
// machinery for searching, iterating, and mutating trees of arbitrary shape
// and depth.
//
// Nodes reference their children through Handle slots, which hold either
// nothing, an inline leaf value, or a child node that is resident in memory,
// persisted in a backend store under its digest, or both. Materializing a
// persisted child goes through a shared node cache and verifies that the
// fetched content matches the digest it was requested under.
//
// A single Store may serve any number of concurrent read traversals. Write
// access is restricted to one mutator per tree at a time; this is caller
// discipline, but violations are detected as failing exclusive-access
// acquisitions rather than silent corruption.
package tree
