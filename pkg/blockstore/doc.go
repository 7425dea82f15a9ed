/*
Package blockstore defines the BlockStore contract — a flat space of opaque
64-bit block pointers plus a single root record — and provides
BoltBlockStore, the default implementation on top of go.etcd.io/bbolt.

BoltBlockStore keeps two buckets: "blocks" holds one entry per allocated
pointer (big-endian uint64 key, opaque value), and "meta" holds the
allocation counter and the root record. Alloc persists the incremented
counter before returning a pointer, so a crash between Alloc and the first
Write never hands the same pointer out twice; it can only orphan one.

Every package above this one — pkg/project, pkg/localclient,
pkg/collabclient — depends only on the BlockStore interface, never on
BoltBlockStore directly, so an embedder can swap in an in-memory store for
tests without touching the rest of the stack.
*/
package blockstore
