/*
Package fileshare implements the client side of the SafeChain ownership and
access-control engine: per-owner file catalogs, global and per-file grants,
and the "shared with me" projection built on top of them.

The ledger is the only source of truth. All the state lives behind the Ledger
interface; this package validates input, maps the ledger's answers to typed
results and reconstructs the read model the ledger cannot serve directly.

# Records and positions

Every record has a stable ID issued by the ledger and never reused within the
owner's catalog. Positions are derived: they are always the dense range
[0, count) in insertion order and shift down when an earlier record is removed.
Per-file grants are bound to the record ID, so they follow the record when
positions shift.

# Discovery

The ledger may not offer a reverse "who granted me" lookup. Discovery then
unions weaker sources (local cache, recent activity, static seeds) and the
projection re-verifies every candidate. Such results are an under-approximation
and are flagged with SharedResult.Incomplete.
*/
package fileshare
