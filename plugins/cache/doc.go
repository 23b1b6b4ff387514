// Package cache provides a result cache built from one pre- and one
// post-execution hook.
//
// The pre-execution hook computes a key from the node ID and the outputs of
// its upstream nodes and, on a hit, skips the computation with the stored
// output. The post-execution hook stores every successful result under the
// same key. A cached result reports zero tokens: nothing was spent to
// produce it in this run.
//
// Two stores are provided. MemoryStore lives for the lifetime of the process;
// PostgresStore persists entries across runs in a single table.
package cache
