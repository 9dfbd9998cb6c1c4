// File: pool/doc.go
// Package pool
// Author: momentics <momentics@gmail.com>
//
// NUMA-aware, zero-copy frame buffer pooling for the interface layer.
// Every Interface draws its fixed-size frame buffers from a per-NUMA-node
// slab pool instead of a raw make([]byte, MTU) on every allocate/free
// cycle. All core methods are thread-safe or explicitly document the
// concurrency contract.
package pool
