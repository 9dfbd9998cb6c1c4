//go:build linux && cgo
// +build linux,cgo

// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Linux thread pinning via pthread_setaffinity_np and libnuma.

package concurrency

/*
#include <sched.h>
#include <pthread.h>
#include <numa.h>
*/
import "C"
import "runtime"

func platformPinCurrentThread(numaNode int, cpuID int) {
	runtime.LockOSThread()
	var mask C.cpu_set_t
	C.CPU_ZERO(&mask)
	C.CPU_SET(C.int(cpuID), &mask)
	C.pthread_setaffinity_np(C.pthread_self(), C.sizeof_cpu_set_t, &mask)
	if numaNode >= 0 && C.numa_available() >= 0 {
		C.numa_run_on_node(C.int(numaNode))
	}
}

func platformCurrentNUMANodeID() int {
	if C.numa_available() < 0 {
		return 0
	}
	cpu := C.sched_getcpu()
	return int(C.numa_node_of_cpu(cpu))
}

func platformNUMANodes() int {
	if C.numa_available() < 0 {
		return 1
	}
	n := C.numa_max_node()
	if n < 0 {
		return 1
	}
	return int(n) + 1
}
