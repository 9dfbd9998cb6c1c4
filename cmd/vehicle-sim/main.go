// File: cmd/vehicle-sim/main.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// vehicle-sim <num_vehicles> <period_ms> <timeout_s> [-v] spawns
// num_vehicles sibling OS processes, each running one Vehicle that
// produces a demo sensor unit every period_ms and declares interest in
// that same unit, which every child publishes, exercising the shared-memory ring between real
// processes rather than goroutines in one address space. The parent
// waits up to timeout_s, forwards SIGINT/SIGTERM to every child for a
// graceful shutdown, and exits 0 on clean completion.

package main

import (
	"context"
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/momentics/vfabric/api"
	"github.com/momentics/vfabric/vehicle"
)

const demoUnit api.UnitType = 1

// counterComponent is the application-level Get(unit) hook: it
// publishes a monotonically increasing 4-byte counter as the demo
// sensor's value.
type counterComponent struct{ n atomic.Uint32 }

func (c *counterComponent) Get(api.UnitType) []byte {
	v := c.n.Add(1)
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, v)
	return buf
}

func main() {
	os.Exit(run())
}

func run() int {
	workerID := flag.Int("worker", -1, "internal: run as worker process with this id")
	periodMs := flag.Int("period", 0, "internal: publish period in milliseconds")
	timeoutS := flag.Int("worker-timeout", 0, "internal: worker run duration in seconds")
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Parse()

	if *workerID >= 0 {
		return runWorker(*workerID, *periodMs, *timeoutS, *verbose)
	}
	return runParent(flag.Args(), *verbose)
}

func runParent(args []string, verbose bool) int {
	// flag.Parse stops at the first positional argument, so a trailing
	// -v lands in args rather than in the parsed flag set.
	if len(args) == 4 && args[3] == "-v" {
		verbose = true
		args = args[:3]
	}
	if len(args) != 3 {
		fmt.Fprintln(os.Stderr, "usage: vehicle-sim <num_vehicles> <period_ms> <timeout_s> [-v]")
		return 1
	}
	numVehicles, err1 := strconv.Atoi(args[0])
	periodMs, err2 := strconv.Atoi(args[1])
	timeoutS, err3 := strconv.Atoi(args[2])
	if err1 != nil || err2 != nil || err3 != nil || numVehicles <= 0 || periodMs <= 0 || timeoutS <= 0 {
		fmt.Fprintln(os.Stderr, "vehicle-sim: num_vehicles, period_ms and timeout_s must be positive integers")
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutS)*time.Second)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("[vehicle-sim] received shutdown signal")
		cancel()
	}()

	var wg sync.WaitGroup
	cmds := make([]*exec.Cmd, numVehicles)
	for i := 0; i < numVehicles; i++ {
		args := []string{
			"-worker", strconv.Itoa(i),
			"-period", strconv.Itoa(periodMs),
			"-worker-timeout", strconv.Itoa(timeoutS),
		}
		if verbose {
			args = append(args, "-v")
		}
		cmd := exec.CommandContext(ctx, os.Args[0], args...)
		// When ctx ends (timeout or a forwarded signal) the child gets
		// SIGTERM, so it can run its own graceful shutdown.
		cmd.Cancel = func() error { return cmd.Process.Signal(syscall.SIGTERM) }
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		cmds[i] = cmd
		if err := cmd.Start(); err != nil {
			log.Printf("[vehicle-sim] vehicle %d failed to start: %v", i, err)
			continue
		}
		wg.Add(1)
		go func(id int, c *exec.Cmd) {
			defer wg.Done()
			if err := c.Wait(); err != nil {
				log.Printf("[vehicle-sim] vehicle %d exited: %v", id, err)
			}
		}(i, cmd)
	}

	wg.Wait()
	log.Println("[vehicle-sim] all vehicles stopped")
	return 0
}

func runWorker(id, periodMs, timeoutS int, verbose bool) int {
	v, err := vehicle.New(vehicle.Config{PoolSize: 32, NUMANode: -1})
	if err != nil {
		log.Printf("[vehicle %d] init failed: %v", id, err)
		return 1
	}
	if verbose {
		log.Printf("[vehicle %d] starting", id)
	}

	comp := &counterComponent{}
	port := api.Port(100 + id)
	a := v.AddAgent(port, demoUnit, comp)
	v.DeclareInterest(a, demoUnit, api.Period(periodMs*1000))

	if err := v.Start(); err != nil {
		log.Printf("[vehicle %d] start failed: %v", id, err)
		return 1
	}

	// Drain accepted responses for the whole run; the worker only exits
	// on its deadline or a shutdown signal.
	go func() {
		for msg := range a.Responses() {
			if verbose {
				log.Printf("[vehicle %d] saw response for unit %d (%d bytes)", id, msg.Unit, len(msg.Value))
			}
		}
	}()

	deadline := time.After(time.Duration(timeoutS) * time.Second)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-deadline:
	case <-sigCh:
		if verbose {
			log.Printf("[vehicle %d] signaled", id)
		}
	}

	if err := v.Stop(); err != nil {
		log.Printf("[vehicle %d] stop failed: %v", id, err)
		return 1
	}
	if verbose {
		log.Printf("[vehicle %d] stopped cleanly", id)
	}
	return 0
}
