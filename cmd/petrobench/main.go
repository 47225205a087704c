// petrobench drives a buffer pool and B+Tree index through a synthetic
// workload and reports latency, mirroring the benchmarking shape used
// elsewhere in the corpus without adopting a CSV/flag framework petro
// doesn't need.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/student/petro/buffer"
	"github.com/student/petro/index"
	"github.com/student/petro/internal/config"
	"github.com/student/petro/storage/disk"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file; uses defaults if omitted")
	numKeys := flag.Int("keys", 10_000, "number of keys to insert")
	seed := flag.Int64("seed", 1, "random seed for the workload's key order")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	if err := run(cfg, *numKeys, *seed); err != nil {
		slog.Error("benchmark failed", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, numKeys int, seed int64) error {
	file, err := os.OpenFile(cfg.DbPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("open db file: %w", err)
	}
	defer os.Remove(file.Name())
	defer file.Close()

	diskMgr := disk.NewManager(file)
	scheduler := disk.NewSchedulerWithWorkers(diskMgr, cfg.WorkerThreadCount)
	defer scheduler.Shutdown()

	replacer := buffer.NewLrukReplacer(cfg.NumFrames, cfg.LruK)
	bpm := buffer.NewBufferpoolManager(cfg.NumFrames, replacer, scheduler)

	tree, err := index.NewBPlusTree[int, int]("petrobench", bpm, cfg.LeafMaxSize, cfg.InternalMaxSize)
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}

	keys := rand.New(rand.NewSource(seed)).Perm(numKeys)

	start := time.Now()
	for _, k := range keys {
		if _, err := tree.Insert(k, k*k); err != nil {
			return fmt.Errorf("insert %d: %w", k, err)
		}
	}
	insertElapsed := time.Since(start)

	start = time.Now()
	for _, k := range keys {
		if _, found, err := tree.GetValue(k); err != nil {
			return fmt.Errorf("get %d: %w", k, err)
		} else if !found {
			return fmt.Errorf("key %d vanished after insert", k)
		}
	}
	lookupElapsed := time.Since(start)

	fmt.Printf("frames=%d keys=%d insert=%s (%s/op) lookup=%s (%s/op)\n",
		cfg.NumFrames, numKeys,
		insertElapsed, insertElapsed/time.Duration(numKeys),
		lookupElapsed, lookupElapsed/time.Duration(numKeys))

	return nil
}
