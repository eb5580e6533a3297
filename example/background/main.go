package main

import (
	"fmt"
	"os"
	"sync"

	"github.com/lixenwraith/trace"
)

// Demonstrates the background pipeline: a rotating file sink wrapped by
// the queueing proxy, fed by concurrent producers, flushed on dispose.
func main() {
	fileTarget := &trace.LogWriterConfig{
		Name:              "file",
		BackgroundLogging: true,
		New: func(setup *trace.SetupLog) (trace.LogWriter, error) {
			lw := trace.NewLogWriter("file", setup, false)
			fw := trace.NewRotatingFileTraceWriter(trace.RotatingFileConfig{
				Filename:   "./logs/background.log",
				MaxSizeMB:  10,
				MaxBackups: 3,
			}, setup)
			if err := lw.AddEntryWriter(fw); err != nil {
				return nil, err
			}
			return lw, nil
		},
	}

	manager, err := trace.NewBuilder().
		QueueCapacity(256).
		Writer(&trace.TraceWriterConfig{
			Writer:   fileTarget,
			Switches: trace.NewSwitchSet().Set("", trace.NewThresholdSwitch(trace.LevelInfo)),
		}).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build trace manager: %v\n", err)
		os.Exit(1)
	}

	var wg sync.WaitGroup
	for p := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracer := manager.GetTracer(fmt.Sprintf("example.background.Producer%d", p))
			for i := range 100 {
				tracer.Info("work item processed", "producer", p, "item", i)
			}
		}()
	}
	wg.Wait()

	// Dispose drains the queues before returning
	if err := manager.Dispose(); err != nil {
		fmt.Fprintf(os.Stderr, "dispose: %v\n", err)
	}

	for _, e := range manager.SetupLog().Entries() {
		fmt.Printf("setup: %s %s %s\n", e.Level, e.Source, e.Message)
	}
}
