package main

import (
	"fmt"
	"os"

	"github.com/lixenwraith/trace"
)

func main() {
	setupTarget := &trace.LogWriterConfig{
		Name: "console",
		New: func(setup *trace.SetupLog) (trace.LogWriter, error) {
			lw := trace.NewLogWriter("console", setup, false)
			if err := lw.AddEntryWriter(trace.NewTextTraceWriter(os.Stdout, setup)); err != nil {
				return nil, err
			}
			return lw, nil
		},
	}

	manager, err := trace.NewBuilder().
		Writer(&trace.TraceWriterConfig{
			Writer:   setupTarget,
			Switches: trace.NewSwitchSet().Set("", trace.NewThresholdSwitch(trace.LevelDebug)),
		}).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build trace manager: %v\n", err)
		os.Exit(1)
	}
	defer manager.Dispose()

	tracer := manager.GetTracer("example.simple.Main")
	tracer.Debug("starting up")
	tracer.Info("hello from the trace pipeline", "pid", os.Getpid())
	tracer.Warn("something looks off", "attempt", 3)
	tracer.Error(fmt.Errorf("broken pipe"), "request failed")
}
