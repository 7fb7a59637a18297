package haptics

import (
	"log/slog"
	"sync"
	"time"

	Hp "github.com/zain-sajid/haptics/plugin"
)

// FlushSupervisor pushes buffered history to storage on a ticker,
// so a quiet board does not sit on unwritten records.
type FlushSupervisor struct {
	Recorder Hp.Recorder
	Interval time.Duration
	Ticker   *time.Ticker
	StopChan chan struct{}
	WG       sync.WaitGroup
}

func NewFlushSupervisor(r Hp.Recorder, interval time.Duration) *FlushSupervisor {
	return &FlushSupervisor{
		Recorder: r,
		Interval: interval,
	}
}

// Start the FlushSupervisor
func (f *FlushSupervisor) Start() {
	f.StopChan = make(chan struct{})
	f.Ticker = time.NewTicker(f.Interval)

	f.WG.Add(1)
	go func(ticker *time.Ticker, stop chan struct{}) {
		defer f.WG.Done()
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := f.Recorder.Flush(); err != nil {
					slog.Error("Failed to flush history", slog.Any("error", err))
				}
			case <-stop:
				return
			}
		}
	}(f.Ticker, f.StopChan)
}

// Stop the FlushSupervisor
func (f *FlushSupervisor) Stop() {
	if f.StopChan != nil {
		close(f.StopChan)
		f.WG.Wait()
		f.StopChan = nil
	}
}

// Restart the FlushSupervisor
func (f *FlushSupervisor) Restart() {
	f.Stop()
	f.Start()
}
