package main

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"scenekeeper/internal/workflow"
)

// progressObserver draws one bar per job on an interactive terminal.
type progressObserver struct {
	out io.Writer

	mu  sync.Mutex
	bar *progressbar.ProgressBar
}

// newProgressObserver returns nil when out is not a terminal so logs and
// piped output stay clean.
func newProgressObserver(out io.Writer) workflow.Observer {
	if !isTerminal(out) {
		return nil
	}
	return &progressObserver{out: out}
}

func (p *progressObserver) JobStarted(job string, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if total <= 0 {
		p.bar = nil
		return
	}
	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(p.out),
		progressbar.OptionSetDescription(job),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

func (p *progressObserver) ItemDone(string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar != nil {
		_ = p.bar.Add(1)
	}
}

func (p *progressObserver) JobFinished(string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar != nil {
		_ = p.bar.Finish()
		p.bar = nil
	}
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
