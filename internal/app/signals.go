package app

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"musync/internal/logging"
)

// ForcedShutdownGrace is added to the shutdown timeout before a signalled
// process gives up on a clean exit.
const ForcedShutdownGrace = 5 * time.Second

// setupSignalHandler quits the TUI on SIGINT, SIGTERM and SIGQUIT so the
// normal shutdown path runs. Returns a cleanup function that should be called
// when the app exits.
func (a *App) setupSignalHandler() func() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)

	done := make(chan struct{})

	go func() {
		select {
		case sig := <-sigChan:
			logging.Info("received signal", "signal", sig)

			// Start shutdown timer for forced exit
			code := 1
			if sig == syscall.SIGQUIT {
				code = 128 + int(syscall.SIGQUIT)
			}
			timer := time.AfterFunc(a.config.Shutdown.Timeout+ForcedShutdownGrace, func() {
				logging.Warn("forced shutdown due to timeout")
				os.Exit(code)
			})
			a.mu.Lock()
			a.forceExit = timer.Stop
			program := a.program
			a.mu.Unlock()

			if program != nil {
				program.Quit()
			}

		case <-done:
			return
		}
	}()

	return func() {
		signal.Stop(sigChan)
		close(done)
	}
}
