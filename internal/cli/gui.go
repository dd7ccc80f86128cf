package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"smartfarm-dashboard-go/internal/ui"
)

// runGUI opens the dashboard window and blocks until it closes or the
// process is signalled.
func runGUI(_ *cobra.Command, s *session) error {
	app := ui.NewApp(s.cfg, s.logger, s.client)
	mainLog := s.logger.WithPrefix("Main")

	// Setup signal handling for clean shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case sig := <-sigCh:
			mainLog.Info("received signal, cleaning up", "signal", sig)
			app.Cleanup()
		case <-done:
		}
	}()

	app.Start()

	// Cleanup on normal exit
	app.Cleanup()
	return nil
}
