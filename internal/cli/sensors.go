package cli

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"smartfarm-dashboard-go/internal/farmapi"
	"smartfarm-dashboard-go/internal/sensor"
)

func newSensorsCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sensors",
		Short: "Print the latest sensor snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			watch, _ := cmd.Flags().GetBool("watch")
			if !watch {
				snap, err := s.client.LatestSensor(cmd.Context())
				if err != nil {
					return err
				}
				printSnapshot(out, snap)
				return nil
			}

			interval, _ := cmd.Flags().GetDuration("interval")
			if interval <= 0 {
				interval = s.cfg.SensorInterval()
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			h := sensor.NewPoller(s.client, s.logger).Start(interval, func(snap *farmapi.SensorSnapshot) {
				printSnapshot(out, snap)
			})
			<-ctx.Done()
			h.Stop()
			<-h.Done()

			st := h.Stats()
			fmt.Fprintf(cmd.ErrOrStderr(), "polls=%d ok=%d failed=%d\n", st.Ticks, st.Succeeded, st.Failed)
			return nil
		},
	}
	cmd.Flags().Bool("watch", false, "Keep polling until interrupted")
	cmd.Flags().Duration("interval", 0, "Poll interval with --watch (default from config)")
	return cmd
}

// printSnapshot writes one line: the reading time then key=value pairs,
// fixed readings first and extras sorted.
func printSnapshot(w io.Writer, snap *farmapi.SensorSnapshot) {
	stamp := snap.Timestamp
	if stamp == "" {
		stamp = time.Now().Format(farmapi.TimestampLayout)
	}
	parts := []string{
		stamp,
		"temperature=" + formatReading(snap.Temperature),
		"humidity=" + formatReading(snap.Humidity),
		"soil_moisture=" + formatReading(snap.SoilMoisture),
		"water_level=" + formatReading(snap.WaterLevel),
	}

	keys := make([]string, 0, len(snap.Extra))
	for k := range snap.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, snap.Extra[k]))
	}
	fmt.Fprintln(w, strings.Join(parts, " "))
}

func formatReading(v *float64) string {
	if v == nil {
		return "--"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
