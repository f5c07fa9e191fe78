package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Catchawink/blec/pkg/blec"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for BLE peripherals",
	Long: `Scan for Bluetooth Low Energy peripherals and list them sorted
by address. With --follow, each intermediate batch is printed as it
arrives.`,
	RunE: runScan,
}

var (
	scanDuration time.Duration
	scanFollow   bool
)

func init() {
	scanCmd.Flags().DurationVarP(&scanDuration, "duration", "d", 10*time.Second, "Scan duration")
	scanCmd.Flags().BoolVarP(&scanFollow, "follow", "f", false, "Print intermediate batches while scanning")
}

func runScan(cmd *cobra.Command, args []string) error {
	handler, err := initHandler(cmd)
	if err != nil {
		return err
	}

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	var sink blec.DeviceSink
	if scanFollow {
		sink = func(devices []blec.Device) error {
			fmt.Printf("-- %d device(s)\n", len(devices))
			return nil
		}
	}

	devices, err := handler.Discover(cmd.Context(), sink, scanDuration)
	if err != nil {
		return err
	}

	printDevices(devices)
	return nil
}

func printDevices(devices []blec.Device) {
	if len(devices) == 0 {
		fmt.Println("No devices found")
		return
	}

	addrColor := color.New(color.FgCyan)
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ADDRESS\tNAME\tRSSI\tCONNECTED")
	for _, d := range devices {
		rssi := "-"
		if d.RSSI != nil {
			rssi = fmt.Sprintf("%d", *d.RSSI)
		}
		name := d.Name
		if name == "" {
			name = "(unknown)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%v\n", addrColor.Sprint(d.Address), name, rssi, d.Connected)
	}
	w.Flush()
}
