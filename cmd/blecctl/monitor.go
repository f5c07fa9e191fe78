package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// monitorCmd represents the monitor command
var monitorCmd = &cobra.Command{
	Use:   "monitor <device-address>",
	Short: "Subscribe to characteristic notifications",
	Long: `Connects to a peripheral, subscribes to one or more
characteristics and prints every notification as a hex dump until
interrupted or the peripheral disconnects.

Example:
  blecctl monitor aa:bb:cc:dd:ee:01 --service 180d --char 2a37`,
	Args: cobra.ExactArgs(1),
	RunE: runMonitor,
}

var (
	monitorServiceUUID string
	monitorCharUUIDs   []string
)

func init() {
	monitorCmd.Flags().StringVar(&monitorServiceUUID, "service", "", "Service UUID")
	monitorCmd.Flags().StringSliceVar(&monitorCharUUIDs, "char", nil, "Characteristic UUID(s)")
	_ = monitorCmd.MarkFlagRequired("service")
	_ = monitorCmd.MarkFlagRequired("char")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	address := args[0]

	handler, err := initHandler(cmd)
	if err != nil {
		return err
	}
	cmd.SilenceUsage = true

	disconnected := make(chan struct{})
	ctx := cmd.Context()
	err = handler.Connect(ctx, address, monitorServiceUUID, monitorCharUUIDs, func() {
		close(disconnected)
	})
	if err != nil {
		return err
	}

	uuidColor := color.New(color.FgYellow)
	for _, uuid := range monitorCharUUIDs {
		uuid := uuid
		err := handler.Subscribe(ctx, uuid, func(data []byte) {
			fmt.Printf("%s %s %s\n",
				time.Now().Format(time.RFC3339),
				uuidColor.Sprint(uuid),
				hex.EncodeToString(data))
		})
		if err != nil {
			handler.Disconnect()
			return err
		}
	}

	fmt.Printf("Monitoring %d characteristic(s), Ctrl+C to stop\n", len(monitorCharUUIDs))

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	select {
	case <-interrupt:
		return handler.Disconnect()
	case <-disconnected:
		fmt.Println("Peripheral disconnected")
		return nil
	case <-ctx.Done():
		return handler.Disconnect()
	}
}
