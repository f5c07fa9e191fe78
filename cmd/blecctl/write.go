package main

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"
)

// writeCmd represents the write command
var writeCmd = &cobra.Command{
	Use:   "write <device-address> <hex-data>",
	Short: "Write to a characteristic without response",
	Long: `Connects to a peripheral and writes the given hex payload to a
characteristic using write-without-response.

Example:
  blecctl write aa:bb:cc:dd:ee:01 dead --service 6e400001-b5a3-f393-e0a9-e50e24dcca9e --char 6e400002-b5a3-f393-e0a9-e50e24dcca9e`,
	Args: cobra.ExactArgs(2),
	RunE: runWrite,
}

var (
	writeServiceUUID string
	writeCharUUID    string
)

func init() {
	writeCmd.Flags().StringVar(&writeServiceUUID, "service", "", "Service UUID")
	writeCmd.Flags().StringVar(&writeCharUUID, "char", "", "Characteristic UUID")
	_ = writeCmd.MarkFlagRequired("service")
	_ = writeCmd.MarkFlagRequired("char")
}

func runWrite(cmd *cobra.Command, args []string) error {
	address := args[0]

	data, err := hex.DecodeString(args[1])
	if err != nil {
		return fmt.Errorf("invalid hex payload %q: %w", args[1], err)
	}

	handler, err := initHandler(cmd)
	if err != nil {
		return err
	}
	cmd.SilenceUsage = true

	ctx := cmd.Context()
	if err := handler.Connect(ctx, address, writeServiceUUID, []string{writeCharUUID}, nil); err != nil {
		return err
	}
	defer handler.Disconnect()

	if err := handler.SendData(ctx, writeCharUUID, data); err != nil {
		return err
	}

	fmt.Printf("Wrote %d byte(s)\n", len(data))
	return nil
}
