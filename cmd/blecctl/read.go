package main

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"
)

// readCmd represents the read command
var readCmd = &cobra.Command{
	Use:   "read <device-address>",
	Short: "Read a characteristic value",
	Long: `Connects to a peripheral, resolves the given service and
characteristic and reads its current value.

Example:
  blecctl read aa:bb:cc:dd:ee:01 --service 180f --char 2a19 --hex`,
	Args: cobra.ExactArgs(1),
	RunE: runRead,
}

var (
	readServiceUUID string
	readCharUUID    string
	readHex         bool
)

func init() {
	readCmd.Flags().StringVar(&readServiceUUID, "service", "", "Service UUID")
	readCmd.Flags().StringVar(&readCharUUID, "char", "", "Characteristic UUID")
	readCmd.Flags().BoolVar(&readHex, "hex", false, "Output as hex string; raw bytes by default")
	_ = readCmd.MarkFlagRequired("service")
	_ = readCmd.MarkFlagRequired("char")
}

func runRead(cmd *cobra.Command, args []string) error {
	address := args[0]

	handler, err := initHandler(cmd)
	if err != nil {
		return err
	}
	cmd.SilenceUsage = true

	ctx := cmd.Context()
	if err := handler.Connect(ctx, address, readServiceUUID, []string{readCharUUID}, nil); err != nil {
		return err
	}
	defer handler.Disconnect()

	data, err := handler.RecvData(ctx, readCharUUID)
	if err != nil {
		return err
	}

	if readHex {
		fmt.Println(hex.EncodeToString(data))
	} else {
		fmt.Printf("%s", data)
	}
	return nil
}
