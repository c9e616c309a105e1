package main

import (
	"fmt"
	"os"

	"github.com/gstoney/mchub/internal/sniff"
	"github.com/spf13/cobra"
)

func sniffCmd() *cobra.Command {
	var port uint16

	cmd := &cobra.Command{
		Use:   "sniff <capture.pcap>",
		Short: "Decode hub traffic from a packet capture",
		Long: `Print one line per frame exchanged with the hub in a pcap or pcapng
capture, e.g. one taken with:

  tcpdump -i any -w hub.pcap tcp port 25565`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			out := cmd.OutOrStdout()
			s := sniff.New(port, func(r sniff.Record) {
				fmt.Fprintln(out, r)
			})
			return s.ReadCapture(f)
		},
	}

	cmd.Flags().Uint16VarP(&port, "port", "p", 25565, "Server port in the capture")

	return cmd
}
