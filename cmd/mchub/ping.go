package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/gstoney/mchub"
	"github.com/gstoney/mchub/packet"
	"github.com/spf13/cobra"
)

func pingCmd() *cobra.Command {
	var (
		proto   int32
		timeout time.Duration
		raw     bool
	)

	cmd := &cobra.Command{
		Use:   "ping [host:port]",
		Short: "Query a server's status and latency",
		Long: `Query a server the way the Minecraft server list does: handshake,
request the status document, then measure a ping round trip.

Examples:
  mchub ping
  mchub ping play.example.net:25565 --raw`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr := "localhost:25565"
			if len(args) == 1 {
				addr = args[0]
			}

			nc, err := net.DialTimeout("tcp", addr, timeout)
			if err != nil {
				return err
			}
			defer nc.Close()
			nc.SetDeadline(time.Now().Add(timeout))

			doc, rtt, err := ping(nc, addr, proto)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if raw {
				fmt.Fprintln(out, doc)
			} else {
				var pretty bytes.Buffer
				if err := json.Indent(&pretty, []byte(doc), "", "  "); err != nil {
					return fmt.Errorf("server sent invalid status JSON: %w", err)
				}
				fmt.Fprintln(out, pretty.String())
			}
			fmt.Fprintf(out, "latency: %s\n", rtt.Round(time.Microsecond))
			return nil
		},
	}

	cmd.Flags().Int32Var(&proto, "proto", 759, "Protocol version to announce")
	cmd.Flags().DurationVarP(&timeout, "timeout", "t", 5*time.Second, "Overall timeout")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print the status document unformatted")

	return cmd
}

// ping runs the status exchange over rw and returns the status document and
// the ping round trip time.
func ping(rw io.ReadWriter, addr string, proto int32) (string, time.Duration, error) {
	host, portstr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.ParseUint(portstr, 10, 16)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port %q", portstr)
	}

	t := mchub.NewTransport(rw, rw, mchub.TransportConfig{})

	if err := t.WritePacket(&packet.HandshakePacket{
		ProtocolVersion: proto,
		ServerAddr:      host,
		ServerPort:      uint16(port),
		NextState:       1,
	}); err != nil {
		return "", 0, err
	}
	if err := t.WritePacket(&packet.StatusReqPacket{}); err != nil {
		return "", 0, err
	}

	var resp packet.StatusRespPacket
	if err := recv(t, &resp); err != nil {
		return "", 0, err
	}

	start := time.Now()
	if err := t.WritePacket(&packet.PingReqPacket{Payload: start.UnixMilli()}); err != nil {
		return "", 0, err
	}
	var pong packet.PingRespPacket
	if err := recv(t, &pong); err != nil {
		return "", 0, err
	}
	rtt := time.Since(start)
	if pong.Payload != start.UnixMilli() {
		return "", 0, fmt.Errorf("pong payload %d does not match ping", pong.Payload)
	}

	return resp.Response, rtt, nil
}

func recv(t *mchub.Transport, p packet.Packet) error {
	f, err := t.RecvFrame()
	if err != nil {
		return err
	}
	if f.ID != p.ID() {
		return fmt.Errorf("expected packet 0x%02x, got 0x%02x", p.ID(), f.ID)
	}
	return packet.Unmarshal(f.Payload, p)
}
