package main

import (
	"fmt"
	"net"
	"text/tabwriter"

	"github.com/opd-ai/ccoaudio/media"
	"github.com/spf13/cobra"
)

func interfacesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "interfaces",
		Short: "List network interfaces usable as a raw link",
		RunE: func(cmd *cobra.Command, args []string) error {
			ifaces, err := net.Interfaces()
			if err != nil {
				return fmt.Errorf("list interfaces: %w", err)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tADDRESS\tMTU\tUP")
			for _, ifi := range ifaces {
				if len(ifi.HardwareAddr) == 0 {
					continue
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%t\n", ifi.Name, ifi.HardwareAddr, ifi.MTU, ifi.Flags&net.FlagUp != 0)
			}
			return w.Flush()
		},
	}
}

func devicesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List sound devices available to the malgo backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			devices, err := media.ListDevices()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "KIND\tDEFAULT\tNAME")
			for _, dev := range devices {
				mark := ""
				if dev.IsDefault {
					mark = "*"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", dev.Kind, mark, dev.Name)
			}
			return w.Flush()
		},
	}
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the ccod version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ccod %s\n", Version)
		},
	}
}
