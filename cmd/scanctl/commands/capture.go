package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"provinode/scan-core/internal/controller"
	"provinode/scan-core/internal/discovery"
)

func captureCmd() *cobra.Command {
	var (
		host        string
		port        int
		fingerprint string
		seconds     int
		metadataKVs []string
		txtKVs      []string
	)
	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Run a capture session for a fixed duration and finalize the session package",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			resolvedPort := port
			resolvedFingerprint := fingerprint
			if txt, err := parseMetadata(txtKVs); err != nil {
				return err
			} else if len(txt) > 0 {
				resolved := discovery.Resolve(host, txt)
				if !cmd.Flags().Changed("port") {
					resolvedPort = resolved.QUICPort
				}
				if !cmd.Flags().Changed("fingerprint") {
					resolvedFingerprint = resolved.PairingCertFingerprint
				}
			}

			endpoint := controller.ResolvedEndpoint{
				Host:                   host,
				Port:                   resolvedPort,
				PairingCertFingerprint: resolvedFingerprint,
			}
			if err := wire.Controller.StartCapture(ctx, endpoint); err != nil {
				return err
			}

			timer := time.NewTimer(time.Duration(seconds) * time.Second)
			defer timer.Stop()
			<-timer.C

			metadata, err := parseMetadata(metadataKVs)
			if err != nil {
				return err
			}
			dir, err := wire.Controller.StopCapture(ctx, metadata)
			if err != nil {
				return err
			}
			fmt.Printf("Session package written to %s\n", dir)
			return nil
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "desktop peer host (empty falls back to local-only recording)")
	cmd.Flags().IntVar(&port, "port", 7447, "desktop peer transport port")
	cmd.Flags().StringVar(&fingerprint, "fingerprint", "", "desktop peer certificate fingerprint (sha256 hex)")
	cmd.Flags().IntVar(&seconds, "seconds", 30, "capture duration in seconds")
	cmd.Flags().StringArrayVar(&metadataKVs, "metadata", nil, "extra manifest metadata as key=value (repeatable)")
	cmd.Flags().StringArrayVar(&txtKVs, "txt", nil, "mDNS/Bonjour TXT record field as key=value (repeatable); resolved via internal/discovery to default --port/--fingerprint when those flags are left unset")
	return cmd
}

func parseMetadata(kvs []string) (map[string]string, error) {
	if len(kvs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(kvs))
	for _, kv := range kvs {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("%q is not in key=value form", kv)
		}
		out[k] = v
	}
	return out, nil
}
