// Copyright 2025 The packetd Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/chronista-club/unison-go/admin"
	"github.com/chronista-club/unison-go/confengine"
	"github.com/chronista-club/unison-go/internal/sigs"
	"github.com/chronista-club/unison-go/logger"
	"github.com/chronista-club/unison-go/message"
	"github.com/chronista-club/unison-go/packet"
	"github.com/chronista-club/unison-go/server"
	"github.com/chronista-club/unison-go/transport"
)

var serveFlags struct {
	Addr                 string
	CertFile             string
	KeyFile              string
	CompressionThreshold int
	CompressionLevel     int
	ChecksumRequired     bool
	ConfigPath           string

	AdminEnabled bool
	AdminAddr    string
	AdminPprof   bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start a unison server",
	Run: func(cmd *cobra.Command, args []string) {
		if serveFlags.ConfigPath != "" {
			cfg, err := confengine.LoadConfigPath(serveFlags.ConfigPath)
			if err != nil {
				fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
				os.Exit(1)
			}
			var opt logger.Options
			if err := cfg.UnpackChild("logger", &opt); err == nil {
				logger.SetOptions(opt)
			}
		}

		codec := packet.DefaultCodecConfig()
		codec.Compression.Threshold = serveFlags.CompressionThreshold
		codec.Compression.Level = serveFlags.CompressionLevel
		codec.Checksum.Enabled = serveFlags.ChecksumRequired
		codec.Checksum.Required = serveFlags.ChecksumRequired

		var certProvider transport.CertProvider
		if serveFlags.CertFile != "" && serveFlags.KeyFile != "" {
			certProvider = transport.FileCertProvider{CertPath: serveFlags.CertFile, KeyPath: serveFlags.KeyFile}
		}

		srv := server.New(server.Config{
			Addr:         serveFlags.Addr,
			CertProvider: certProvider,
			Codec:        codec,
		})
		if err := srv.Register("ping", pingHandler); err != nil {
			fmt.Fprintf(os.Stderr, "failed to register ping handler: %v\n", err)
			os.Exit(1)
		}

		adminSrv := admin.New(admin.Config{
			Enabled: serveFlags.AdminEnabled,
			Address: serveFlags.AdminAddr,
			Pprof:   serveFlags.AdminPprof,
			Timeout: 5 * time.Second,
		})
		if adminSrv != nil {
			go func() {
				if err := adminSrv.ListenAndServe(); err != nil {
					logger.Errorf("admin server error: %v", err)
				}
			}()
		}

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			<-sigs.Terminate()
			logger.Infof("received termination signal, stopping")
			cancel()

			var result *multierror.Error
			if err := srv.Stop(); err != nil {
				result = multierror.Append(result, err)
			}
			if adminSrv != nil {
				if err := adminSrv.Close(); err != nil {
					result = multierror.Append(result, err)
				}
			}
			if err := result.ErrorOrNil(); err != nil {
				logger.Errorf("error during shutdown: %v", err)
			}
		}()

		logger.Infof("starting unisonctl serve on %s", serveFlags.Addr)
		if err := srv.Listen(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "server error: %v\n", err)
			os.Exit(1)
		}
	},
	Example: "# unisonctl serve --addr [::1]:4433",
}

// pingHandler is the one handler unisonctl serve wires up out of the
// box, enough to exercise the facade end to end without an
// application built on top of it.
func pingHandler(ctx context.Context, payload []byte) (any, error) {
	var req struct {
		Message  string `json:"message"`
		Sequence int    `json:"sequence"`
	}
	if len(payload) > 0 {
		_ = (message.Record{Payload: payload}).Unmarshal(&req)
	}
	return map[string]any{
		"message":     "Pong: " + req.Message,
		"sequence":    req.Sequence,
		"server_info": "unisonctl",
	}, nil
}

func init() {
	defaults := packet.DefaultCompressionConfig()
	serveCmd.Flags().StringVar(&serveFlags.Addr, "addr", transport.DefaultListenAddr, "Address to listen on")
	serveCmd.Flags().StringVar(&serveFlags.CertFile, "cert", "", "TLS certificate file (falls back to a self-signed certificate)")
	serveCmd.Flags().StringVar(&serveFlags.KeyFile, "key", "", "TLS private key file")
	serveCmd.Flags().IntVar(&serveFlags.CompressionThreshold, "compression.threshold", defaults.Threshold, "Payload size in bytes at or above which zstd compression is attempted")
	serveCmd.Flags().IntVar(&serveFlags.CompressionLevel, "compression.level", defaults.Level, "zstd compression level")
	serveCmd.Flags().BoolVar(&serveFlags.ChecksumRequired, "checksum.required", false, "Require and enable a CRC32 checksum on every packet")
	serveCmd.Flags().StringVar(&serveFlags.ConfigPath, "config", "", "Optional YAML config file (currently only configures logging)")
	serveCmd.Flags().BoolVar(&serveFlags.AdminEnabled, "admin.enabled", false, "Expose an admin HTTP server (/healthz, /metrics, /-/logger)")
	serveCmd.Flags().StringVar(&serveFlags.AdminAddr, "admin.addr", "127.0.0.1:9433", "Address the admin HTTP server listens on")
	serveCmd.Flags().BoolVar(&serveFlags.AdminPprof, "admin.pprof", false, "Expose net/http/pprof routes on the admin server")
	rootCmd.AddCommand(serveCmd)
}
