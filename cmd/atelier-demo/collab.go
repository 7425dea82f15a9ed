package main

import (
	"fmt"
	"net"
	"time"

	"github.com/spf13/cobra"

	"github.com/cuemby/atelier/pkg/alog"
	"github.com/cuemby/atelier/pkg/demoproject"
	"github.com/cuemby/atelier/pkg/objects"
	"github.com/cuemby/atelier/pkg/operation"
	"github.com/cuemby/atelier/pkg/wire"

	"github.com/cuemby/atelier/pkg/collabclient"
)

var collabCmd = &cobra.Command{
	Use:   "collab",
	Short: "Connect to a running atelier-demo server and create a folder",
	Long: `Connects to --server-addr, waits for the welcome snapshot, creates one
folder under the project root once a key is available, and stays connected
long enough to see it confirmed.`,
	RunE: runCollab,
}

func init() {
	collabCmd.Flags().String("server-addr", "", "Server address to connect to (overrides config)")
	collabCmd.Flags().String("folder-name", "untitled", "Name of the folder to create")
}

func runCollab(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if addr, _ := cmd.Flags().GetString("server-addr"); addr != "" {
		cfg.ServerAddr = addr
	}
	folderName, _ := cmd.Flags().GetString("folder-name")

	conn, err := net.Dial("tcp", cfg.ServerAddr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", cfg.ServerAddr, err)
	}
	defer func() { _ = conn.Close() }()

	welcome, err := readMessage(conn)
	if err != nil {
		return fmt.Errorf("read welcome snapshot: %w", err)
	}
	if welcome.Type != wire.TypeSnapshot {
		return fmt.Errorf("expected a snapshot as the first message, got %q", welcome.Type)
	}
	project, err := demoproject.DecodeProjectDeep(welcome.Data)
	if err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}

	client := collabclient.New(project, demoproject.NewRegistry())
	log := alog.WithClient("collab")
	log.Info().Int("folders", project.Folders.Len()).Msg("received project snapshot")

	if err := writeMessage(conn, wire.Message{Type: wire.TypeKeyRequest}); err != nil {
		return fmt.Errorf("send key request: %w", err)
	}
	client.MarkKeyRequestSent()

	created := false
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		_ = conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
		msg, err := readMessage(conn)
		if err != nil {
			if !created {
				continue
			}
			break
		}

		switch msg.Type {
		case wire.TypeKeyGrant:
			if _, err := client.AcceptKeyGrant(msg.First, msg.Last); err != nil {
				log.Warn().Err(err).Msg("rejected key grant")
				continue
			}
			if !created {
				op, performed, hadKey := client.PerformCreate(func(key uint64) operation.Operation[demoproject.Project] {
					return &demoproject.CreateFolder{Key: key, Parent: objects.NullKey, Index: project.RootChildren.Len(), Name: folderName}
				})
				if hadKey && performed {
					created = true
					if err := writeMessage(conn, wire.Message{Type: wire.TypeOperation, Operation: op.Name(), Data: op.Serialize()}); err != nil {
						return fmt.Errorf("send create operation: %w", err)
					}
					log.Info().Str("folder", folderName).Msg("sent create_folder")
				}
			}
		case wire.TypeConfirm:
			client.Confirm()
			log.Info().Msg("create_folder confirmed by server")
			return nil
		case wire.TypeOperation:
			if err := client.ReceiveOperation(msg.Operation, msg.Data); err != nil {
				log.Warn().Err(err).Msg("failed to apply remote operation")
			}
		}
	}

	if !created {
		return fmt.Errorf("timed out before a key grant arrived")
	}
	return nil
}
