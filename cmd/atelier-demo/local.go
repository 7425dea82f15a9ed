package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cuemby/atelier/pkg/alog"
	"github.com/cuemby/atelier/pkg/blockstore"
	"github.com/cuemby/atelier/pkg/demoproject"
	"github.com/cuemby/atelier/pkg/localclient"
	"github.com/cuemby/atelier/pkg/objects"
	"github.com/cuemby/atelier/pkg/undo"
)

var localCmd = &cobra.Command{
	Use:   "local",
	Short: "Run a single-process demo against a bolt-backed project",
	Long: `Opens (or creates) a project at --data-dir, creates a small folder
tree, ticks it to disk, and prints the root and docs folder child counts.`,
	RunE: runLocal,
}

func init() {
	localCmd.Flags().String("data-dir", "", "Directory for the bolt-backed block store (overrides config)")
}

func runLocal(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if dir, _ := cmd.Flags().GetString("data-dir"); dir != "" {
		cfg.DataDir = dir
	}

	store, err := blockstore.NewBoltBlockStore(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open block store: %w", err)
	}
	defer func() { _ = store.Close() }()

	client, err := localclient.Open(store, demoproject.Codec(), demoproject.ObjectKinds())
	if err != nil {
		return fmt.Errorf("open project: %w", err)
	}

	mgr := undo.New[demoproject.Project]()

	docsKey := client.NextKey()
	reportsKey := client.NextKey()

	action := &undo.Action[demoproject.Project]{}
	client.Perform(action, &demoproject.CreateFolder{Key: docsKey, Parent: objects.NullKey, Index: 0, Name: "docs"})
	client.Perform(action, &demoproject.CreateFolder{Key: reportsKey, Parent: docsKey, Index: 0, Name: "reports"})
	mgr.Add(action)

	if err := client.Tick(); err != nil {
		return fmt.Errorf("tick: %w", err)
	}

	alog.WithClient("local").Info().
		Int("folders", client.Project().Folders.Len()).
		Int("counter", client.Project().Counter).
		Msg("project persisted")

	fmt.Printf("root children: %d\n", client.Project().RootChildren.Len())
	if folder, ok := client.Project().Folders.Get(objects.PtrFromKey[demoproject.Folder](docsKey)); ok {
		fmt.Printf("docs folder %q has %d child folder(s)\n", folder.Name, folder.Children.Len())
	}
	return nil
}
