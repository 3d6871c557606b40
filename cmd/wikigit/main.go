package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"wikigit/internal/app"
	"wikigit/internal/config"
	"wikigit/internal/wiki"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an App. The caller must defer
// a.Close().
func newApp() (*app.App, error) {
	paths, err := app.DefaultPaths()
	if err != nil {
		return nil, err
	}
	a, err := app.New(paths.Config)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

var rootCmd = &cobra.Command{
	Use:   "wikigit",
	Short: "Git-backed wiki server",
}

// serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the wiki server",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return a.Run(ctx)
	},
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := app.DefaultPaths()
		if err != nil {
			return err
		}

		cfg := config.NewConfig(paths.BaseDir)
		if err := config.Init(paths.Config, cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", paths.Config)
		fmt.Printf("Base Dir: %s\n", paths.BaseDir)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := app.DefaultPaths()
		if err != nil {
			return err
		}

		cfg, err := config.ReadFromFile(paths.Config)
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", paths.Config)
		m := &config.Manager{}
		return m.Write(os.Stdout, cfg)
	},
}

// repo command
var repoCmd = &cobra.Command{
	Use:   "repo",
	Short: "Manage repositories",
}

var repoAddCmd = &cobra.Command{
	Use:   "add OWNER/NAME",
	Short: "Register a repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		remote, _ := cmd.Flags().GetString("remote")
		readOnly, _ := cmd.Flags().GetBool("read-only")
		clone, _ := cmd.Flags().GetBool("clone")

		owner, name, err := splitRepoArg(args[0])
		if err != nil {
			return err
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		repo, err := a.Service().AddRepository(cmd.Context(), wiki.NewRepository{
			Owner:     owner,
			Name:      name,
			RemoteURL: remote,
			ReadOnly:  readOnly,
			Clone:     clone,
		})
		if err != nil {
			return fmt.Errorf("adding repository: %w", err)
		}

		fmt.Printf("Registered repository %s (sync: %s)\n", repo.ID, repo.SyncStatus)
		return nil
	},
}

var repoListCmd = &cobra.Command{
	Use:   "list",
	Short: "List repositories",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		repos, err := a.Service().ListRepositories(cmd.Context())
		if err != nil {
			return err
		}
		if len(repos) == 0 {
			fmt.Println("No repositories registered.")
			return nil
		}

		for _, r := range repos {
			flags := ""
			if !r.Enabled {
				flags += " [disabled]"
			}
			if r.ReadOnly {
				flags += " [read-only]"
			}
			lastSynced := "never"
			if r.LastSynced != nil {
				lastSynced = r.LastSynced.Format("2006-01-02 15:04:05")
			}
			fmt.Printf("%-30s  %-12s  synced:%s%s\n", r.ID, r.SyncStatus, lastSynced, flags)
		}
		return nil
	},
}

var repoRemoveCmd = &cobra.Command{
	Use:   "remove ID",
	Short: "Remove a repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deleteClone, _ := cmd.Flags().GetBool("delete-clone")

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Service().RemoveRepository(cmd.Context(), args[0], deleteClone); err != nil {
			return fmt.Errorf("removing repository: %w", err)
		}
		fmt.Printf("Removed repository %s\n", args[0])
		return nil
	},
}

var repoSyncCmd = &cobra.Command{
	Use:   "sync ID",
	Short: "Sync a repository with its remote",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.Service().SyncRepository(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("syncing: %w", err)
		}

		fmt.Printf("Sync %s: %s\n", result.Status, result.Message)
		if result.CommitsPulled > 0 {
			fmt.Printf("Pulled %d commit(s), %d file(s) changed\n", result.CommitsPulled, result.FilesChanged)
		}
		if result.ErrorMessage != "" {
			fmt.Printf("Error: %s\n", result.ErrorMessage)
		}
		return nil
	},
}

// reindex command
var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the search index from all enabled repositories",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		count, err := a.Service().Reindex(cmd.Context())
		if err != nil {
			return fmt.Errorf("reindexing: %w", err)
		}
		fmt.Printf("Indexed %d document(s)\n", count)
		return nil
	},
}

func splitRepoArg(arg string) (owner, name string, err error) {
	for i := 0; i < len(arg); i++ {
		if arg[i] == '/' {
			if i == 0 || i == len(arg)-1 {
				break
			}
			return arg[:i], arg[i+1:], nil
		}
	}
	return "", "", fmt.Errorf("expected OWNER/NAME, got %q", arg)
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	repoCmd.AddCommand(repoAddCmd)
	repoAddCmd.Flags().String("remote", "", "HTTPS clone URL of the remote")
	repoAddCmd.Flags().Bool("read-only", false, "Reject content mutations for this repository")
	repoAddCmd.Flags().Bool("clone", false, "Clone the remote immediately")
	repoCmd.AddCommand(repoListCmd)
	repoCmd.AddCommand(repoRemoveCmd)
	repoRemoveCmd.Flags().Bool("delete-clone", false, "Also delete the local working tree")
	repoCmd.AddCommand(repoSyncCmd)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(repoCmd)
	rootCmd.AddCommand(reindexCmd)
}
