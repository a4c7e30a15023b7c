package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kraklabs/devsentry/internal/config"
	"github.com/kraklabs/devsentry/internal/scanner"
	"github.com/kraklabs/devsentry/internal/store"
)

var reposCmd = &cobra.Command{
	Use:   "repos",
	Short: "Manage tracked repositories",
}

var (
	repoAddAutoScan bool
	repoAddInterval int
)

var reposAddCmd = &cobra.Command{
	Use:   "add <name> <git-url>",
	Short: "Register a repository and clone it into the managed workspace",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := buildEngine(cfg)
		if err != nil {
			return err
		}
		defer eng.Close()

		interval := repoAddInterval
		if interval == 0 {
			interval = cfg.Scanner.DefaultIntervalMinutes
		}
		if err := config.ValidateScanInterval(interval); err != nil {
			return err
		}

		ctx := context.Background()
		repo, err := eng.store.CreateRepository(ctx, &store.Repository{
			Name:            args[0],
			RemoteURL:       args[1],
			AutoScan:        repoAddAutoScan,
			ScanIntervalMin: interval,
		})
		if err != nil {
			return err
		}

		if err := eng.repos.Ensure(ctx, repo, cfg.Repos.CredentialToken); err != nil {
			return fmt.Errorf("clone %s: %w", repo.Name, err)
		}

		fmt.Printf("repository %s registered (id=%s)\n", repo.Name, repo.ID)
		return nil
	},
}

var reposListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked repositories",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := buildEngine(cfg)
		if err != nil {
			return err
		}
		defer eng.Close()

		repos, err := eng.store.ListRepositories(context.Background(), false)
		if err != nil {
			return err
		}
		for _, r := range repos {
			fmt.Printf("%s\t%s\t%s\tauto_scan=%v\tinterval=%dm\n", r.ID, r.Name, r.ScanStatus, r.AutoScan, r.ScanIntervalMin)
		}
		return nil
	},
}

var (
	repoSettingsInterval int
	repoSettingsAutoScan bool
)

var reposSettingsCmd = &cobra.Command{
	Use:   "settings <repo-id>",
	Short: "Update a repository's auto-scan settings",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := buildEngine(cfg)
		if err != nil {
			return err
		}
		defer eng.Close()

		ctx := context.Background()
		repo, err := eng.store.GetRepository(ctx, args[0])
		if err != nil {
			return err
		}

		interval := repo.ScanIntervalMin
		if cmd.Flags().Changed("interval") {
			if err := config.ValidateScanInterval(repoSettingsInterval); err != nil {
				return err
			}
			interval = repoSettingsInterval
		}
		autoScan := repo.AutoScan
		if cmd.Flags().Changed("auto-scan") {
			autoScan = repoSettingsAutoScan
		}

		if err := eng.store.UpdateRepositorySettings(ctx, repo.ID, autoScan, interval); err != nil {
			return err
		}
		fmt.Println("settings saved")
		return nil
	},
}

var scanNowCmd = &cobra.Command{
	Use:   "scan-now <repo-id>",
	Short: "Trigger an immediate scan of one repository, bypassing the interval check",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := buildEngine(cfg)
		if err != nil {
			return err
		}
		defer eng.Close()

		ctx := context.Background()
		repo, err := eng.store.GetRepository(ctx, args[0])
		if err != nil {
			return err
		}

		task := scanner.NewTask(eng.store, eng.repos, eng.analyzer, eng.tasksGen, cfg.Scanner.ProgressBatchSize, cfg.Repos.CredentialToken)
		if err := task.Run(ctx, repo); err != nil {
			return fmt.Errorf("scan %s: %w", repo.Name, err)
		}
		fmt.Printf("scan complete for %s\n", repo.Name)
		return nil
	},
}

func init() {
	reposAddCmd.Flags().BoolVar(&repoAddAutoScan, "auto-scan", false, "Enable auto-scan immediately")
	reposAddCmd.Flags().IntVar(&repoAddInterval, "interval", 0, "Scan interval in minutes (default: server config)")

	reposSettingsCmd.Flags().IntVar(&repoSettingsInterval, "interval", 0, "New scan interval in minutes")
	reposSettingsCmd.Flags().BoolVar(&repoSettingsAutoScan, "auto-scan", false, "Enable or disable auto-scan")

	reposCmd.AddCommand(reposAddCmd, reposListCmd, reposSettingsCmd, scanNowCmd)
}
