//nolint:forbidigo // CLI command needs fmt.Print* for user output
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/confsync/confsync/internal/engine"
	"github.com/confsync/confsync/internal/interfaces"
	"github.com/confsync/confsync/internal/remote"
	"github.com/confsync/confsync/internal/source"
)

// Static errors for err113 compliance
var (
	ErrSomeItemsFailed = errors.New("one or more change items failed")
)

func runDeploy(ctx context.Context, projectDir, env, target string, dryRun bool) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, err := source.NewFSSource(projectDir)
	if err != nil {
		return err
	}

	clients, err := remote.OpenFileClientSet(target)
	if err != nil {
		return err
	}

	if dryRun {
		fmt.Printf("Planning %s (environment %s) against %s\n", projectDir, env, target)
	} else {
		fmt.Printf("Deploying %s (environment %s) to %s\n", projectDir, env, target)
	}

	service := engine.New(src, clients)
	report, err := service.Run(ctx, env, dryRun)
	if err != nil {
		return err
	}

	if !dryRun {
		if err := clients.Save(); err != nil {
			return err
		}
	}

	printReport(report)

	if !report.Success() {
		return ErrSomeItemsFailed
	}
	return nil
}

func printReport(report *interfaces.Report) {
	byModule := report.ResultsByModule()
	names := make([]string, 0, len(byModule))
	for name := range byModule {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		header := name
		if header == "" {
			header = "(unmanaged)"
		}
		fmt.Printf("\n%s:\n", header)
		for _, res := range byModule[name] {
			line := fmt.Sprintf("  %-7s %-30s %s", res.Item.Action, res.Item.Key(), res.Status)
			if res.Error != "" {
				line += " (" + res.Error + ")"
			}
			fmt.Println(line)
		}
	}

	for _, orphan := range report.Orphans {
		fmt.Printf("\norphaned, not managed: %s\n", orphan)
	}

	c := report.Counts
	fmt.Printf("\nPlan %s: %d created, %d updated, %d deleted, %d unchanged, %d failed, %d skipped, %d cancelled\n",
		report.PlanID, c.Created, c.Updated, c.Deleted, c.NoOp, c.Failed, c.Skipped, c.Cancelled)
	if report.DryRun {
		fmt.Println("Dry run: no changes were applied.")
	}
}
