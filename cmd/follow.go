package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zjrosen/gerritnav/internal/log"
	"github.com/zjrosen/gerritnav/internal/presentation"
	"github.com/zjrosen/gerritnav/internal/watcher"
)

func newFollowCmd(a *app) *cobra.Command {
	var (
		watch    bool
		failFast bool
	)

	cmd := &cobra.Command{
		Use:   "follow [url]...",
		Short: "Navigate to URLs, following redirects and repository lookups",
		Long: `Navigate to each URL the way the review UI would: follow redirects,
look up the repository of bare change URLs, and publish the final view
state. One outcome is printed per URL.

URLs come from the arguments, or one per line from stdin when there are
none. Blank lines and lines starting with '#' are skipped. While reading
stdin, changes to the config file are picked up without restarting.

Examples:
  gerritnav follow /c/42
  tail -f access.log | awk '{print $7}' | gerritnav follow -o yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			f, err := a.formatter(cmd)
			if err != nil {
				return err
			}
			svc, err := newServices(ctx, a.cfg)
			if err != nil {
				return err
			}
			defer svc.Close()

			if len(args) == 0 && watch {
				stop := a.watchConfig(svc)
				defer stop()
			}

			failed := 0
			next := lineSource(cmd, args)
			for {
				raw, ok := next()
				if !ok {
					break
				}
				out, err := svc.navigator.Navigate(ctx, raw)
				if printErr := f.FormatOutcome(presentation.FromOutcome(out)); printErr != nil {
					return printErr
				}
				if err != nil {
					failed++
					if failFast {
						return err
					}
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d navigation(s) failed", failed)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", true, "reload the config file when it changes (stdin mode)")
	cmd.Flags().BoolVar(&failFast, "fail-fast", false, "stop at the first failed navigation")
	return cmd
}

// lineSource yields args, or the meaningful lines of stdin when args is
// empty.
func lineSource(cmd *cobra.Command, args []string) func() (string, bool) {
	if len(args) > 0 {
		i := 0
		return func() (string, bool) {
			if i >= len(args) {
				return "", false
			}
			i++
			return args[i-1], true
		}
	}

	scanner := bufio.NewScanner(cmd.InOrStdin())
	return func() (string, bool) {
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			return line, true
		}
		if err := scanner.Err(); err != nil {
			log.ErrorErr(log.CatNav, "Reading URLs failed", err)
		}
		return "", false
	}
}

// watchConfig re-applies the config file to svc whenever it changes. The
// returned func stops watching.
func (a *app) watchConfig(svc *services) func() {
	if _, err := os.Stat(a.configPath); err != nil {
		return func() {}
	}
	w, err := watcher.New(watcher.DefaultConfig(a.configPath))
	if err != nil {
		log.ErrorErr(log.CatWatcher, "Config watcher unavailable", err, "path", a.configPath)
		return func() {}
	}
	changes, err := w.Start()
	if err != nil {
		_ = w.Stop()
		log.ErrorErr(log.CatWatcher, "Config watcher unavailable", err, "path", a.configPath)
		return func() {}
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case _, ok := <-changes:
				if !ok {
					return
				}
				cfg, err := a.reload()
				if err != nil {
					log.ErrorErr(log.CatConfig, "Config reload failed; keeping previous config", err, "path", a.configPath)
					continue
				}
				svc.apply(cfg)
				log.Info(log.CatConfig, "Config reloaded", "path", a.configPath)
			}
		}
	}()

	return func() {
		close(done)
		_ = w.Stop()
	}
}
