package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"edspec/internal/app"
	"edspec/internal/config"
	"edspec/internal/storage"
	"edspec/internal/version"
	logx "edspec/pkg/logx"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/pflag"
)

func loadConfig(g globals) (*config.Manager, error) {
	cfgm := config.NewManager(g.cfgPath)
	if _, err := cfgm.Load(); err != nil {
		return nil, err
	}
	return cfgm, nil
}

func cmdTest(g globals) error {
	cfgm, err := loadConfig(g)
	if err != nil {
		return err
	}
	rl, err := app.OneShotRelay(cfgm, logx.Nop())
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	res, err := rl.TestConnection(ctx, cfgm.Prefs().APIKey())
	if err != nil {
		if res.Message != "" {
			fmt.Fprintln(g.stdout, res.Message)
		}
		return err
	}
	fmt.Fprintln(g.stdout, res.Message)
	if !res.OK {
		return fmt.Errorf("connection test failed")
	}
	return nil
}

func prefKeysHelp() string { return strings.Join(config.SortedPrefKeys(), ", ") }

func cmdPrefs(g globals, args []string) error {
	if len(args) == 0 || args[0] == "show" {
		cfgm, err := loadConfig(g)
		if err != nil {
			return err
		}
		vals := cfgm.Prefs().PrefValues()
		for _, k := range config.SortedPrefKeys() {
			fmt.Fprintf(g.stdout, "%-14s %s\n", k, vals[k])
		}
		return nil
	}
	if args[0] != "set" || len(args) != 3 {
		return fmt.Errorf("usage: prefs set <key> <value> (keys: %s)", prefKeysHelp())
	}
	if created, err := config.WriteDefault(g.cfgPath); err != nil {
		return err
	} else if created {
		fmt.Fprintf(g.stderr, "created %s\n", g.cfgPath)
	}
	cfgm, err := loadConfig(g)
	if err != nil {
		return err
	}
	key, value := args[1], args[2]
	err = cfgm.Update(context.Background(), func(cfg *config.Config) error {
		return config.SetPref(cfg, key, value)
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(g.stdout, "%s = %s\n", key, cfgm.Prefs().PrefValues()[strings.ToLower(key)])
	return nil
}

func cmdHistory(g globals, args []string) error {
	fs := pflag.NewFlagSet("history", pflag.ContinueOnError)
	fs.SetOutput(g.stderr)
	n := fs.IntP("limit", "n", 20, "number of entries")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfgm, err := loadConfig(g)
	if err != nil {
		return err
	}
	sc, enabled, err := app.MapStorageConfig(cfgm.Get())
	if err != nil {
		return err
	}
	if !enabled {
		return fmt.Errorf("storage is disabled; set storage.driver to file or sqlite")
	}
	store, err := storage.Open(sc, logx.Nop())
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.RecentDeliveries(context.Background(), *n)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(g.stdout, "no deliveries recorded")
		return nil
	}
	fmt.Fprintln(g.stdout, historyTable(entries))
	return nil
}

func historyTable(entries []storage.DeliveryEntry) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("TIME", "KIND", "CMDR", "OUTCOME", "CODE", "TOOK", "ERROR")
	for _, e := range entries {
		code := ""
		if e.StatusCode != 0 {
			code = strconv.Itoa(e.StatusCode)
		}
		t.Row(
			e.At.Local().Format("2006-01-02 15:04:05"),
			e.Kind,
			e.Cmdr,
			e.Outcome,
			code,
			(time.Duration(e.TookMS) * time.Millisecond).String(),
			e.Error,
		)
	}
	return t.String()
}

func cmdInit(g globals) error {
	created, err := config.WriteDefault(g.cfgPath)
	if err != nil {
		return err
	}
	if created {
		fmt.Fprintf(g.stdout, "wrote %s\n", g.cfgPath)
	} else {
		fmt.Fprintf(g.stdout, "%s already exists\n", g.cfgPath)
	}
	return nil
}

func cmdVersion(g globals) error {
	fmt.Fprintf(g.stdout, "%s %s\n", binName, version.Full())
	return nil
}
