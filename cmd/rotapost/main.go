package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"rotapost/internal/clock"
	"rotapost/internal/cmdlog"
	"rotapost/internal/config"
	"rotapost/internal/jobs"
	"rotapost/internal/logging"
	"rotapost/internal/metrics"
	"rotapost/internal/model"
	"rotapost/internal/runlog"
	"rotapost/internal/schedule"
	"rotapost/internal/theme"
)

func main() {
	_ = godotenv.Load()
	cmd := ""
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}
	var err error
	switch cmd {
	case "init":
		err = cmdlog.Run("init", cmdInit)
	case "post":
		err = cmdlog.Run("post", cmdPost)
	case "reply":
		err = cmdlog.Run("reply", cmdReply)
	case "split":
		err = cmdlog.Run("split", cmdSplit)
	case "merge":
		err = cmdlog.Run("merge", cmdMerge)
	case "validate":
		err = cmdlog.Run("validate", cmdValidate)
	case "schedule":
		err = cmdlog.Run("schedule", cmdSchedule)
	case "logs":
		err = cmdlog.Run("logs", cmdLogs)
	default:
		printHelp()
		return
	}
	if err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func printHelp() {
	theme.PrintBanner()
	fmt.Println("Usage: rotapost <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  init        Write a runtime config and starter artifacts")
	fmt.Println("  post        Run one scheduled-posting pass")
	fmt.Println("  reply       Run one reply-monitor pass")
	fmt.Println("  split       Split a canonical config into user config and system state")
	fmt.Println("  merge       Merge user config and system state into one canonical file")
	fmt.Println("  validate    Check the user config for structural problems")
	fmt.Println("  schedule    Show each bot's posting windows at the current time")
	fmt.Println("  logs        Show or prune the local execution log")
}

// setup loads the runtime config and brings up logging and, when configured,
// the metrics endpoint.
func setup(path string) (config.Runtime, error) {
	rt, err := config.LoadRuntime(path)
	if err != nil {
		return rt, err
	}
	logging.Setup(rt.LogLevel)
	metrics.StartServer(rt.MetricsAddr)
	return rt, nil
}

func openRunLog(rt config.Runtime) *runlog.DB {
	if rt.RunLogPath == "" {
		return nil
	}
	db, err := runlog.Open(rt.RunLogPath)
	if err != nil {
		logging.Warn("runlog_unavailable", map[string]any{"path": rt.RunLogPath, "error": err.Error()})
		return nil
	}
	return db
}

// persistState rewrites the system state artifact once, after a worker pass
// that advanced cursors in memory.
func persistState(rt config.Runtime, cfg *model.Config) error {
	_, state := config.Split(cfg, time.Now().In(clock.JST))
	if err := config.SaveSystemState(rt.SystemStatePath, state); err != nil {
		return err
	}
	logging.Info("state_saved", map[string]any{"path": rt.SystemStatePath})
	return nil
}

func runWorker(worker string, run func(context.Context, *model.Config, config.Runtime, jobs.Deps) jobs.Report) error {
	fs := flag.NewFlagSet(worker, flag.ExitOnError)
	rtPath := fs.String("runtime", "./rotapost.yaml", "runtime config path")
	dry := fs.Bool("dry-run", false, "log actions instead of calling the API")
	_ = fs.Parse(os.Args[2:])

	rt, err := setup(*rtPath)
	if err != nil {
		return err
	}
	if *dry {
		rt.DryRun = true
	}
	cfg, err := config.LoadMerged(rt)
	if err != nil {
		return err
	}

	deps := jobs.Deps{}
	if db := openRunLog(rt); db != nil {
		defer db.Close()
		deps.RunLog = db
	}
	rep := run(context.Background(), cfg, rt, deps)

	if rep.StateChanged {
		if err := persistState(rt, cfg); err != nil {
			return err
		}
	}
	if rep.Errors > 0 {
		return fmt.Errorf("%s finished with %d error(s)", worker, rep.Errors)
	}
	return nil
}

func cmdPost() error  { return runWorker(jobs.WorkerPost, jobs.RunScheduledPosts) }
func cmdReply() error { return runWorker(jobs.WorkerReply, jobs.RunReplyMonitor) }

func cmdInit() error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	rtPath := fs.String("runtime", "./rotapost.yaml", "where to write the runtime config")
	_ = fs.Parse(os.Args[2:])

	rt := config.Default()
	rt.ResolveEnv()
	if err := config.SaveRuntime(*rtPath, rt); err != nil {
		return err
	}
	if _, err := os.Stat(rt.UserConfigPath); os.IsNotExist(err) {
		if err := config.SaveConfig(rt.UserConfigPath, starterConfig()); err != nil {
			return err
		}
	}
	abs, _ := filepath.Abs(*rtPath)
	theme.PrintBanner()
	fmt.Println("Runtime config written to:", abs)
	fmt.Println("Edit", rt.UserConfigPath, "and fill in your account credentials.")
	return nil
}

func starterConfig() model.Config {
	id := int64(1)
	return model.Config{
		Version:   "1.0",
		UpdatedAt: clock.FormatDateTime(time.Now().In(clock.JST)),
		Bots: []model.Bot{{
			Account: &model.Account{
				ID:     &id,
				Name:   "example_bot",
				Status: model.StatusInactive,
			},
			ScheduledTimes:       "09, 12:30, 21",
			ScheduledContentList: []byte(`["first post", "second post"]`),
		}},
	}
}

func cmdSplit() error {
	fs := flag.NewFlagSet("split", flag.ExitOnError)
	rtPath := fs.String("runtime", "./rotapost.yaml", "runtime config path")
	in := fs.String("in", "./config/config.json", "canonical config to split")
	_ = fs.Parse(os.Args[2:])

	rt, err := setup(*rtPath)
	if err != nil {
		return err
	}
	canonical, err := config.LoadUserConfig(*in)
	if err != nil {
		return err
	}
	user, state := config.Split(canonical, time.Now().In(clock.JST))
	if err := config.SaveConfig(rt.UserConfigPath, user); err != nil {
		return err
	}
	if err := config.SaveSystemState(rt.SystemStatePath, state); err != nil {
		return err
	}
	fmt.Println("User config written to:", rt.UserConfigPath)
	fmt.Println("System state written to:", rt.SystemStatePath)
	return nil
}

func cmdMerge() error {
	fs := flag.NewFlagSet("merge", flag.ExitOnError)
	rtPath := fs.String("runtime", "./rotapost.yaml", "runtime config path")
	out := fs.String("out", "./config/config.json", "where to write the canonical config")
	_ = fs.Parse(os.Args[2:])

	rt, err := setup(*rtPath)
	if err != nil {
		return err
	}
	merged, err := config.LoadMerged(rt)
	if err != nil {
		return err
	}
	if err := config.SaveConfig(*out, *merged); err != nil {
		return err
	}
	fmt.Println("Canonical config written to:", *out)
	return nil
}

func cmdValidate() error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	rtPath := fs.String("runtime", "./rotapost.yaml", "runtime config path")
	_ = fs.Parse(os.Args[2:])

	rt, err := setup(*rtPath)
	if err != nil {
		return err
	}
	cfg, err := config.LoadUserConfig(rt.UserConfigPath)
	if err != nil {
		return err
	}
	findings := config.ValidateUserConfig(cfg)
	for _, f := range findings {
		fmt.Println("-", f)
	}
	if len(findings) > 0 {
		return fmt.Errorf("%d finding(s) in %s", len(findings), rt.UserConfigPath)
	}
	fmt.Printf("%s: %d bot(s), %d reply setting(s), no findings\n",
		rt.UserConfigPath, len(cfg.Bots), len(cfg.ReplySettings))
	return nil
}

func cmdSchedule() error {
	fs := flag.NewFlagSet("schedule", flag.ExitOnError)
	rtPath := fs.String("runtime", "./rotapost.yaml", "runtime config path")
	_ = fs.Parse(os.Args[2:])

	rt, err := setup(*rtPath)
	if err != nil {
		return err
	}
	cfg, err := config.LoadMerged(rt)
	if err != nil {
		return err
	}
	now := clock.Now()
	fmt.Println("Now (JST):", now.ISO)
	for i := range cfg.Bots {
		bot := &cfg.Bots[i]
		name := "bot#" + fmt.Sprint(i+1)
		if bot.Account != nil && bot.Account.Name != "" {
			name = bot.Account.Name
		}
		ev := schedule.Evaluate(bot.ScheduledTimes, now)
		switch {
		case ev.ShouldPost:
			fmt.Printf("%-20s in window %s\n", name, ev.Matched.Label)
		case ev.Reason == schedule.ReasonNoSchedule:
			fmt.Printf("%-20s no schedule\n", name)
		case ev.Next != nil:
			fmt.Printf("%-20s next %s (configured: %s)\n", name, ev.Next.Label, schedule.SummarizeWindows(ev.Windows))
		default:
			fmt.Printf("%-20s no valid windows\n", name)
		}
	}
	return nil
}

func cmdLogs() error {
	fs := flag.NewFlagSet("logs", flag.ExitOnError)
	rtPath := fs.String("runtime", "./rotapost.yaml", "runtime config path")
	limit := fs.Int("limit", 20, "number of recent outcomes to show")
	pruneDays := fs.Int("prune-days", 0, "delete entries older than this many days")
	_ = fs.Parse(os.Args[2:])

	rt, err := setup(*rtPath)
	if err != nil {
		return err
	}
	if rt.RunLogPath == "" {
		return errors.New("run log disabled (empty runLogPath)")
	}
	db, err := runlog.Open(rt.RunLogPath)
	if err != nil {
		return err
	}
	defer db.Close()
	ctx := context.Background()

	if *pruneDays > 0 {
		n, err := db.Prune(ctx, time.Now().UTC().AddDate(0, 0, -*pruneDays))
		if err != nil {
			return err
		}
		fmt.Printf("Pruned %d row(s) older than %d day(s)\n", n, *pruneDays)
	}
	outcomes, err := db.RecentOutcomes(ctx, *limit)
	if err != nil {
		return err
	}
	for _, o := range outcomes {
		fmt.Printf("%s %-5s %-20s %-8s %s\n",
			o.TS.In(clock.JST).Format("2006-01-02 15:04:05"), o.Worker, o.Bot, o.Outcome, o.Detail)
	}
	if len(outcomes) == 0 {
		fmt.Println("No recorded outcomes.")
	}
	return nil
}
