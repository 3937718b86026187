package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"gcexport/pkg/auth"
	"gcexport/pkg/config"
	"gcexport/pkg/export"
	"gcexport/pkg/garmin"
	"gcexport/pkg/logger"
	"gcexport/pkg/metrics"
	"gcexport/pkg/models"
	"gcexport/pkg/ratelimit"
	"gcexport/pkg/session"
	"gcexport/pkg/ui"
	"gcexport/pkg/ui/tui"
)

var (
	accountName string
	useTUI      bool
)

// flags forwarded to config.MergeCommandLineFlags when set
var exportFlagNames = []string{
	"username", "password", "count", "format", "directory", "unzip",
	"protocol", "log", "log-level", "no-color", "metrics-file",
	"notifications", "rate-limit", "write-placeholders",
}

func init() {
	f := rootCmd.Flags()
	f.String("username", "", "Garmin Connect username or email (prompted if omitted)")
	f.String("password", "", "Garmin Connect password (prompted if omitted)")
	f.StringP("count", "c", "1", "number of recent activities to download, 'all' or 'new'")
	f.StringP("format", "f", "gpx", "export format: gpx, tcx or original")
	f.StringP("directory", "d", "./", "output directory")
	f.BoolP("unzip", "u", false, "unpack the archives of the 'original' format")
	f.String("protocol", "modern", "service protocol: modern or legacy")
	f.BoolP("log", "l", false, "also write diagnostics to "+config.DefaultLogFile)
	f.String("metrics-file", "", "write run metrics in Prometheus text format to this file")
	f.Bool("notifications", false, "show a desktop notification when the run ends")
	f.Int("rate-limit", 0, "maximum requests per minute (0 disables pacing)")
	f.Bool("write-placeholders", true, "write empty files for activities without TCX or original data")
	f.StringVarP(&accountName, "account", "a", "", "use a stored account")
	f.BoolVar(&useTUI, "tui", false, "show an interactive progress view")
}

// changedFlags collects the values of the named flags the user actually set
func changedFlags(fs *pflag.FlagSet, names ...string) map[string]interface{} {
	out := make(map[string]interface{})
	for _, name := range names {
		f := fs.Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		switch f.Value.Type() {
		case "bool":
			v, _ := fs.GetBool(name)
			out[name] = v
		case "int":
			v, _ := fs.GetInt(name)
			out[name] = v
		default:
			out[name] = f.Value.String()
		}
	}
	return out
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, changedFlags(cmd.Flags(), exportFlagNames...))
	if err != nil {
		return err
	}
	noColor = cfg.Logging.NoColor

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return err
	}
	log = log.WithField("version", version)

	req, err := cfg.Request()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	terminal := ui.NewTerminal(out, cfg.Logging.NoColor)
	if !useTUI {
		terminal.PrintBanner()
	}

	var store accountStore
	if cfg.Service.Password == "" {
		if m, err := auth.NewManager(); err == nil {
			store = m
		} else {
			log.WithError(err).Debug("Credential store unavailable")
		}
	}
	creds, err := resolveCredentials(cfg, accountName, store, bufio.NewReader(cmd.InOrStdin()), out)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	client, err := session.NewClient(session.Options{
		UserAgent: cfg.Service.UserAgent,
		Timeout:   cfg.Service.Timeout,
		Limiter:   ratelimit.PerMinute(cfg.RateLimit.RequestsPerMinute),
	}, log)
	if err != nil {
		return err
	}

	protocol, err := garmin.New(cfg.Service.Protocol, garmin.Endpoints{
		SSO:     cfg.Service.SSOURL,
		Connect: cfg.Service.ConnectURL,
	})
	if err != nil {
		return err
	}

	recorder, err := metrics.NewRecorder()
	if err != nil {
		return err
	}
	recorder.Prime(req.Format)

	var view *tui.TUI
	var sink export.EventSink
	if useTUI {
		view = tui.New(cancel)
		sink = export.MultiSink(view, recorder)
	} else {
		sink = export.MultiSink(ui.NewPresenter(terminal), recorder)
	}

	exporter := export.NewExporter(client, protocol, log, export.Options{
		WritePlaceholders: cfg.Export.WritePlaceholders,
		Sink:              sink,
	})

	log.InfoWithFields("Starting export", map[string]interface{}{
		"directory": req.Directory,
		"format":    string(req.Format),
		"count":     req.Count.String(),
		"protocol":  protocol.Name(),
	})

	var result *export.Result
	if view != nil {
		result, err = runWithTUI(ctx, view, exporter, req, creds)
	} else {
		result, err = exporter.Run(ctx, req, creds)
	}

	if cfg.Metrics.TextfilePath != "" {
		if werr := recorder.WriteTextfile(cfg.Metrics.TextfilePath); werr != nil {
			log.WithError(werr).Warn("Failed to write metrics")
		}
	}

	notify(ui.NewNotifier(cfg.Notifications.Enabled), log, result, err)

	if err != nil {
		log.WithError(err).Error("Export failed")
		return err
	}
	log.WithField("run_id", result.RunID).Info("Export finished")
	return nil
}

// runWithTUI runs the exporter in the background while the progress view
// owns the terminal
func runWithTUI(ctx context.Context, view *tui.TUI, exporter *export.Exporter, req models.ExportRequest, creds export.Credentials) (*export.Result, error) {
	type outcome struct {
		result *export.Result
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		r, err := exporter.Run(ctx, req, creds)
		view.Finish(err)
		done <- outcome{r, err}
	}()

	_, uiErr := view.Run()
	o := <-done
	if o.err == nil && uiErr != nil {
		return o.result, fmt.Errorf("progress view failed: %w", uiErr)
	}
	return o.result, o.err
}

// accountStore is the part of auth.Manager used to look up credentials
type accountStore interface {
	Retrieve(username string) (*auth.Account, error)
	RetrieveDefault() (*auth.Account, error)
}

// resolveCredentials fills the login from flags and configuration, then a
// stored account, then interactive prompts
func resolveCredentials(cfg *config.Config, account string, store accountStore, in *bufio.Reader, out io.Writer) (export.Credentials, error) {
	creds := export.Credentials{Username: cfg.Service.Username, Password: cfg.Service.Password}
	if account != "" {
		creds.Username = account
	}

	if creds.Password == "" && store != nil {
		var stored *auth.Account
		var err error
		if creds.Username != "" {
			stored, err = store.Retrieve(creds.Username)
		} else {
			stored, err = store.RetrieveDefault()
		}
		switch {
		case err == nil:
			creds.Username, creds.Password = stored.Username, stored.Password
		case account != "":
			return creds, fmt.Errorf("account %s: %w", account, err)
		}
	}

	var err error
	if creds.Username == "" {
		if creds.Username, err = promptLine(in, out, "Username: "); err != nil {
			return creds, fmt.Errorf("failed to read username: %w", err)
		}
	}
	if creds.Password == "" {
		if creds.Password, err = promptPassword(in, out, "Password: "); err != nil {
			return creds, fmt.Errorf("failed to read password: %w", err)
		}
	}
	if creds.Username == "" || creds.Password == "" {
		return creds, errors.New("username and password are required")
	}
	return creds, nil
}

func notify(n *ui.Notifier, log logger.Logger, result *export.Result, runErr error) {
	title, msg := "Garmin Connect export finished", ""
	switch {
	case runErr != nil:
		title, msg = "Garmin Connect export failed", runErr.Error()
	case result != nil:
		msg = ui.Summary(result)
	}
	if err := n.Notify(title, msg); err != nil {
		log.WithError(err).Debug("Notification not sent")
	}
}
