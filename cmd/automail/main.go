// Command automail is a terminal client for the teacher mail service.
//
//	automail                      interactive UI
//	automail teachers             refresh the directory cache and print it as JSON
//	automail logs [--status s]    print the send log as JSON
//	automail scan-bounces         record bouncing addresses from the mailbox
//	automail imap-password        store the mailbox password read from stdin
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/99designs/keyring"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/nhle/automail/internal/api"
	"github.com/nhle/automail/internal/app"
	"github.com/nhle/automail/internal/credential"
	"github.com/nhle/automail/internal/logging"
	"github.com/nhle/automail/internal/model"
	"github.com/nhle/automail/internal/store"
	"github.com/nhle/automail/internal/theme"
	appsync "github.com/nhle/automail/internal/sync"
)

type options struct {
	configPath    string
	envFile       string
	logLevel      string
	storePath     string
	metricsListen string
	status        string
	email         string
	limit         int
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		log.WithError(err).Error("automail exited with an error")
		fmt.Fprintln(os.Stderr, "automail:", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	var opts options
	fs := pflag.NewFlagSet("automail", pflag.ContinueOnError)
	fs.StringVarP(&opts.configPath, "config", "c", model.DefaultConfigPath(), "configuration file")
	fs.StringVar(&opts.envFile, "env-file", ".env", "dotenv file with AUTOMAIL_* overrides")
	fs.StringVar(&opts.logLevel, "log-level", "", "log level (overrides log.level)")
	fs.StringVar(&opts.storePath, "store", "", "SQLite cache path (overrides store.path)")
	fs.StringVar(&opts.metricsListen, "metrics-listen", "", "serve Prometheus metrics on this address")
	fs.StringVar(&opts.status, "status", "", "logs: only this status (success or failed)")
	fs.StringVar(&opts.email, "email", "", "logs: only messages to this address")
	fs.IntVarP(&opts.limit, "limit", "n", model.DefaultLogLimit, "logs: maximum entries")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	envErr := godotenv.Load(opts.envFile)

	cfg, err := model.LoadConfig(opts.configPath)
	if err != nil {
		return err
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if opts.storePath != "" {
		cfg.Store.Path = opts.storePath
	}
	if opts.metricsListen != "" {
		cfg.Metrics.Listen = opts.metricsListen
	}

	closer, err := logging.Setup(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		return err
	}
	defer closer.Close()
	if envErr != nil {
		log.WithField("file", opts.envFile).Debug("no dotenv file loaded")
	}

	svc := api.New(cfg)
	ctx := context.Background()

	switch cmd := fs.Arg(0); cmd {
	case "":
		return runUI(cfg, svc)
	case "teachers":
		return printTeachers(ctx, cfg, svc, stdout)
	case "logs":
		q := model.LogQuery{Status: opts.status, Email: opts.email, Limit: opts.limit}
		logs, err := svc.SMTP.Logs(ctx, q)
		if err != nil {
			return err
		}
		return writeJSON(stdout, logs)
	case "scan-bounces":
		return scanBounces(ctx, cfg, stdout)
	case "imap-password":
		return storeMailboxPassword(stdin, stdout)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func runUI(cfg *model.AppConfig, svc *api.Services) error {
	s, err := store.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer s.Close()

	secrets, err := credential.Open(model.ConfigDir())
	if err != nil {
		log.WithError(err).Warn("keyring unavailable, secrets will not outlive this session")
		secrets = credential.NewStore(keyring.NewArrayKeyring(nil))
	}

	if err := theme.Use(cfg.Display.Theme); err != nil {
		log.WithError(err).Warn("falling back to the default theme")
	}

	if cfg.Metrics.Listen != "" {
		srv := serveMetrics(cfg.Metrics.Listen)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
	}

	m := app.New(app.Deps{
		Config:   cfg,
		Store:    s,
		Services: svc,
		Secrets:  secrets,
	})
	log.Info("starting automail")
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

func serveMetrics(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("metrics server stopped")
		}
	}()
	log.WithField("addr", addr).Info("serving metrics")
	return srv
}

// printTeachers refreshes the cache from the service, then prints the
// cached directory sorted by name.
func printTeachers(ctx context.Context, cfg *model.AppConfig, svc *api.Services, w io.Writer) error {
	s, err := store.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer s.Close()

	p := appsync.New(s, 0)
	p.RegisterDirectory(svc.Teachers)
	if res := p.RunOnce(ctx, appsync.KindDirectory); res.Err != nil {
		return res.Err
	}

	teachers, err := s.GetTeachers(ctx, store.TeacherFilter{SortBy: "name"})
	if err != nil {
		return err
	}
	return writeJSON(w, teachers)
}

func scanBounces(ctx context.Context, cfg *model.AppConfig, w io.Writer) error {
	if !cfg.Mailbox.Enabled() {
		return app.ErrMailboxNotConfigured
	}
	s, err := store.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer s.Close()

	password := os.Getenv(app.MailboxPasswordEnv)
	if password == "" {
		secrets, err := credential.Open(model.ConfigDir())
		if err != nil {
			return err
		}
		if password, err = app.MailboxPassword(secrets); err != nil {
			return err
		}
	}

	added, err := app.ScanBounces(ctx, cfg.Mailbox, password, s)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "recorded %d new bounced addresses\n", added)
	return err
}

func storeMailboxPassword(r io.Reader, w io.Writer) error {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return errors.New("empty password on stdin")
	}

	secrets, err := credential.Open(model.ConfigDir())
	if err != nil {
		return err
	}
	if err := secrets.Set(credential.IMAPPasswordKey, password); err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, "mailbox password stored")
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
