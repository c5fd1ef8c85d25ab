// Campaign replay client: streams a plan from the server, replays each
// channel's message as typed bubbles and saves the final plan.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"golang.org/x/sync/errgroup"

	"github.com/mashkdul/Perplexity-mockup/internal/config"
	"github.com/mashkdul/Perplexity-mockup/internal/domain"
	"github.com/mashkdul/Perplexity-mockup/internal/export"
	"github.com/mashkdul/Perplexity-mockup/internal/render"
	"github.com/mashkdul/Perplexity-mockup/internal/session"
	"github.com/mashkdul/Perplexity-mockup/internal/transport"
	"github.com/mashkdul/Perplexity-mockup/internal/typing"
)

const exitCancelled = 130

func main() {
	os.Exit(run())
}

func run() int {
	config.LoadDotEnv()

	cfg, err := config.LoadClient()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		return 1
	}

	// Bubbles own stdout, logs go to stderr.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: config.ParseLogLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	req := cfg.Request()
	if unknown := domain.UnknownValues(req.Sources, domain.KnownSources); len(unknown) > 0 {
		slog.Warn("Unknown campaign sources", "sources", unknown, "known", domain.KnownSources)
	}
	if unknown := domain.UnknownValues(req.Channels, domain.KnownChannels); len(unknown) > 0 {
		slog.Warn("Unknown campaign channels", "channels", unknown, "known", domain.KnownChannels)
	}

	tr, err := transport.New(cfg.Transport, cfg.ServerURL, cfg.SessionID)
	if err != nil {
		slog.Error("Failed to create transport", "error", err)
		return 1
	}

	timing := typing.NewRandomTiming(uint64(cfg.Typing.Seed), cfg.Typing.StartDelayMax, cfg.Typing.CadenceMin, cfg.Typing.CadenceMax)
	ctrl := session.NewController(tr, typing.NewAnimator(timing))
	renderer := render.NewRenderer(os.Stdout, isatty.IsTerminal(os.Stdout.Fd()))
	ctrl.OnChange(renderer.Update)

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Opening campaign stream", "server", cfg.ServerURL, "transport", cfg.Transport, "campaign_name", req.CampaignName)
	ctrl.Start(context.Background(), req)

	settled := make(chan struct{})
	var g errgroup.Group
	g.Go(func() error {
		defer close(settled)
		return ctrl.Wait(context.Background())
	})
	g.Go(func() error {
		select {
		case <-sigCtx.Done():
			slog.Info("Interrupted, stopping session")
			ctrl.Close()
		case <-settled:
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		slog.Error("Session wait failed", "error", err)
	}

	st := ctrl.State()
	renderer.Update(st)
	if err := renderer.Err(); err != nil {
		slog.Warn("Rendering failed", "error", err)
	}

	code, save := exitStatus(st, sigCtx.Err() != nil)
	if !save {
		if st.Status == session.StatusCompleted {
			slog.Info("Replay interrupted, plan not saved", "campaign_id", st.Plan.CampaignID)
		}
		if errors.Is(st.Err, domain.ErrMalformedPayload) {
			slog.Error("Server sent a malformed plan", "error", st.Err, "buffer_bytes", len(st.Buffer))
		}
		return code
	}

	path, err := export.WritePlan(cfg.ExportDir, *st.Plan)
	if err != nil {
		slog.Error("Failed to export plan", "error", err)
		return 1
	}
	slog.Info("Campaign plan exported", "path", path, "campaign_id", st.Plan.CampaignID)
	fmt.Fprintf(os.Stdout, "\nSaved %s\n", path)
	return code
}

// exitStatus maps a settled session to the process exit code and reports
// whether the plan should be exported. An interrupted replay is not saved,
// even when the plan itself arrived.
func exitStatus(st session.State, interrupted bool) (int, bool) {
	switch {
	case interrupted:
		return exitCancelled, false
	case st.Status == session.StatusCompleted && st.Plan != nil:
		return 0, true
	case st.Status == session.StatusCancelled:
		return exitCancelled, false
	default:
		return 1, false
	}
}
