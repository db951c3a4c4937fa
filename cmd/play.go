// Package cmd implements the command-line interface for gelatinarm.
package cmd

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/gitman-101111/gelatinarm-sub002/color"
	"github.com/gitman-101111/gelatinarm-sub002/history"
	"github.com/gitman-101111/gelatinarm-sub002/icon"
	"github.com/gitman-101111/gelatinarm-sub002/log"
	"github.com/gitman-101111/gelatinarm-sub002/media"
	"github.com/gitman-101111/gelatinarm-sub002/playback"
	"github.com/gitman-101111/gelatinarm-sub002/player"
	"github.com/gitman-101111/gelatinarm-sub002/reporting"
	"github.com/gitman-101111/gelatinarm-sub002/skipsegment"
	"github.com/gitman-101111/gelatinarm-sub002/style"
	"github.com/gitman-101111/gelatinarm-sub002/util"
	"github.com/muesli/reflow/truncate"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(playCmd)

	playCmd.Flags().StringP("url", "u", "", "Manifest or file URL handed to the player")
	playCmd.Flags().String("id", "", "Server item identifier")
	playCmd.Flags().StringP("name", "n", "", "Item display name")
	playCmd.Flags().String("series", "", "Series identifier for episodic items")
	playCmd.Flags().DurationP("runtime", "r", 0, "Authoritative item runtime, e.g. 45m")
	playCmd.Flags().BoolP("adaptive", "a", false, "Treat the stream as an adaptive (HLS) transcode")
	playCmd.Flags().Duration("from", 0, "Start playback from this position, overriding the saved one")
	playCmd.Flags().String("session", "", "Play session identifier reported to the server")
	playCmd.Flags().Duration("start-offset", 0, "Absolute position at which the server began the manifest")

	lo.Must0(playCmd.MarkFlagRequired("url"))
	lo.Must0(playCmd.MarkFlagRequired("id"))
}

// playCmd drives a full playback session of one item.
var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play a media item with position reconciliation and resume",
	Long: `Play a media item through mpv while keeping one continuous display timeline.
Adaptive (HLS) streams restart their position counter whenever the server
regenerates the manifest; playback positions are reconciled so seeking,
resume, and progress reporting always speak absolute item time.`,
	Example: "  gelatinarm play --id 7c3f --url https://media.example.com/videos/7c3f/master.m3u8 --adaptive --runtime 45m",
	Run: func(cmd *cobra.Command, args []string) {
		CheckDependencies()

		var (
			url         = lo.Must(cmd.Flags().GetString("url"))
			id          = lo.Must(cmd.Flags().GetString("id"))
			name        = lo.Must(cmd.Flags().GetString("name"))
			series      = lo.Must(cmd.Flags().GetString("series"))
			runtime     = lo.Must(cmd.Flags().GetDuration("runtime"))
			adaptive    = lo.Must(cmd.Flags().GetBool("adaptive"))
			from        = lo.Must(cmd.Flags().GetDuration("from"))
			session     = lo.Must(cmd.Flags().GetString("session"))
			startOffset = lo.Must(cmd.Flags().GetDuration("start-offset"))
		)

		if name == "" {
			name = id
		}
		if session == "" {
			session = randomSessionID()
		}

		item := &media.Item{
			ID:           id,
			Name:         name,
			SeriesID:     series,
			RuntimeTicks: media.DurationToTicks(runtime),
		}

		kind := media.DirectPlay
		if adaptive {
			kind = media.Adaptive
		}

		resumeTarget := from
		if !cmd.Flags().Changed("from") {
			resumeTarget = promptResume(item)
		}

		src := &media.StreamSource{
			Item:              item,
			URL:               url,
			Kind:              kind,
			PlaySessionID:     session,
			ResumeTargetTicks: media.DurationToTicks(resumeTarget),
			StartOffsetTicks:  media.DurationToTicks(startOffset),
		}

		handleErr(runPlayback(src))
	},
}

// promptResume offers to continue from the saved history position.
func promptResume(item *media.Item) time.Duration {
	record, ok, err := history.Lookup(item.ID)
	if err != nil {
		log.Warnf("lookup history for %s: %v", item.ID, err)
		return 0
	}
	if !ok || record.PositionTicks <= 0 {
		return 0
	}

	var resume bool
	prompt := &survey.Confirm{
		Message: fmt.Sprintf("Resume %s from %s?", item.Name, util.FormatDuration(record.ResumeTarget())),
		Default: true,
	}
	if err := survey.AskOne(prompt, &resume); err != nil {
		return 0
	}
	if !resume {
		return 0
	}
	return record.ResumeTarget()
}

func runPlayback(src *media.StreamSource) error {
	engine := player.NewMPV()
	ctrl := playback.NewController(engine, playback.TunablesFromConfig(),
		playback.WithReporter(reporting.Reporter{}),
		playback.WithHistory(history.Store{}),
		playback.WithSkipper(skipsegment.NewSkipper()),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	var (
		done     = make(chan struct{})
		doneOnce sync.Once
		finish   = func() { doneOnce.Do(func() { close(done) }) }
	)

	ctrl.OnMediaEnded = finish
	ctrl.NavigateBack = finish
	ctrl.OnError = func(err error) {
		fmt.Fprintf(os.Stderr, "\n%s %v\n", icon.Get(icon.Fail), err)
	}
	var skippable atomic.Bool
	ctrl.OnSkipAvailable = func(available bool) {
		skippable.Store(available)
	}
	ctrl.OnPosition = func(u playback.PositionUpdate) {
		renderStatus(src.Item, u, skippable.Load())
	}

	ctrl.Start(ctx)
	if err := ctrl.Play(src); err != nil {
		_ = ctrl.Close()
		return err
	}

	select {
	case <-ctx.Done():
	case <-done:
	case <-engine.Wait():
	}

	fmt.Println()
	if err := ctrl.Close(); err != nil && !errors.Is(err, context.Canceled) {
		log.Warnf("close playback: %v", err)
	}
	return nil
}

// renderStatus redraws the single status line with the reconciled position.
func renderStatus(item *media.Item, u playback.PositionUpdate, skippable bool) {
	marker := style.Fg(color.Green)("▶")
	switch u.State {
	case playback.StatePaused:
		marker = style.Fg(color.Yellow)("⏸")
	case playback.StateBuffering, playback.StateOpening:
		marker = style.Fg(color.Cyan)("◌")
	}

	line := fmt.Sprintf("%s %s  %s / %s (%.0f%%)",
		marker,
		style.Bold(item.Name),
		util.FormatDuration(u.Display),
		util.FormatDuration(u.Duration),
		u.Percentage,
	)
	if skippable {
		line += "  " + style.Faint("[segment]")
	}

	if width, _, err := util.TerminalSize(); err == nil && width > 1 {
		line = truncate.StringWithTail(line, uint(width-1), "…")
	}

	fmt.Printf("\r\033[K%s", line)
}

func randomSessionID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}
