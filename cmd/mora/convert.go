// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/morahq/mora/internal/apiclient"
	"github.com/morahq/mora/internal/cache"
	"github.com/morahq/mora/internal/config"
	"github.com/morahq/mora/internal/events"
	"github.com/morahq/mora/internal/export"
	"github.com/morahq/mora/internal/log"
	"github.com/morahq/mora/internal/session"
	"github.com/morahq/mora/internal/store"
	"github.com/morahq/mora/internal/stream"
	"github.com/morahq/mora/internal/telemetry"
)

// runConvert creates a conversion session, follows its event stream to the
// terminal event and archives the result.
func runConvert(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("convert", flag.ContinueOnError)
	video := fs.String("video", "", "video URL to convert (required)")
	language := fs.String("language", "", "target language hint")
	out := fs.String("out", "", "write the generated code to this file")
	timeout := fs.Duration("timeout", 10*time.Minute, "abandon the session after this long")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *video == "" {
		fs.Usage()
		return errors.New("convert: -video is required")
	}

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	tracer := telemetry.Tracer("mora/convert")
	ctx, span := tracer.Start(ctx, "convert")
	defer span.End()

	api := apiclient.New(cfg.APIURL)
	created, err := api.CreateSession(ctx, apiclient.CreateSessionRequest{
		VideoURL: *video,
		Language: *language,
	})
	if err != nil {
		return err
	}

	ctx = log.ContextWithSessionID(ctx, created.SessionID)
	logger := log.WithComponentFromContext(ctx, "convert")
	span.SetAttributes(telemetry.SessionAttributes(created.SessionID, *video, *language)...)
	logger.Info().
		Str("event", "convert.session_created").
		Str(log.FieldVideoURL, *video).
		Msg("session created")
	fmt.Printf("session %s created\n", created.SessionID)

	snap := session.New(created.SessionID, *video)
	snap.Language = *language
	snap.Status = session.StatusProcessing

	snap, err = followStream(ctx, cfg, snap)

	// Archive whatever state was reached, even on failure.
	if archiveErr := archive(ctx, cfg, snap); archiveErr != nil {
		logger.Warn().Err(archiveErr).Msg("failed to archive session")
	}
	if err != nil {
		return err
	}

	printResult(snap)

	if *out != "" && snap.Code != "" {
		if err := export.WriteCode(ctx, *out, snap); err != nil {
			return err
		}
		fmt.Printf("code written to %s\n", *out)
	}

	if snap.Status == session.StatusError {
		return fmt.Errorf("convert: session failed: %s", snap.Err)
	}
	return nil
}

// followStream folds the session's event stream into the snapshot until the
// stream terminates.
func followStream(ctx context.Context, cfg config.Config, snap session.Snapshot) (session.Snapshot, error) {
	sc := stream.New(cfg.APIURL)
	defer func() { _ = sc.Close() }()

	if err := sc.Open(ctx, snap.ID); err != nil {
		return snap, err
	}

	reducer := session.NewReducer(nil)
	mark := 0
	apply := func() {
		for _, msg := range sc.Since(mark) {
			mark++
			renderEvent(snap, msg)
			snap = reducer.Apply(snap, msg)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return snap, ctx.Err()
		case <-sc.Updates():
			apply()
		case <-sc.Done():
			apply()
			if msg := sc.Err(); msg != "" && !snap.Terminal() {
				snap.Status = session.StatusError
				snap.Err = msg
			}
			return snap, nil
		}
	}
}

// renderEvent prints stream progress for the interactive console.
func renderEvent(snap session.Snapshot, msg events.Message) {
	switch msg.Type {
	case events.TypeThought:
		fmt.Printf("  • %s\n", msg.Content)
	case events.TypeCodeSegment:
		if msg.Segment != nil {
			fmt.Printf("  segment %d: %s\n", msg.Segment.Index, msg.Segment.Summary)
		}
	case events.TypeSegmentsComplete:
		fmt.Printf("  %d segments finalized\n", len(msg.Segments))
	case events.TypeError:
		fmt.Printf("  error: %s\n", msg.ErrMsg)
	}
}

func printResult(snap session.Snapshot) {
	fmt.Printf("\nsession %s: %s\n", snap.ID, snap.Status)
	if len(snap.Segments) > 0 {
		fmt.Printf("%d segments, %d thought steps\n", len(snap.Segments), len(snap.Thoughts))
	}
	if snap.Code != "" {
		fmt.Printf("\n%s\n", snap.Code)
	}
}

// archive persists the terminal snapshot to the local history and, when
// Redis is configured, to the shared snapshot cache.
func archive(ctx context.Context, cfg config.Config, snap session.Snapshot) error {
	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	st, err := store.Open(filepath.Join(cfg.DataDir, "history.db"))
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	if err := st.Save(ctx, snap); err != nil {
		return err
	}

	if cfg.RedisAddr != "" {
		rc, err := cache.NewRedis(cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, log.WithComponent("cache"))
		if err != nil {
			return err
		}
		defer func() { _ = rc.Close() }()
		rc.Put(ctx, snap, cfg.CacheTTL)
	}
	return nil
}
