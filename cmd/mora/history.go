// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/morahq/mora/internal/config"
	"github.com/morahq/mora/internal/store"
)

// runHistory lists archived sessions or prints one session's code.
func runHistory(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	show := fs.String("show", "", "print the archived code for this session")
	limit := fs.Int("limit", 20, "number of sessions to list")
	remove := fs.String("rm", "", "delete this session from the history")
	if err := fs.Parse(args); err != nil {
		return err
	}

	st, err := store.Open(filepath.Join(cfg.DataDir, "history.db"))
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	switch {
	case *show != "":
		rec, err := st.Get(ctx, *show)
		if err != nil {
			return err
		}
		fmt.Println(rec.Code)
		return nil

	case *remove != "":
		if err := st.Delete(ctx, *remove); err != nil {
			return err
		}
		fmt.Printf("deleted %s\n", *remove)
		return nil

	default:
		recs, err := st.List(ctx, *limit)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SESSION\tSTATUS\tSEGMENTS\tUPDATED\tVIDEO")
		for _, rec := range recs {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
				rec.SessionID, rec.Status, rec.Segments,
				rec.UpdatedAt.Format("2006-01-02 15:04"), rec.VideoURL)
		}
		return w.Flush()
	}
}
