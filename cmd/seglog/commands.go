package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/hupe1980/seglog"
	"github.com/hupe1980/seglog/codec"
	"github.com/spf13/cobra"
)

func (a *app) sectionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sections",
		Short: "List the sections of a log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			l, _, err := a.openLog(cmd.Context())
			if err != nil {
				return err
			}
			defer closeLog(cmd.Context(), l, &err)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RANGE\tRECORDS\tBYTES\tNAME")
			for _, s := range l.Sections() {
				if !s.Sealed {
					continue
				}
				fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", s.Range, s.Len(), s.Bytes, s.Name)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "next lsn: %d\n", l.LastLSN()+1)
			return nil
		},
	}
}

func (a *app) dumpCmd() *cobra.Command {
	var (
		from      int64
		limit     int
		codecName string
	)
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print the records of a log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			var dec codec.Codec
			if codecName != "raw" {
				c, ok := codec.ByName(codecName)
				if !ok {
					return fmt.Errorf("unknown codec %q (raw, %v)", codecName, codec.Names())
				}
				dec = c
			}

			l, _, err := a.openLog(cmd.Context())
			if err != nil {
				return err
			}
			defer closeLog(cmd.Context(), l, &err)

			start := l.Start()
			if from >= 0 {
				start = seglog.LSN(from)
			}
			return dumpRecords(cmd, l, start, limit, dec)
		},
	}
	cmd.Flags().Int64Var(&from, "from", -1, "first lsn to print (default: retained start)")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of records (0 prints all)")
	cmd.Flags().StringVar(&codecName, "codec", "raw", "decode payloads with a codec before printing")
	return cmd
}

var errLimitReached = errors.New("limit reached")

// closeLog closes l and joins a close failure into *err.
func closeLog(ctx context.Context, l *seglog.Log, err *error) {
	if cerr := l.Close(ctx); cerr != nil {
		*err = errors.Join(*err, fmt.Errorf("close log: %w", cerr))
	}
}

func dumpRecords(cmd *cobra.Command, l *seglog.Log, from seglog.LSN, limit int, dec codec.Codec) error {
	out := cmd.OutOrStdout()
	n := 0
	err := l.Replay(cmd.Context(), from, func(lsn seglog.LSN, payload []byte) error {
		if limit > 0 && n >= limit {
			return errLimitReached
		}
		n++
		if dec == nil {
			_, err := fmt.Fprintf(out, "%d\t%q\n", lsn, payload)
			return err
		}
		var v any
		if err := dec.Unmarshal(payload, &v); err != nil {
			return err
		}
		b, err := codec.Default.Marshal(v)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, "%d\t%s\n", lsn, b)
		return err
	})
	if errors.Is(err, errLimitReached) {
		return nil
	}
	return err
}

func (a *app) checkpointCmd() *cobra.Command {
	var history bool
	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Show the committed checkpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			st, _, err := a.openStorage(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			cp, err := st.ReadCheckpoint(ctx)
			switch {
			case errors.Is(err, seglog.ErrNoCheckpoint):
				fmt.Fprintln(out, "no checkpoint")
				return nil
			case err != nil:
				return err
			}
			printCheckpoint(out, "current", cp)

			if !history {
				return nil
			}
			seqs, err := st.Markers(ctx)
			if err != nil {
				return err
			}
			for _, seq := range seqs {
				m, err := st.ReadMarker(ctx, seq)
				if err != nil {
					fmt.Fprintf(out, "marker %d: %v\n", seq, err)
					continue
				}
				printCheckpoint(out, fmt.Sprintf("marker %d", seq), m)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&history, "history", false, "also list the retained superseded markers")
	return cmd
}

func printCheckpoint(w io.Writer, label string, cp seglog.Checkpoint) {
	fmt.Fprintf(w, "%s: token=%q lsn=%d created=%s\n", label, cp.Token, cp.LSN, cp.CreatedAt.Format(time.RFC3339))
}

func (a *app) verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Audit every section of a log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			st, _, err := a.openStorage(ctx)
			if err != nil {
				return err
			}
			r, err := seglog.Verify(ctx, st)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "sections: %d\nrecords: %d\nbytes: %d\nspan: %s\n", r.Sections, r.Records, r.Bytes, r.Span)
			if r.HasCheckpoint {
				fmt.Fprintf(out, "checkpoint: %q at %d\n", r.Checkpoint.Token, r.Checkpoint.LSN)
			}
			for _, m := range r.Stale {
				fmt.Fprintf(out, "stale: %s\n", m.Name)
			}
			for _, p := range r.Problems {
				fmt.Fprintf(out, "problem: %s\n", p)
			}
			return r.Err()
		},
	}
}
