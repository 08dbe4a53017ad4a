package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/mutcache/contacts"
	"github.com/jonwraymond/mutcache/inspect"
	"github.com/jonwraymond/mutcache/mutation"
)

// ErrMutationsFailed is returned when at least one per-contact mutation failed.
var ErrMutationsFailed = errors.New("mutations failed")

// ErrInvalidID is returned for arguments that are not positive integers.
var ErrInvalidID = errors.New("invalid contact id")

func parseIDs(args []string) ([]int, error) {
	ids := make([]int, 0, len(args))
	for _, arg := range args {
		id, err := strconv.Atoi(arg)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidID, arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// mutateAll runs one mutation per id, at most limit at a time, and reports how
// many of them failed. Each id is its own invocation; a failure does not stop
// the others.
func mutateAll[R, V, C any](ctx context.Context, m *mutation.MultiMutation[R, V, C], ids []int, limit int, varsFor func(id int) V) error {
	var g errgroup.Group
	g.SetLimit(limit)
	for _, id := range ids {
		g.Go(func() error {
			_, _ = m.MutateAsync(ctx, contacts.InvocationKey(id), varsFor(id))
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, id := range ids {
		if m.Status(contacts.InvocationKey(id)) == mutation.StatusError {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", ErrMutationsFailed, failed, len(ids))
	}
	return ctx.Err()
}

// printListing writes every entry of the cache with its invocations.
func printListing(w io.Writer, insp *inspect.Inspector, format string) error {
	summaries := insp.ListEntries()
	details := make([]inspect.EntryDetail, 0, len(summaries))
	for _, s := range summaries {
		d, err := insp.DescribeEntry(s.ID)
		if err != nil {
			continue
		}
		details = append(details, d)
	}

	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(details)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, d := range details {
		a := d.Activity
		fmt.Fprintf(tw, "%s (%s)\tstarted=%d succeeded=%d failed=%d discarded=%d\n",
			d.Name, d.ID, a.Started, a.Succeeded, a.Failed, a.Discarded)
		for _, inv := range d.Invocations {
			fmt.Fprintf(tw, "  %s\t%s\t%s\n", inv.Key, inv.Status, firstLine(inv.Error))
		}
	}
	return tw.Flush()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
