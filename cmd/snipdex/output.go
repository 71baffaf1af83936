package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/kailas-cloud/snipdex/internal/domain/item"
	"github.com/kailas-cloud/snipdex/internal/domain/search/result"
)

const previewLen = 60

type snippetView struct {
	ID        string    `json:"id"`
	Domain    string    `json:"domain"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	SourceURL string    `json:"source_url,omitempty"`
	Title     string    `json:"title,omitempty"`
	Score     *float64  `json:"score,omitempty"`
}

func viewOf(it *item.Item) snippetView {
	return snippetView{
		ID:        it.ID(),
		Domain:    string(it.Domain()),
		Text:      it.Text(),
		CreatedAt: it.CreatedAt(),
		SourceURL: it.SourceURL(),
		Title:     it.Title(),
	}
}

func viewsOf(items []item.Item) []snippetView {
	out := make([]snippetView, len(items))
	for i := range items {
		out[i] = viewOf(&items[i])
	}
	return out
}

func rankedViews(results []result.Result) []snippetView {
	out := make([]snippetView, len(results))
	for i := range results {
		it := results[i].Item()
		v := viewOf(&it)
		score := results[i].Score()
		v.Score = &score
		out[i] = v
	}
	return out
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return nil
}

func printTable(w io.Writer, views []snippetView, withScore bool) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if withScore {
		fmt.Fprintln(tw, "SCORE\tID\tDOMAIN\tTEXT")
	} else {
		fmt.Fprintln(tw, "ID\tDOMAIN\tCREATED\tTEXT")
	}
	for _, v := range views {
		if withScore && v.Score != nil {
			fmt.Fprintf(tw, "%.4f\t%s\t%s\t%s\n", *v.Score, v.ID, v.Domain, preview(v.Text))
		} else {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", v.ID, v.Domain, v.CreatedAt.Format(time.DateTime), preview(v.Text))
		}
	}
	return tw.Flush()
}

// preview flattens whitespace and truncates long snippets for table output.
func preview(text string) string {
	s := strings.Join(strings.Fields(text), " ")
	r := []rune(s)
	if len(r) <= previewLen {
		return s
	}
	return string(r[:previewLen-1]) + "…"
}
