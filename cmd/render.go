/*
Copyright 2020 Google LLC

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package cmd

import (
	"bytes"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/ademuri/watch-log-tools/internal/ratings"
)

// Analysis is one rendered ranking: a header row, data rows and a summary
// line.
type Analysis struct {
	title   string
	results [][]string
	summary string
}

func (a Analysis) String() string {
	out := new(bytes.Buffer)
	if a.title != "" {
		fmt.Fprintf(out, "%s\n", a.title)
	}
	if len(a.results) <= 1 {
		fmt.Fprintf(out, "No viewings found.\n")
	} else {
		table := tablewriter.NewWriter(out)
		table.Header(a.results[0])
		for _, row := range a.results[1:] {
			if err := table.Append(row); err != nil {
				return fmt.Sprintf("Error rendering table: %v", err)
			}
		}
		if err := table.Render(); err != nil {
			return fmt.Sprintf("Error rendering table: %v", err)
		}
	}
	if a.summary != "" {
		fmt.Fprintf(out, "%s\n", a.summary)
	}
	return out.String()
}

// HTML renders the analysis as an email fragment.
func (a Analysis) HTML() string {
	out := new(bytes.Buffer)
	out.WriteString("<div>\n")
	if a.title != "" {
		fmt.Fprintf(out, "<h2>%s</h2>\n", html.EscapeString(a.title))
	}
	if len(a.results) <= 1 {
		out.WriteString("<div>No viewings found.</div>\n")
	} else {
		out.WriteString("<table>\n<thead>\n<tr>")
		for _, header := range a.results[0] {
			fmt.Fprintf(out, "<th>%s</th>", html.EscapeString(header))
		}
		out.WriteString("</tr>\n</thead>\n<tbody>\n")
		for _, row := range a.results[1:] {
			out.WriteString("<tr>\n")
			for _, column := range row {
				fmt.Fprintf(out, "<td>%s</td>\n", html.EscapeString(column))
			}
			out.WriteString("</tr>\n")
		}
		out.WriteString("</tbody>\n</table>\n")
	}
	if a.summary != "" {
		fmt.Fprintf(out, "<div>%s</div>\n", html.EscapeString(a.summary))
	}
	out.WriteString("</div>\n")
	return out.String()
}

var setTitles = map[ratings.Set]string{
	ratings.SetMovies:   "Movies",
	ratings.SetShows:    "Shows",
	ratings.SetEpisodes: "Episodes",
}

// rankingAnalysis renders one ranked section.
func rankingAnalysis(sec statsSection) Analysis {
	a := Analysis{
		title:   fmt.Sprintf("%s by %s", setTitles[sec.Set], sec.Dimension.Label()),
		results: [][]string{{"#", "Title", "", "Viewings", sec.Dimension.Label()}},
	}
	for i, b := range sec.Buckets {
		a.results = append(a.results, []string{
			strconv.Itoa(i + 1),
			b.DisplayTitle,
			b.DisplaySubtitle,
			strconv.Itoa(b.SampleCount),
			formatRating(b.Average(sec.Dimension)),
		})
	}
	return a
}

// vectorAnalysis renders every dimension of one bucket.
func vectorAnalysis(b ratings.Bucket) Analysis {
	title := b.DisplayTitle
	if b.DisplaySubtitle != "" {
		title += " (" + b.DisplaySubtitle + ")"
	}
	a := Analysis{
		title:   title,
		results: [][]string{{"Dimension", "Average"}},
		summary: fmt.Sprintf("%d viewings", b.SampleCount),
	}
	if b.SampleCount == 1 {
		a.summary = "1 viewing"
	}
	for _, d := range ratings.Dimensions() {
		a.results = append(a.results, []string{d.Label(), formatRating(b.Average(d))})
	}
	return a
}

// historyAnalysis renders individual viewings. Unrated overall scores show
// as "-".
func historyAnalysis(config HistoryConfig, rows []historyRow) Analysis {
	var filters []string
	if config.Target != "" {
		filters = append(filters, "of "+config.Target)
	}
	if config.Rater != "" {
		filters = append(filters, "by "+config.Rater)
	}
	a := Analysis{
		title:   strings.TrimSpace("Viewings " + strings.Join(filters, " ")),
		results: [][]string{{"Date", "Rater", "Title", "Episode", ratings.Overall.Label(), "Watch Again", "Recommend", "Notes"}},
		summary: fmt.Sprintf("%d viewings", len(rows)),
	}
	if len(rows) == 1 {
		a.summary = "1 viewing"
	}
	for _, r := range rows {
		overall := "-"
		if v, ok := r.Ratings[ratings.Overall]; ok {
			overall = formatRating(v)
		}
		a.results = append(a.results, []string{
			r.WatchedOn,
			r.Rater,
			r.Title,
			r.Episode,
			overall,
			yesNo(r.WouldWatchAgain),
			yesNo(r.WouldRecommend),
			r.Notes,
		})
	}
	return a
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func formatRating(x float64) string {
	return strconv.FormatFloat(x, 'f', 1, 64)
}
