package main

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"scenekeeper/internal/workflow"
)

func printReports(out io.Writer, reports []workflow.Report) {
	var rows [][]string
	var total workflow.Report
	for _, r := range reports {
		if r.Job == "" {
			continue
		}
		total.Scanned += r.Scanned
		total.Actions += r.Actions
		total.Applied += r.Applied
		total.Failed += r.Failed
		rows = append(rows, []string{
			r.Job,
			modeLabel(r.DryRun),
			strconv.Itoa(r.Scanned),
			strconv.Itoa(r.Actions),
			strconv.Itoa(r.Applied),
			strconv.Itoa(r.Failed),
			r.Duration().Round(time.Millisecond).String(),
			r.Summary(),
		})
	}
	if len(rows) == 0 {
		return
	}
	var footer []string
	if len(rows) > 1 {
		footer = []string{
			"Total", "",
			strconv.Itoa(total.Scanned),
			strconv.Itoa(total.Actions),
			strconv.Itoa(total.Applied),
			strconv.Itoa(total.Failed),
		}
	}
	fmt.Fprintln(out, renderTable(jobColumns, rows, footer))

	for _, r := range reports {
		switch {
		case r.Duplicates != nil && r.Duplicates.Groups > 0:
			printDuplicateReasons(out, r)
		case r.Matches != nil && len(r.Matches.PerBox) > 0:
			printBoxMatches(out, r)
		}
	}
}

func printDuplicateReasons(out io.Writer, r workflow.Report) {
	s := r.Duplicates
	var rows [][]string
	for _, rc := range s.SortedReasons() {
		rows = append(rows, []string{rc.Reason, strconv.Itoa(rc.Count)})
	}
	fmt.Fprintf(out, "\n%s: %d files compared, %s reclaimable\n", r.Job, s.ComparedFiles, humanize.IBytes(uint64(max(s.BytesToDelete, 0))))
	fmt.Fprintln(out, renderTable(reasonColumns, rows, nil))
}

func printBoxMatches(out io.Writer, r workflow.Report) {
	m := r.Matches
	rows := make([][]string, 0, len(m.PerBox))
	for _, box := range slices.Sorted(maps.Keys(m.PerBox)) {
		rows = append(rows, []string{box, strconv.Itoa(m.PerBox[box])})
	}
	fmt.Fprintf(out, "\n%s: %d scrape failures, %d untouched, %d entities created\n", r.Job, m.Failed, m.Untouched, m.Created)
	fmt.Fprintln(out, renderTable(boxColumns, rows, nil))
}

func modeLabel(dryRun bool) string {
	if dryRun {
		return "dry run"
	}
	return "apply"
}
