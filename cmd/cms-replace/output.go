package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	cmsreplace "github.com/goliatone/go-cms-replace"
	"github.com/goliatone/go-cms-replace/internal/search"
)

func writeJSON(out io.Writer, value any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

func printSearch(out io.Writer, result *search.Result, asJSON bool) error {
	if result == nil {
		result = &search.Result{}
	}
	if asJSON {
		return writeJSON(out, result)
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tID\tLANG\tFIELD\tMATCHES\tCONTEXT\tSELECT")
	for _, item := range result.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			item.Kind, item.RecordID, item.Langcode, item.FieldLabel, item.Matches, item.Context, item.SelectionKey())
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "%d items, %d matches (page %d, size %d)\n", result.Total, result.TotalMatches, result.Page, result.PageSize)
	for _, warning := range result.Warnings {
		fmt.Fprintf(out, "warning: %s\n", warning)
	}
	return nil
}

func printOutcome(out io.Writer, outcome *cmsreplace.Outcome, asJSON bool) error {
	if outcome == nil {
		return nil
	}
	if asJSON {
		return writeJSON(out, outcome)
	}
	replaced, affected, errs := outcome.Summary()
	fmt.Fprintf(out, "replaced %d occurrences in %d records (%d errors)\n", replaced, affected, errs)
	if outcome.Report != nil {
		fmt.Fprintf(out, "report %s\n", outcome.Report.ID)
	} else {
		fmt.Fprintln(out, "dry run, nothing saved")
	}
	for _, ref := range outcome.Skipped {
		fmt.Fprintf(out, "skipped %s: replacement no longer present\n", ref)
	}
	if outcome.Result != nil {
		for _, failure := range outcome.Result.Failures {
			fmt.Fprintf(out, "failed %s\n", failure)
		}
	}
	return nil
}

func printReports(out io.Writer, items []*cmsreplace.Report, total int, asJSON bool) error {
	if asJSON {
		return writeJSON(out, map[string]any{"reports": items, "total": total})
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tSEARCH\tREPLACE\tREPLACED\tAFFECTED\tSTATUS")
	for _, report := range items {
		fmt.Fprintf(tw, "%s\t%s\t%q\t%q\t%d\t%d\t%s\n",
			report.ID, report.CreatedAt.Format(time.RFC3339), report.SearchTerm, report.ReplaceTerm,
			report.Replaced, report.Affected, report.Status())
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "%d of %d reports\n", len(items), total)
	return nil
}

func printReport(out io.Writer, report *cmsreplace.Report, asJSON bool) error {
	if asJSON {
		return writeJSON(out, report)
	}
	fmt.Fprintf(out, "report   %s (%s)\n", report.ID, report.Status())
	fmt.Fprintf(out, "created  %s\n", report.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(out, "search   %q regex=%t case=%t\n", report.SearchTerm, report.IsRegex, report.CaseSensitive)
	fmt.Fprintf(out, "replace  %q\n", report.ReplaceTerm)
	if report.UndoneFrom != nil {
		fmt.Fprintf(out, "undoes   %s\n", report.UndoneFrom)
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tID\tLANG\tBUNDLE\tTITLE\tCOUNT")
	for _, rec := range report.Details.Records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\n", rec.Kind, rec.RecordID, rec.Langcode, rec.Bundle, rec.Title, rec.Count)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	for _, failure := range report.Details.Failures {
		fmt.Fprintf(out, "failed %s %s [%s]: %s\n", failure.Kind, failure.RecordID, failure.Stage, failure.Message)
	}
	return nil
}
