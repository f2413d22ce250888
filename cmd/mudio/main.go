package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"github.com/mattn/go-isatty"
	"go.senan.xyz/table/table"
	"golang.org/x/sys/unix"

	"mudio"
	"mudio/cmd/internal/logging"
	"mudio/cmd/internal/mudioflag"
	"mudio/diff"
	"mudio/op"
	"mudio/report"
	"mudio/tags"
)

func init() {
	flag := flag.CommandLine
	flag.Usage = func() {
		fmt.Fprintf(flag.Output(), "Usage:\n")
		fmt.Fprintf(flag.Output(), "  $ %s [<options>] <path>\n", flag.Name())
		fmt.Fprintf(flag.Output(), "\n")
		fmt.Fprintf(flag.Output(), "Options:\n")
		flag.PrintDefaults()
	}
}

const (
	exitSuccess     = 0
	exitError       = 1
	exitUsage       = 2
	exitNoFiles     = 3
	exitPermission  = 4
	exitDiskFull    = 5
	exitInterrupted = 130
)

func main() {
	os.Exit(run())
}

func run() int {
	level := logging.Logging()

	var (
		proc        = mudioflag.Processor()
		fields      = mudioflag.Fields()
		exts        = mudioflag.Exts()
		filterExprs = mudioflag.Filters()

		operation   = flag.String("operation", "", "Operation to apply (write, find-replace, append, prefix, enlist, delist, clear, delete, purge, print)")
		value       = flag.String("value", "", "Value for the write and list operations")
		find        = flag.String("find", "", "Text or pattern to find")
		replace     = flag.String("replace", "", "Replacement text")
		regex       = flag.Bool("regex", false, "Treat the find pattern as a regular expression")
		delimiter   = flag.String("delimiter", ";", "Delimiter between items of multi valued fields")
		filterRegex = flag.Bool("filter-regex", false, "Treat filter patterns as regular expressions")
		recursive   = flag.Bool("recursive", false, "Descend into subdirectories")
		verify      = flag.Bool("verify", true, "Re-read files after writing to check the changes stuck")
		jsonReport  = flag.String("json-report", "", "Write a JSON report of the run to a file")
		verbose     = flag.Bool("verbose", false, "Show detail for every file and enable debug logging")
	)
	mudioflag.Parse()

	if *verbose {
		level.Set(slog.LevelDebug)
	}

	provided := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { provided[f.Name] = true })

	if flag.NArg() > 1 {
		return usageErrf("expected one path, got %d", flag.NArg())
	}
	path := "."
	if flag.NArg() == 1 {
		path = flag.Arg(0)
	}

	switch *operation {
	case "":
		return usageErrf("no operation defined")
	case "find-replace":
		if !provided["find"] || !provided["replace"] {
			return usageErrf("find-replace operation requires -find and -replace")
		}
	case "append", "prefix", "enlist", "delist":
		if !provided["value"] {
			return usageErrf("%s operation requires -value", *operation)
		}
	case "write":
		if len(*fields) == 0 || *value == "" {
			return usageErrf("write operation requires -fields and -value")
		}
	case "clear", "delete", "purge", "print":
	default:
		return usageErrf("unknown operation %q", *operation)
	}
	switch *operation {
	case "find-replace", "append", "prefix", "enlist", "delist", "clear", "delete":
		if len(*fields) == 0 {
			return usageErrf("%s operation requires -fields", *operation)
		}
	}

	if proc.Schema == tags.SchemaRaw && *operation != "print" {
		return usageErrf("raw schema is read only, use it with print")
	}
	if proc.Workers < 0 {
		return usageErrf("threads must not be negative")
	}

	if _, err := os.Stat(path); err != nil {
		return usageErrf("path does not exist: %s", path)
	}
	if err := unix.Access(path, unix.R_OK); err != nil {
		fmt.Fprintf(os.Stderr, "error: no read permission for path: %s\n", path)
		return exitPermission
	}

	if proc.BackupDir != "" {
		if err := os.MkdirAll(proc.BackupDir, 0o755); err != nil {
			return usageErrf("invalid backup directory: %v", err)
		}
		if err := unix.Access(proc.BackupDir, unix.W_OK); err != nil {
			fmt.Fprintf(os.Stderr, "error: no write permission for backup directory: %s\n", proc.BackupDir)
			return exitPermission
		}
	}

	var ops []op.Op
	switch *operation {
	case "write":
		for _, field := range *fields {
			ops = append(ops, op.Write(field, *value, *delimiter))
		}
	case "find-replace":
		for _, field := range *fields {
			o, err := op.FindReplace(field, *find, *replace, *regex, *delimiter)
			if err != nil {
				return usageErrf("find-replace %s: %v", field, err)
			}
			ops = append(ops, o)
		}
	case "append":
		for _, field := range *fields {
			ops = append(ops, op.Append(field, *value))
		}
	case "prefix":
		for _, field := range *fields {
			ops = append(ops, op.Prefix(field, *value))
		}
	case "enlist":
		for _, field := range *fields {
			ops = append(ops, op.Enlist(field, *value, *delimiter))
		}
	case "delist":
		for _, field := range *fields {
			ops = append(ops, op.Delist(field, *value, *delimiter))
		}
	case "clear":
		for _, field := range *fields {
			ops = append(ops, op.Clear(field))
		}
	case "delete":
		for _, field := range *fields {
			ops = append(ops, op.Delete(field))
		}
	case "purge":
		for _, field := range tags.CanonicalFields {
			ops = append(ops, op.Clear(field))
		}
	case "print":
		proc.ReadOnly = true
	}

	var filters []op.Filter
	for _, expr := range *filterExprs {
		f, err := op.NewFilter(expr.Field, expr.Pattern, *filterRegex)
		if err != nil {
			return usageErrf("filter %s: %v", expr.Field, err)
		}
		filters = append(filters, f)
	}

	proc.Codec = tags.Taglib{}
	proc.Ops = ops
	proc.Filters = filters
	proc.NoVerify = !*verify

	files, err := mudio.CollectFiles(proc.Codec, path, *recursive, *exts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: collect files: %v\n", err)
		if errors.Is(err, fs.ErrPermission) {
			return exitPermission
		}
		return exitError
	}
	if len(files) == 0 {
		fmt.Println("No files found matching criteria.")
		writeReport(*jsonReport, nil)
		return exitNoFiles
	}

	fmt.Printf("Processing %d file(s)...\n", len(files))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	progress := mudio.NewConsoleProgress(os.Stdout, len(files))
	proc.Progress = progress

	results := proc.ProcessFiles(ctx, files)
	progress.Finish()

	if len(files) <= 10 || *verbose {
		color := isTTY(os.Stdout)
		for _, res := range results {
			printResult(res, *operation, proc.Schema, color)
		}
	}

	printSummary(results)
	writeReport(*jsonReport, results)

	switch {
	case ctx.Err() != nil:
		return exitInterrupted
	case slices.ContainsFunc(results, func(r mudio.Result) bool { return errors.Is(r.Err, syscall.ENOSPC) }):
		return exitDiskFull
	}
	return exitSuccess
}

func usageErrf(format string, args ...any) int {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	return exitUsage
}

func printResult(res mudio.Result, operation string, schema tags.Schema, color bool) {
	fmt.Printf("\nFile: %s\n", res.Path)

	if res.Status == mudio.StatusSkipped {
		fmt.Println("  SKIPPED: filter not match")
		return
	}
	if res.Status.Failed() && res.Status != mudio.StatusVerifyFailed {
		fmt.Printf("  ERROR: %v\n", res.Err)
		return
	}

	if operation == "print" {
		fmt.Println("  Original:")
		printFields(res.Original, schema == tags.SchemaRaw)
		return
	}

	fmt.Println("  Original:")
	printFields(res.Original, false)

	switch res.Status {
	case mudio.StatusNoChange:
		fmt.Println("  Note: no changes")
	case mudio.StatusDryRun:
		fmt.Println("  Dry-run: planned result:")
		printChanges(res, color)
	case mudio.StatusVerifyFailed:
		printChanges(res, color)
		var bad []string
		for _, field := range slices.Sorted(maps.Keys(res.Verified)) {
			if !res.Verified[field] {
				bad = append(bad, field)
			}
		}
		fmt.Printf("  Modification: FAILED verification for: %s\n", strings.Join(bad, ", "))
	case mudio.StatusOK:
		printChanges(res, color)
		if res.Verified == nil {
			fmt.Println("  Modification: SUCCESS")
		} else {
			fmt.Println("  Modification: SUCCESS (verified)")
		}
	}
}

// displayNames maps canonical fields to their listing labels.
var displayNames = map[string]string{
	tags.Title:       "Title",
	tags.Artist:      "Artist",
	tags.Album:       "Album",
	tags.AlbumArtist: "AlbumArtist",
	tags.Genre:       "Genre",
	tags.Comment:     "Comment",
	tags.Composer:    "Composer",
	tags.Performer:   "Performer",
	tags.Date:        "Date",
	tags.Track:       "Track",
	tags.TotalTracks: "TotalTracks",
	tags.Disc:        "Disc",
	tags.TotalDiscs:  "TotalDiscs",
}

func printFields(fields tags.Fields, raw bool) {
	if raw {
		for _, key := range slices.Sorted(maps.Keys(fields)) {
			fmt.Printf("    %s: %s\n", key, fmtValues(fields[key]))
		}
		return
	}

	for _, key := range fields.SortedKeys() {
		name := displayNames[key]
		if name == "" {
			name = key
		}
		fmt.Printf("    %s: %s\n", name, fmtValues(fields[key]))
	}
}

func fmtValues(values []string) string {
	if len(values) == 0 {
		return "(none)"
	}
	s := strings.Join(values, "; ")
	if r := []rune(s); len(r) > 150 {
		return string(r[:147]) + "..."
	}
	return s
}

func printChanges(res mudio.Result, color bool) {
	t := table.NewStringWriter()
	for _, d := range diff.Fields(res.Original, res.Planned, res.Changes) {
		if color {
			fmt.Fprintf(t, "%s\t%s\t%s\n", d.Field, d.BeforeText(), d.AfterText())
			continue
		}
		fmt.Fprintf(t, "%s\t%s\t%s\n", d.Field, orEmpty(d.Before), orEmpty(d.After))
	}
	for _, row := range strings.Split(strings.TrimRight(t.String(), "\n"), "\n") {
		fmt.Printf("    %s\n", row)
	}
}

func printSummary(results []mudio.Result) {
	var success, failed, skipped int
	for _, res := range results {
		switch {
		case res.Status == mudio.StatusSkipped:
			skipped++
		case res.Status.Passed():
			success++
		default:
			failed++
		}
	}

	fmt.Printf("\n--- SUMMARY ---\n")
	fmt.Printf("Total files processed: %d\n", len(results))
	fmt.Printf("Successful: %d\n", success)
	fmt.Printf("Failed: %d\n", failed)
	if skipped > 0 {
		fmt.Printf("Skipped: %d\n", skipped)
	}

	byExt := map[string][]mudio.Result{}
	for _, res := range results {
		byExt[res.Ext] = append(byExt[res.Ext], res)
	}

	fmt.Printf("\nPer extension results:\n")
	t := table.NewStringWriter()
	fmt.Fprintf(t, "ext\tfiles\tchanged\tfailed\tskipped\n")
	for _, ext := range slices.Sorted(maps.Keys(byExt)) {
		var changed, extFailed, extSkipped int
		for _, res := range byExt[ext] {
			if res.Changes.Any() {
				changed++
			}
			if res.Status.Failed() {
				extFailed++
			}
			if res.Status == mudio.StatusSkipped {
				extSkipped++
			}
		}
		name := ext
		if name == "" {
			name = "no ext"
		}
		fmt.Fprintf(t, "%s\t%d\t%d\t%d\t%d\n", name, len(byExt[ext]), changed, extFailed, extSkipped)
	}
	for _, row := range strings.Split(strings.TrimRight(t.String(), "\n"), "\n") {
		fmt.Printf("  %s\n", row)
	}
}

func writeReport(path string, results []mudio.Result) {
	if path == "" {
		return
	}
	rep := report.Build(results)
	if err := rep.WriteFile(path); err != nil {
		slog.Error("write json report", "err", err)
		return
	}
	fmt.Printf("JSON report written to %s\n", path)
}

func orEmpty(s string) string {
	if s == "" {
		return "[empty]"
	}
	return s
}

func isTTY(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
