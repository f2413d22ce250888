package mudioflag

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"go.senan.xyz/flagconf"

	"mudio"
	"mudio/tags"
)

func Parse() {
	userConfig, err := os.UserConfigDir()
	if err != nil {
		panic(err)
	}

	defaultConfigPath := filepath.Join(userConfig, mudio.Name, "config")
	configPath := flag.String("config-path", defaultConfigPath, "Path to config file")

	printVersion := flag.Bool("version", false, "Print the version and exit")
	printConfig := flag.Bool("config", false, "Print the parsed config and exit")

	flag.Parse()
	flagconf.ReadEnvPrefix = func(_ *flag.FlagSet) string { return mudio.Name }
	flagconf.ParseEnv()
	flagconf.ParseConfig(*configPath)

	if *printVersion {
		fmt.Printf("%s %s\n", flag.CommandLine.Name(), mudio.Version)
		os.Exit(0)
	}
	if *printConfig {
		flag.VisitAll(func(f *flag.Flag) {
			fmt.Printf("%-16s %s\n", f.Name, f.Value)
		})
		os.Exit(0)
	}
}

// Processor binds the processing safety and performance flags onto a
// Processor. The caller provides the codec, operations, filters and
// progress sink after parsing.
func Processor() *mudio.Processor {
	var p mudio.Processor

	flag.BoolVar(&p.DryRun, "dry-run", false, "Plan changes without writing them")
	flag.StringVar(&p.BackupDir, "backup", "", "Directory to back up files into before writing")
	flag.BoolVar(&p.DeleteBackups, "delete-backups", false, "Remove backups after a verified write")
	flag.BoolVar(&p.Force, "force", false, "Process files that fail the size or write permission checks")
	flag.IntVar(&p.Workers, "threads", 0, "Max files processed in parallel (0 = automatic)")
	flag.IntVar(&p.MinParallel, "min-parallel", mudio.DefaultMinParallel, "Min batch size before files are processed in parallel")
	flag.IntVar(&p.BackupTries, "backup-retry-limit", mudio.DefaultBackupTries, "Max numbered backup names to try per file")

	p.MaxFileSize = mudio.DefaultMaxFileSize
	flag.Var(&fileSizeParser{&p.MaxFileSize}, "max-file-size", "Max file size in MB to accept for processing")

	p.Schema = tags.SchemaExtended
	flag.Var(&schemaParser{&p.Schema}, "schema", "Keyspace to read fields under (canonical, extended, raw)")

	return &p
}

// Fields returns the canonicalised target field list bound to -fields.
func Fields() *[]string {
	var fields []string
	flag.Var(&fieldsParser{&fields}, "fields", "Comma separated fields to operate on")
	return &fields
}

func Exts() *[]string {
	var exts []string
	flag.Var(&extsParser{&exts}, "ext", "Comma separated extensions to process, eg \"flac,mp3\"")
	return &exts
}

// FilterExpr is one parsed -filter flag. The caller applies the regex
// mode since that arrives in a separate flag.
type FilterExpr struct {
	Field   string
	Pattern string
}

func Filters() *[]FilterExpr {
	var filters []FilterExpr
	flag.Var(&filtersParser{&filters}, "filter", "Process only files where a field matches a pattern, eg \"artist=Beatles\" (stackable)")
	return &filters
}
