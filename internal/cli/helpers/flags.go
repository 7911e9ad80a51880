package helpers

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/coral-mesh/hookprof/internal/config"
	"github.com/coral-mesh/hookprof/internal/constants"
	errs "github.com/coral-mesh/hookprof/internal/errors"
)

// AddFormatFlag adds a standard --format/-o flag to a command. An empty
// value falls back to the configured output format.
func AddFormatFlag(cmd *cobra.Command, formatVar *string) {
	description := fmt.Sprintf("Output format (%s); defaults to the configured format",
		strings.Join(constants.Formats, ", "))
	cmd.Flags().StringVarP(formatVar, "format", "o", "", description)

	errs.Must(cmd.RegisterFlagCompletionFunc("format", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return constants.Formats, cobra.ShellCompDirectiveNoFileComp
	}), "register format completion")
}

// AllowBare lets the named flag be given without a value, in which case it
// takes bare. It panics when the flag is not defined.
func AllowBare(flags *pflag.FlagSet, name, bare string) {
	f := flags.Lookup(name)
	if f == nil {
		panic(fmt.Sprintf("flag --%s is not defined", name))
	}
	f.NoOptDefVal = bare
}

// ReportFlags are the output flags shared by the profiling commands.
type ReportFlags struct {
	URL       string
	Fields    string
	Format    string
	Order     string
	OrderBy   string
	Spotlight bool
}

// AddFlags registers the flags on cmd. --spotlight is only added when the
// command supports it.
func (f *ReportFlags) AddFlags(cmd *cobra.Command, spotlight bool) {
	flags := cmd.Flags()
	flags.StringVar(&f.URL, "url", "", "URL of the request to profile (defaults to the configured site URL)")
	flags.StringVar(&f.Fields, "fields", "", "Comma-separated fields to display instead of the defaults")
	AddFormatFlag(cmd, &f.Format)
	flags.StringVar(&f.Order, "order", constants.DefaultOrder, "Sort direction (ASC, DESC)")
	flags.StringVar(&f.OrderBy, "orderby", "", "Field to sort rows by")
	if spotlight {
		flags.BoolVar(&f.Spotlight, "spotlight", false, "Hide rows whose metrics are all zero-ish")
	}

	errs.Must(cmd.RegisterFlagCompletionFunc("order", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return constants.Orders, cobra.ShellCompDirectiveNoFileComp
	}), "register order completion")
}

// Resolve validates the flags and fills the format from cfg when unset.
func (f *ReportFlags) Resolve(cfg *config.Config) error {
	if f.Format == "" {
		f.Format = cfg.Output.Format
	}
	if err := config.ValidateFormat(f.Format); err != nil {
		return err
	}
	order, err := config.NormalizeOrder(f.Order)
	if err != nil {
		return err
	}
	f.Order = order
	return nil
}

// Write validates, sorts and renders the report to w.
func (f *ReportFlags) Write(r *Report, w io.Writer) error {
	if err := r.Validate(); err != nil {
		return err
	}
	r.Sort(f.Order, f.OrderBy)
	formatter, err := NewFormatter(f.Format)
	if err != nil {
		return err
	}
	return formatter.Format(r, w)
}
