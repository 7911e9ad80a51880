// Package profile implements the profiling commands of the hookprof CLI.
//
// Each command serves one request of the site under the profiler and prints
// a report:
//
//	hookprof stage [<stage>] [--all]
//	hookprof hook [<hook>] [--all]
//	hookprof eval <script> [--hook[=<hook>]]
//	hookprof eval-file <file> [--hook[=<hook>]]
//	hookprof queries [--hook=<hook>] [--callback=<callback>]
//
// # Stages
//
// Without a stage, the request is split into bootstrap, main_query and
// template and each is timed as a whole. Naming a stage times every boundary
// hook of that stage plus the gaps between them, reported as
// "<hook>:before" and "<hook>:after" rows; --all does so for every stage at
// once.
//
// # Hooks
//
// Without a hook, every hook fired during the request gets a row. Naming a
// hook breaks it down per callback, with the callback's source location;
// --all breaks down every hook. The shutdown hook, which only fires once the
// request is over, is fired explicitly after the run.
//
// # Output
//
// Reports are tables by default, with a totals footer. --format selects
// json, yaml or csv, --fields picks columns, --orderby and --order sort
// rows and --spotlight hides rows whose metrics are all near zero.
package profile
