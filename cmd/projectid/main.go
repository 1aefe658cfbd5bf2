// Command projectid prints the stable identifier of a repository URL.
//
//	projectid https://github.com/golang/go
//	projectid --hex https://github.com/golang/go
//	projectid --inspect https://github.com/golang/go
//	projectid --name go --author golang --url https://github.com/golang/go
//
// Only the first argument is read; any further arguments are ignored. Every
// argument is a URL, so words such as "help" or "version" are rejected as
// malformed URLs like any other string without a separator.
//
// Exit status is 1 on usage errors and 2 when the URL cannot be split into
// an author and a name.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/palemoky/repo-project-id/internal/logger"
	"github.com/palemoky/repo-project-id/internal/projectid"
)

var version = "dev"

const (
	exitUsage     = 1
	exitMalformed = 2
)

// exitError carries the process exit status of a failed command
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return "exit status " + strconv.Itoa(e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command line and returns the exit status
func run(args []string, stdout, stderr io.Writer) int {
	defer logger.Sync()

	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	if err == nil {
		return 0
	}

	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintln(stderr, "Error:", ee.err)
		}
		return ee.code
	}

	fmt.Fprintln(stderr, "Error:", err)
	fmt.Fprintln(stderr, root.UseLine())
	return exitUsage
}

type options struct {
	hex     bool
	verbose bool
	inspect bool

	// explicit triple; any of them being set selects it over the url argument
	name, author, url string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "projectid <url>",
		Short:         "Derive the stable identifier of a repository",
		Long:          "Derive the 64-bit identifier of a repository from its name, author and URL. The name and author are taken from the last two path segments of the URL.",
		Version:       version,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.Init(opts.verbose)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if explicitTriple(cmd) {
				if len(args) > 0 {
					return errors.New("a url argument cannot be combined with --name, --author or --url")
				}
				if opts.inspect {
					return inspect(cmd, opts.name, opts.author, opts.url)
				}
				printID(cmd, opts, projectid.Generate(opts.name, opts.author, opts.url), opts.name, opts.author, opts.url)
				return nil
			}

			if len(args) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "Usage:", cmd.UseLine())
				return &exitError{code: exitUsage}
			}
			if len(args) > 1 {
				logger.Debug("Ignoring extra arguments", zap.Strings("args", args[1:]))
			}
			return runURL(cmd, opts, args[0])
		},
	}

	cmd.CompletionOptions.DisableDefaultCmd = true
	cmd.SetVersionTemplate("projectid {{.Version}} (scheme " + projectid.Scheme + ")\n")

	cmd.Flags().BoolVar(&opts.hex, "hex", false, "Print the identifier as 16 hex digits")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log derivation details to stderr")
	cmd.Flags().BoolVar(&opts.inspect, "inspect", false, "Show every step of the derivation as a table")
	cmd.Flags().StringVar(&opts.name, "name", "", "Repository name of an explicit triple")
	cmd.Flags().StringVar(&opts.author, "author", "", "Repository author (owner) of an explicit triple")
	cmd.Flags().StringVar(&opts.url, "url", "", "Repository URL of an explicit triple, used verbatim")

	return cmd
}

func explicitTriple(cmd *cobra.Command) bool {
	flags := cmd.Flags()
	return flags.Changed("name") || flags.Changed("author") || flags.Changed("url")
}

func runURL(cmd *cobra.Command, opts *options, url string) error {
	name, author, err := projectid.SplitURL(url)
	if err != nil {
		return &exitError{code: exitMalformed, err: fmt.Errorf("%q: %w", url, err)}
	}
	if opts.inspect {
		return inspect(cmd, name, author, url)
	}
	printID(cmd, opts, projectid.Generate(name, author, url), name, author, url)
	return nil
}

func printID(cmd *cobra.Command, opts *options, id int64, name, author, url string) {
	logger.Debug("Derived project id",
		zap.String("name", name),
		zap.String("author", author),
		zap.String("url", url),
		zap.Int64("id", id),
	)
	if projectid.IsExtremal(id) {
		logger.Warn("Identifier has no positive form", zap.Int64("id", id))
	}

	if opts.hex {
		fmt.Fprintln(cmd.OutOrStdout(), projectid.FormatHex(id))
		return
	}
	fmt.Fprintln(cmd.OutOrStdout(), id)
}

// inspect prints every intermediate value of the derivation
func inspect(cmd *cobra.Command, name, author, url string) error {
	deriver := projectid.NewDeriver(projectid.MD5)
	digest := deriver.Digest(name, author, url)
	folded := projectid.Fold(digest)
	id := projectid.Normalize(folded)

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.Header("Field", "Value")
	rows := [][]string{
		{"Name", name},
		{"Author", author},
		{"URL", url},
		{"Digest", digest},
		{"Folded", strconv.FormatInt(folded, 10)},
		{"ID", strconv.FormatInt(id, 10)},
		{"Hex", projectid.FormatHex(id)},
		{"Scheme", projectid.Scheme},
	}
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}
