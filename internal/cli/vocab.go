package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/portmatch/internal/ir"
	"github.com/roach88/portmatch/internal/vocab"
)

// VocabOptions holds flags for the vocab command.
type VocabOptions struct {
	*RootOptions
	Check  string // vocabulary file to validate
	Source bool   // print the embedded CUE source
}

// VocabSummary is the JSON form of a vocabulary.
type VocabSummary struct {
	Version      string              `json:"version"`
	Modes        map[string][]string `json:"modes"`
	Ports        []ir.PortPair       `json:"ports"`
	Capabilities []string            `json:"capabilities"`
	Intents      []string            `json:"intents"`
	Elements     []string            `json:"elements"`
}

// VocabCheckResult holds the result of vocab --check.
type VocabCheckResult struct {
	Valid   bool                    `json:"valid"`
	Version string                  `json:"version,omitempty"`
	Errors  []vocab.ValidationError `json:"errors,omitempty"`
}

// NewVocabCommand creates the vocab command.
func NewVocabCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VocabOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "vocab",
		Short: "Show or validate the capability/intent vocabulary",
		Long: `Show the vocabulary in use: modes with their legal capabilities,
intent-to-capability ports, and the element list.

With --check, compile and validate a vocabulary file instead and report
every error found.

Exit codes:
  0 - Vocabulary shown, or the checked file is valid
  1 - The checked file has validation errors
  2 - Command error (file not found, CUE syntax error, etc.)

Examples:
  portmatch vocab
  portmatch vocab --vocab ./custom.cue --format json
  portmatch vocab --check ./custom.cue
  portmatch vocab --source > vocabulary.cue`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVocab(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Check, "check", "", "validate a vocabulary file")
	cmd.Flags().BoolVar(&opts.Source, "source", false, "print the embedded vocabulary source")

	return cmd
}

func runVocab(opts *VocabOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	if opts.Source {
		_, err := cmd.OutOrStdout().Write(vocab.DefaultSource())
		return err
	}
	if opts.Check != "" {
		return checkVocab(opts, formatter)
	}

	v, err := opts.loadVocabulary()
	if err != nil {
		return err
	}
	if formatter.IsJSON() {
		return formatter.Success(summarize(v))
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Vocabulary %s\n", v.Version)
	fmt.Fprintln(w, "\nModes:")
	for _, m := range v.ModeIDs() {
		fmt.Fprintf(w, "  %-12s %s\n", m, joinIDs(v.Legal(m)))
	}
	fmt.Fprintln(w, "\nPorts:")
	for _, p := range v.Ports() {
		fmt.Fprintf(w, "  %s\n", p)
	}
	fmt.Fprintf(w, "\n%d capabilities, %d intents, %d elements\n",
		len(v.Capabilities), len(v.Intents), len(v.Elements))
	return nil
}

func checkVocab(opts *VocabOptions, formatter *OutputFormatter) error {
	src, err := readFile(opts.Check)
	if err != nil {
		return err
	}
	formatter.VerboseLog("Compiling %s", opts.Check)

	v, err := vocab.Compile(opts.Check, src)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeParseFailed, err.Error(), nil)
	}

	errs := vocab.Validate(v)
	if len(errs) > 0 {
		if formatter.IsJSON() {
			_ = formatter.Result(false, VocabCheckResult{Valid: false, Errors: errs},
				ErrCodeInvalidVocab, fmt.Sprintf("%d validation error(s)", len(errs)))
		} else {
			w := formatter.Writer
			fmt.Fprintf(w, "✗ %s: %d validation error(s)\n", opts.Check, len(errs))
			for _, e := range errs {
				fmt.Fprintf(w, "  %s\n", e.Error())
			}
		}
		return NewExitError(ExitFailure, fmt.Sprintf("%d validation error(s)", len(errs)))
	}

	if formatter.IsJSON() {
		return formatter.Success(VocabCheckResult{Valid: true, Version: v.Version})
	}
	fmt.Fprintf(formatter.Writer, "✓ %s valid (version %s)\n", opts.Check, v.Version)
	return nil
}

func summarize(v *vocab.Vocabulary) VocabSummary {
	s := VocabSummary{
		Version:      v.Version,
		Modes:        make(map[string][]string, len(v.Modes)),
		Ports:        v.Ports(),
		Capabilities: stringIDs(v.CapabilityIDs()),
		Intents:      stringIDs(v.IntentIDs()),
		Elements:     stringIDs(v.ElementIDs()),
	}
	for _, m := range v.ModeIDs() {
		s.Modes[string(m)] = stringIDs(v.Legal(m))
	}
	return s
}

func stringIDs[T ~string](ids []T) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

func joinIDs[T ~string](ids []T) string {
	if len(ids) == 0 {
		return "-"
	}
	return strings.Join(stringIDs(ids), ", ")
}
