package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var blocksCmd = &cobra.Command{
	Use:   "blocks [file]",
	Short: "Print the parsed blocks of a document as JSON",
	Long: `Parses, numbers and resolves references in a document, then prints the
resulting blocks as JSON. With --html each block carries its rendered body.`,
	Args: cobra.ExactArgs(1),
	RunE: runBlocks,
}

var textCmd = &cobra.Command{
	Use:   "text [file]",
	Short: "Print the plain text of a converted document",
	Args:  cobra.ExactArgs(1),
	RunE:  runText,
}

var checkCmd = &cobra.Command{
	Use:   "check [file]",
	Short: "Report duplicate ids and undefined references",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheck,
}

// errCheckFailed is returned by check when the document has problems.
var errCheckFailed = errors.New("check failed")

var blocksHTML bool

func init() {
	blocksCmd.Flags().BoolVar(&blocksHTML, "html", false, "Include rendered HTML for each block")

	rootCmd.AddCommand(blocksCmd)
	rootCmd.AddCommand(textCmd)
	rootCmd.AddCommand(checkCmd)
}

func runBlocks(cmd *cobra.Command, args []string) error {
	if blocksHTML {
		res, err := convertFile(cmd, args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), res.Blocks)
	}

	conv, err := newConverter(nil)
	if err != nil {
		return err
	}
	text, err := readFile(args[0])
	if err != nil {
		return err
	}
	doc, err := conv.Parse(text)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), doc.Blocks)
}

func runText(cmd *cobra.Command, args []string) error {
	res, err := convertFile(cmd, args[0])
	if err != nil {
		return err
	}
	text, err := res.Text()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
	return err
}

func runCheck(cmd *cobra.Command, args []string) error {
	conv, err := newConverter(nil)
	if err != nil {
		return err
	}
	text, err := readFile(args[0])
	if err != nil {
		return err
	}
	report, err := conv.Check(text)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, id := range report.DuplicateIDs {
		fmt.Fprintf(out, "%s: duplicate id %q\n", args[0], id)
	}
	for _, ref := range report.UnknownRefs {
		fmt.Fprintf(out, "%s: %s\n", args[0], ref)
	}
	if !report.OK() {
		return errCheckFailed
	}
	fmt.Fprintf(out, "%s: %d blocks, ok\n", args[0], report.Blocks)
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
